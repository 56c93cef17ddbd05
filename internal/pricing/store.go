package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tokenscout/tokenscout/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound indicates the requested (provider, model) key is absent.
var ErrNotFound = errors.New("pricing: record not found")

// Store persists price records via GORM.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStore constructs a Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Upsert writes a scraper batch transactionally. Either every record in the
// batch commits or none do. Conflicts on (provider, model_name) replace the
// stored row wholesale; last_updated is set to the upsert time regardless of
// what the source claimed. Records are never deleted here: stale rows persist
// until a scraper reports them again.
func (s *Store) Upsert(ctx context.Context, records []models.PriceRecord) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("pricing store: not initialized")
	}
	if len(records) == 0 {
		return nil
	}

	upsertTime := s.now().UTC()
	for i := range records {
		records[i].LastUpdated = upsertTime
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "provider"}, {Name: "model_name"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"modalities",
				"context_window",
				"max_output_tokens",
				"input_price_per_token",
				"output_price_per_token",
				"tokens_per_second",
				"supports_tools",
				"last_updated",
			}),
		}).Create(&records).Error; err != nil {
			return fmt.Errorf("pricing store: upsert: %w", err)
		}
		return nil
	})
}

// ListAll returns every price record ordered by provider then model name.
func (s *Store) ListAll(ctx context.Context) ([]models.PriceRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("pricing store: not initialized")
	}
	var rows []models.PriceRecord
	if errFind := s.db.WithContext(ctx).
		Order("provider ASC, model_name ASC").
		Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("pricing store: list: %w", errFind)
	}
	return rows, nil
}

// GetByKey returns the record for (provider, model_name) or ErrNotFound.
func (s *Store) GetByKey(ctx context.Context, provider, modelName string) (models.PriceRecord, error) {
	if s == nil || s.db == nil {
		return models.PriceRecord{}, fmt.Errorf("pricing store: not initialized")
	}
	provider = strings.TrimSpace(provider)
	modelName = strings.TrimSpace(modelName)

	var row models.PriceRecord
	errFind := s.db.WithContext(ctx).
		Where("provider = ? AND model_name = ?", provider, modelName).
		First(&row).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return models.PriceRecord{}, ErrNotFound
		}
		return models.PriceRecord{}, fmt.Errorf("pricing store: get: %w", errFind)
	}
	return row, nil
}
