package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Modality names a kind of input/output a model supports.
const (
	ModalityText  = "text"
	ModalityImage = "image"
	ModalityAudio = "audio"
	ModalityVideo = "video"
)

// KnownModalities lists every modality the API accepts, in display order.
var KnownModalities = []string{ModalityText, ModalityImage, ModalityAudio, ModalityVideo}

// PriceRecord stores one provider+model pricing snapshot.
type PriceRecord struct {
	Provider  string `gorm:"type:varchar(255);not null;primaryKey;index"` // Provider display name.
	ModelName string `gorm:"type:varchar(255);not null;primaryKey;index"` // Model display name.

	Modalities datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"` // Supported modalities as a JSON string array.

	ContextWindow   int  `gorm:"not null;default:0"` // Max context length in tokens.
	MaxOutputTokens *int // Max output tokens, when the provider publishes one.

	InputPricePerToken  float64 `gorm:"type:decimal(20,12);not null;default:0"` // USD per input token.
	OutputPricePerToken float64 `gorm:"type:decimal(20,12);not null;default:0"` // USD per output token.

	TokensPerSecond *float64 `gorm:"type:decimal(20,6)"`     // Generation speed, when known.
	SupportsTools   bool     `gorm:"not null;default:false"` // Function calling / tool use.

	LastUpdated time.Time `gorm:"not null;index"`          // Set server-side on every upsert.
	CreatedAt   time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

// TableName overrides the default table name.
func (PriceRecord) TableName() string {
	return "price_records"
}

// ModalityList decodes the modalities column. Falls back to ["text"] when the
// column is empty or malformed so documents always describe some modality.
func (r PriceRecord) ModalityList() []string {
	var out []string
	if len(r.Modalities) > 0 {
		if err := json.Unmarshal(r.Modalities, &out); err == nil && len(out) > 0 {
			return out
		}
	}
	return []string{ModalityText}
}

// EncodeModalities encodes a modality list for the Modalities column.
func EncodeModalities(modalities []string) datatypes.JSON {
	if len(modalities) == 0 {
		modalities = []string{ModalityText}
	}
	data, err := json.Marshal(modalities)
	if err != nil {
		return datatypes.JSON([]byte(`["text"]`))
	}
	return datatypes.JSON(data)
}
