package models

import "time"

// Clip provenance values.
const (
	ProvenanceFetched  = "fetched"
	ProvenanceFallback = "fallback"
)

// ClipAsset is one downloaded (or substituted) footage file for a session.
type ClipAsset struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	SessionID string `gorm:"size:16;not null;index" json:"session_id"`

	// Position preserves keyword order regardless of download completion
	// order.
	Position    int     `gorm:"not null" json:"position"`
	Keyword     string  `gorm:"size:128;not null" json:"keyword"`
	Path        string  `gorm:"not null" json:"-"`
	DurationSec float64 `json:"duration_sec"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Provenance  string  `gorm:"size:16;not null;default:'fetched'" json:"provenance"`

	CreatedAt time.Time `json:"created_at"`
}

func (ClipAsset) TableName() string {
	return "clip_assets"
}
