package models

import (
	"encoding/hex"
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Stage is one step of the generation pipeline. Transitions are strictly
// forward; Failed is terminal and reachable from any non-terminal stage.
type Stage string

const (
	StageCreated           Stage = "created"
	StageScripting         Stage = "scripting"
	StageFetchingFootage   Stage = "fetching_footage"
	StageSynthesizingAudio Stage = "synthesizing_audio"
	StageAssembling        Stage = "assembling"
	StageDone              Stage = "done"
	StageFailed            Stage = "failed"
)

var stageRank = map[Stage]int{
	StageCreated:           0,
	StageScripting:         1,
	StageFetchingFootage:   2,
	StageSynthesizingAudio: 3,
	StageAssembling:        4,
	StageDone:              5,
}

// Terminal reports whether no further transition is allowed from s.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

// CanAdvanceTo reports whether a transition from s to next is legal.
func (s Stage) CanAdvanceTo(next Stage) bool {
	if s.Terminal() {
		return false
	}
	if next == StageFailed {
		return true
	}
	cur, ok := stageRank[s]
	if !ok {
		return false
	}
	nxt, ok := stageRank[next]
	if !ok {
		return false
	}
	return nxt > cur
}

// Session is one end-to-end generation request and its artifacts.
type Session struct {
	ID     string `gorm:"primaryKey;size:16" json:"id"`
	Prompt string `gorm:"type:text;not null" json:"prompt"`
	Stage  Stage  `gorm:"size:32;not null;default:'created';index" json:"stage"`

	// Stage artifacts
	Script        string  `gorm:"type:text" json:"script,omitempty"`
	KeywordsRaw   string  `gorm:"type:text" json:"-"`
	ScriptPath    string  `json:"-"`
	NarrationPath string  `json:"-"`
	NarrationSec  float64 `json:"narration_sec,omitempty"`
	FinalPath     string  `json:"-"`

	// Failure record, nil semantics via empty strings
	ErrorKind    string `gorm:"size:32" json:"error_kind,omitempty"`
	ErrorMessage string `gorm:"type:text" json:"error_message,omitempty"`

	CreatedAt      time.Time `json:"created_at"`
	StageUpdatedAt time.Time `gorm:"index" json:"stage_updated_at"`
}

func (Session) TableName() string {
	return "sessions"
}

// NewSessionID returns a short opaque identifier, unique enough for
// concurrent sessions (64 random bits, hex-encoded).
func NewSessionID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:8])
}

// Dir returns the session's private storage namespace under root. Every
// artifact the pipeline writes for this session lives in here.
func (s *Session) Dir(root string) string {
	return filepath.Join(root, s.ID)
}

// Failed reports whether the session ended in an error state.
func (s *Session) Failed() bool {
	return s.Stage == StageFailed
}

// Keywords decodes the stored keyword list. Returns nil when no script
// stage has run yet.
func (s *Session) Keywords() []string {
	if s.KeywordsRaw == "" {
		return nil
	}
	var kws []string
	if err := json.Unmarshal([]byte(s.KeywordsRaw), &kws); err != nil {
		return nil
	}
	return kws
}

// SetKeywords encodes the keyword list for storage.
func (s *Session) SetKeywords(kws []string) {
	b, err := json.Marshal(kws)
	if err != nil {
		return
	}
	s.KeywordsRaw = string(b)
}
