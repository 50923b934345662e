package store

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shahram8708/PromptX/internal/apperr"
	"github.com/shahram8708/PromptX/models"
	"gorm.io/gorm"
)

// Store owns every mutation of the session index. The pipeline worker is the
// single writer for a given session; status queries only ever read.
type Store struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{DB: db}
}

// AutoMigrate creates the session index tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.Session{}, &models.ClipAsset{})
}

// Create validates the prompt, admits a new session, and creates its
// storage namespace.
func (s *Store) Create(prompt, storageRoot string, maxPromptChars int) (*models.Session, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, apperr.NewValidation("prompt must not be empty")
	}
	if len(prompt) > maxPromptChars {
		return nil, apperr.NewValidation(fmt.Sprintf("prompt exceeds %d characters", maxPromptChars))
	}

	now := time.Now()
	sess := &models.Session{
		ID:             models.NewSessionID(),
		Prompt:         prompt,
		Stage:          models.StageCreated,
		StageUpdatedAt: now,
	}
	if err := s.DB.Create(sess).Error; err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if err := os.MkdirAll(sess.Dir(storageRoot), 0755); err != nil {
		return nil, apperr.NewResource("create session dir", err)
	}
	return sess, nil
}

// Get loads a session by id.
func (s *Store) Get(id string) (*models.Session, error) {
	var sess models.Session
	if err := s.DB.First(&sess, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NewNotFound(fmt.Sprintf("session not found: %s", id))
		}
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	return &sess, nil
}

// Advance moves the session to the next stage. Transitions are strictly
// forward; the updated record is persisted before the stage's work starts so
// a concurrent status query always observes a consistent stage.
func (s *Store) Advance(sess *models.Session, next models.Stage) error {
	if !sess.Stage.CanAdvanceTo(next) {
		return fmt.Errorf("illegal stage transition %s -> %s for session %s", sess.Stage, next, sess.ID)
	}
	now := time.Now()
	if err := s.DB.Model(sess).Updates(map[string]interface{}{
		"stage":            next,
		"stage_updated_at": now,
	}).Error; err != nil {
		return fmt.Errorf("advance session %s: %w", sess.ID, err)
	}
	sess.Stage = next
	sess.StageUpdatedAt = now
	return nil
}

// Fail records a terminal failure with its error kind and message.
func (s *Store) Fail(sess *models.Session, err error) {
	kind := string(apperr.KindOf(err))
	now := time.Now()
	s.DB.Model(sess).Updates(map[string]interface{}{
		"stage":            models.StageFailed,
		"stage_updated_at": now,
		"error_kind":       kind,
		"error_message":    err.Error(),
	})
	sess.Stage = models.StageFailed
	sess.ErrorKind = kind
	sess.ErrorMessage = err.Error()
}

// SaveScript persists the script stage's artifacts.
func (s *Store) SaveScript(sess *models.Session, body string, keywords []string, scriptPath string) error {
	sess.Script = body
	sess.SetKeywords(keywords)
	sess.ScriptPath = scriptPath
	return s.DB.Model(sess).Updates(map[string]interface{}{
		"script":       body,
		"keywords_raw": sess.KeywordsRaw,
		"script_path":  scriptPath,
	}).Error
}

// SaveClips persists the footage stage's assets in one transaction.
func (s *Store) SaveClips(sess *models.Session, clips []models.ClipAsset) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		for i := range clips {
			clips[i].SessionID = sess.ID
			if err := tx.Create(&clips[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ClipsFor loads a session's clips in keyword order.
func (s *Store) ClipsFor(sessionID string) ([]models.ClipAsset, error) {
	var clips []models.ClipAsset
	if err := s.DB.Where("session_id = ?", sessionID).Order("position asc").Find(&clips).Error; err != nil {
		return nil, fmt.Errorf("load clips for %s: %w", sessionID, err)
	}
	return clips, nil
}

// SaveNarration persists the synthesis stage's artifact.
func (s *Store) SaveNarration(sess *models.Session, path string, durationSec float64) error {
	sess.NarrationPath = path
	sess.NarrationSec = durationSec
	return s.DB.Model(sess).Updates(map[string]interface{}{
		"narration_path": path,
		"narration_sec":  durationSec,
	}).Error
}

// SaveFinal persists the rendered artifact path.
func (s *Store) SaveFinal(sess *models.Session, path string) error {
	sess.FinalPath = path
	return s.DB.Model(sess).Update("final_path", path).Error
}

// ExpiredBefore returns sessions whose last stage update predates cutoff.
// This covers completed and failed sessions past retention as well as
// sessions abandoned mid-pipeline by a crash.
func (s *Store) ExpiredBefore(cutoff time.Time) ([]models.Session, error) {
	var sessions []models.Session
	if err := s.DB.Where("stage_updated_at < ?", cutoff).Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// Delete removes a session's record, clip rows, and storage namespace.
func (s *Store) Delete(sess *models.Session, storageRoot string) error {
	if err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sess.ID).Delete(&models.ClipAsset{}).Error; err != nil {
			return err
		}
		return tx.Delete(sess).Error
	}); err != nil {
		return fmt.Errorf("delete session %s: %w", sess.ID, err)
	}
	return os.RemoveAll(sess.Dir(storageRoot))
}
