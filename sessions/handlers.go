package sessions

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/shahram8708/PromptX/internal/apperr"
	"github.com/shahram8708/PromptX/internal/config"
	"github.com/shahram8708/PromptX/models"
	"github.com/shahram8708/PromptX/store"
	"github.com/shahram8708/PromptX/tasks"
	"gorm.io/gorm"
)

// Handler exposes the generation pipeline over HTTP: start a session, poll
// its status, download the finished artifact. All real work happens in the
// queue worker.
type Handler struct {
	Store *store.Store
	Redis *redis.Client
	Cfg   *config.Config
}

func NewHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *Handler {
	return &Handler{
		Store: store.New(db),
		Redis: rdb,
		Cfg:   cfg,
	}
}

type GenerateRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// StartSession validates the prompt, admits a new session, and queues the
// first pipeline stage.
func (h *Handler) StartSession(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.Store.Create(req.Prompt, h.Cfg.StorageRoot, h.Cfg.Pipeline.Limits.MaxPromptChars)
	if err != nil {
		respondError(c, err)
		return
	}

	payload, err := tasks.Marshal(tasks.SessionTaskPayload{SessionID: sess.ID})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue session"})
		return
	}
	if err := h.Redis.LPush(c.Request.Context(), tasks.QueueScript, payload).Err(); err != nil {
		h.Store.Fail(sess, apperr.NewResource("queue script stage", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue session"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"session_id": sess.ID,
		"stage":      sess.Stage,
	})
}

// GetStatus returns the session's current stage and, for failed sessions,
// the recorded error. It never mutates the session.
func (h *Handler) GetStatus(c *gin.Context) {
	sess, err := h.Store.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{
		"session_id":       sess.ID,
		"stage":            sess.Stage,
		"created_at":       sess.CreatedAt,
		"stage_updated_at": sess.StageUpdatedAt,
	}
	if sess.Failed() {
		resp["error_kind"] = sess.ErrorKind
		resp["error_message"] = sess.ErrorMessage
	}
	c.JSON(http.StatusOK, resp)
}

// DownloadArtifact serves the final video, only once the session is done.
func (h *Handler) DownloadArtifact(c *gin.Context) {
	sess, err := h.Store.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if sess.Stage != models.StageDone || sess.FinalPath == "" {
		respondError(c, apperr.NewNotFound(fmt.Sprintf("artifact not ready for session %s (stage %s)", sess.ID, sess.Stage)))
		return
	}

	c.FileAttachment(sess.FinalPath, fmt.Sprintf("promptx_%s.mp4", sess.ID))
}

func respondError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		c.JSON(appErr.Status, gin.H{"error": appErr.Message, "kind": appErr.Kind})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
