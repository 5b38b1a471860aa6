package handlers

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kocahmet1/ultrasat-progress/internal/http/response"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/apierr"
	"github.com/kocahmet1/ultrasat-progress/internal/services"
)

type ProgressHandler struct {
	progress services.ProgressService
}

func NewProgressHandler(progress services.ProgressService) *ProgressHandler {
	return &ProgressHandler{progress: progress}
}

type recordAttemptRequest struct {
	UserID        string     `json:"user_id"`
	QuestionID    string     `json:"question_id"`
	SubcategoryID string     `json:"subcategory_id"`
	ConceptIDs    []string   `json:"concept_ids"`
	IsCorrect     bool       `json:"is_correct"`
	AnsweredAt    *time.Time `json:"answered_at"`
}

// POST /api/attempts
func (h *ProgressHandler) RecordAttempt(c *gin.Context) {
	var req recordAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAppError(c, apierr.InvalidRequest(err))
		return
	}
	in := services.AttemptInput{
		UserID:        strings.TrimSpace(req.UserID),
		QuestionID:    strings.TrimSpace(req.QuestionID),
		SubcategoryID: strings.TrimSpace(req.SubcategoryID),
		ConceptIDs:    req.ConceptIDs,
		IsCorrect:     req.IsCorrect,
	}
	if req.AnsweredAt != nil {
		in.AnsweredAt = req.AnsweredAt.UTC()
	}
	row, err := h.progress.RecordAttempt(c.Request.Context(), in)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"progress": row})
}

type recordExamRequest struct {
	UserID      string     `json:"user_id"`
	ExamID      string     `json:"exam_id"`
	CompletedAt *time.Time `json:"completed_at"`
}

// POST /api/exams/progress
func (h *ProgressHandler) RecordExamProgress(c *gin.Context) {
	var req recordExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAppError(c, apierr.InvalidRequest(err))
		return
	}
	var completedAt time.Time
	if req.CompletedAt != nil {
		completedAt = req.CompletedAt.UTC()
	}
	stats, err := h.progress.RecordExamProgress(c.Request.Context(), strings.TrimSpace(req.UserID), strings.TrimSpace(req.ExamID), completedAt)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"stats": stats})
}

// GET /api/users/:user_id/stats
func (h *ProgressHandler) GetStats(c *gin.Context) {
	stats, err := h.progress.GetStats(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"stats": stats})
}

// GET /api/users/:user_id/progress
func (h *ProgressHandler) ListProgress(c *gin.Context) {
	rows, err := h.progress.ListProgress(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"progress": rows})
}

// GET /api/users/:user_id/progress/:subcategory_id
func (h *ProgressHandler) GetSubcategoryProgress(c *gin.Context) {
	row, err := h.progress.GetSubcategoryProgress(c.Request.Context(), c.Param("user_id"), c.Param("subcategory_id"))
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"progress": row})
}
