package handlers

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tutora_back_end/internal/apperr"
	"tutora_back_end/internal/middleware"
	"tutora_back_end/internal/submission"
)

const (
	MaxSubmissionFiles    = 10
	MaxSubmissionFileSize = 20 << 20
)

type submitBody struct {
	EnrollmentID string `form:"enrollment_id" json:"enrollment_id" binding:"required"`
	Text         string `form:"text" json:"text" binding:"max=50000"`
}

func submissionFiles(c *gin.Context) ([]*multipart.FileHeader, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}
	files := form.File["files"]
	if len(files) > MaxSubmissionFiles {
		return nil, apperr.Validation("trop de fichiers",
			apperr.FieldError{Field: "files", Error: fmt.Sprintf("au plus %d fichiers", MaxSubmissionFiles)})
	}
	for _, f := range files {
		if f.Size > MaxSubmissionFileSize {
			return nil, apperr.Validation("fichier trop volumineux",
				apperr.FieldError{Field: "files", Error: fmt.Sprintf("%s dépasse %d Mo", f.Filename, MaxSubmissionFileSize>>20)})
		}
	}
	return files, nil
}

// 🟢 POST /api/assignments/:id/submissions (JSON ou multipart avec "files")
func (h *Handler) Submit(c *gin.Context) {
	var body submitBody
	if err := c.ShouldBind(&body); err != nil {
		h.badRequest(c, err)
		return
	}
	files, err := submissionFiles(c)
	if err != nil {
		if apperr.KindOf(err) != apperr.KindUnknown {
			h.respondError(c, err)
		} else {
			h.badRequest(c, err)
		}
		return
	}

	user := middleware.CurrentUser(c)
	assignmentID := c.Param("id")
	ctx := c.Request.Context()

	// refus avant tout téléversement
	if _, err := h.submissions.Admissible(ctx, assignmentID, body.EnrollmentID, user.ID); err != nil {
		h.respondError(c, err)
		return
	}

	keys := make([]string, 0, len(files))
	for _, f := range files {
		key, err := h.files.Upload(ctx, assignmentID, user.ID, f)
		if err != nil {
			h.removeFiles(ctx, keys)
			h.respondError(c, apperr.Storage(err, "téléversement du fichier"))
			return
		}
		keys = append(keys, key)
	}

	sub, err := h.submissions.Submit(ctx, submission.SubmitRequest{
		AssignmentID: assignmentID,
		EnrollmentID: body.EnrollmentID,
		UserID:       user.ID,
		Text:         body.Text,
		Files:        keys,
	})
	if err != nil {
		// la remise concurrente a gagné : ses fichiers à elle restent, pas les nôtres
		h.removeFiles(ctx, keys)
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (h *Handler) removeFiles(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := h.files.Remove(context.WithoutCancel(ctx), key); err != nil {
			h.log.Warn("⚠️ fichier orphelin", zap.String("key", key), zap.Error(err))
		}
	}
}

// 🔐 GET /api/admin/submissions/:id
func (h *Handler) GetSubmission(c *gin.Context) {
	sub, err := h.submissions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// 🔐 POST /api/admin/submissions/:id/resubmit
func (h *Handler) RequestResubmission(c *gin.Context) {
	sub, err := h.submissions.RequestResubmission(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

type gradeBody struct {
	Score    *float64 `json:"score" binding:"required"`
	Feedback string   `json:"feedback" binding:"max=10000"`
}

// 🔐 POST /api/admin/submissions/:id/grade
func (h *Handler) Grade(c *gin.Context) {
	var body gradeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, err)
		return
	}
	sub, err := h.submissions.Grade(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), *body.Score, body.Feedback)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}
