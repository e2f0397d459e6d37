package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/dermaai/internal/domain/routine"
	apperrors "github.com/yanqian/dermaai/pkg/errors"
)

// GenerateRoutine builds a plan from the questionnaire and caches it for download.
func (h *Handler) GenerateRoutine(c *gin.Context) {
	claims, ok := h.requireClaims(c)
	if !ok {
		return
	}
	var req routine.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, apperrors.CodeInvalidRequest, errMessage(err), err))
		return
	}

	resp, err := h.routineSvc.Generate(c.Request.Context(), sessionKey(claims), req)
	if err != nil {
		abortWithError(c, fromAppError(err, codeRoutineFailed))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CurrentRoutine returns the cached plan, if any.
func (h *Handler) CurrentRoutine(c *gin.Context) {
	claims, ok := h.requireClaims(c)
	if !ok {
		return
	}
	plan, found, err := h.routineSvc.Current(c.Request.Context(), sessionKey(claims))
	if err != nil {
		abortWithError(c, fromAppError(err, codeRoutineFailed))
		return
	}
	if !found {
		abortWithError(c, NewHTTPError(http.StatusNotFound, codeRoutineNotFound, "No routine available. Please generate first.", nil))
		return
	}
	c.JSON(http.StatusOK, gin.H{"routine": plan})
}

// DownloadRoutine streams the cached plan as a PDF attachment.
func (h *Handler) DownloadRoutine(c *gin.Context) {
	claims, ok := h.requireClaims(c)
	if !ok {
		return
	}
	doc, err := h.routineSvc.Download(c.Request.Context(), sessionKey(claims))
	if err != nil {
		abortWithError(c, fromAppError(err, codeRoutineFailed))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", routine.DownloadName))
	c.Data(http.StatusOK, "application/pdf", doc)
}
