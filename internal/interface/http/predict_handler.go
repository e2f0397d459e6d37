package http

import (
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/dermaai/internal/domain/classifier"
	"github.com/yanqian/dermaai/internal/domain/uploads"
	apperrors "github.com/yanqian/dermaai/pkg/errors"
)

type predictResponse struct {
	classifier.Result
	Image uploads.StoredImage `json:"image"`
}

// Predict stores the uploaded photo and classifies it with the kind's model.
func (h *Handler) Predict(kind classifier.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := h.requireClaims(c); !ok {
			return
		}
		fileHeader, err := c.FormFile("image")
		if err != nil {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, apperrors.CodeInvalidRequest, "No file part", err))
			return
		}
		if fileHeader.Filename == "" {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, apperrors.CodeInvalidRequest, "No selected file", nil))
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, apperrors.CodeInvalidRequest, "failed to read upload", err))
			return
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, apperrors.CodeInvalidRequest, "failed to read upload", err))
			return
		}

		ctx := c.Request.Context()
		stored, err := h.uploadSvc.Save(ctx, string(kind), fileHeader.Filename, data, fileHeader.Header.Get("Content-Type"))
		if err != nil {
			abortWithError(c, fromAppError(err, codeUploadFailed))
			return
		}

		result, err := h.classifierSvc.Classify(ctx, kind, data)
		if err != nil {
			if apperrors.IsCode(err, apperrors.CodeDecodeFailed) {
				if derr := h.uploadSvc.Discard(ctx, stored.Key); derr != nil {
					h.logger.Warn("failed to discard undecodable upload", "key", stored.Key, "error", derr)
				}
			}
			abortWithError(c, fromAppError(err, codePredictionFailed))
			return
		}
		if result.Demo {
			h.logger.Warn("demo prediction served", "kind", kind, "notice", result.Notice)
		}

		c.JSON(http.StatusOK, predictResponse{Result: result, Image: stored})
	}
}

// UploadedImage streams a previously stored photo back to the browser.
func (h *Handler) UploadedImage(c *gin.Context) {
	if _, ok := h.requireClaims(c); !ok {
		return
	}
	key := c.Param("kind") + "/" + c.Param("name")
	rc, err := h.uploadSvc.Open(c.Request.Context(), key)
	if err != nil {
		abortWithError(c, fromAppError(err, codeUploadFailed))
		return
	}
	defer rc.Close()
	c.Header("Cache-Control", "private, max-age=3600")
	c.DataFromReader(http.StatusOK, -1, contentTypeFor(c.Param("name")), rc, nil)
}

func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
