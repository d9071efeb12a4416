package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"freeshare/internal/storage"
)

// Uploader issues presigned image upload URLs.
type Uploader interface {
	PresignUpload(ctx context.Context, contentType string) (storage.Upload, error)
}

// UploadHandler serves /api/uploads.
type UploadHandler struct {
	uploader Uploader
}

// NewUploadHandler builds an UploadHandler.
func NewUploadHandler(uploader Uploader) *UploadHandler {
	return &UploadHandler{uploader: uploader}
}

type uploadRequest struct {
	ContentType string `json:"contentType" binding:"required,max=100"`
}

// Create handles POST /api/uploads.
func (h *UploadHandler) Create(c *gin.Context) {
	var req uploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, validationMessage(err))
		return
	}

	upload, err := h.uploader.PresignUpload(c.Request.Context(), req.ContentType)
	if errors.Is(err, storage.ErrUnsupportedContentType) {
		respondError(c, http.StatusBadRequest, "Only image uploads are supported")
		return
	}
	if err != nil {
		internalError(c, err, "Failed to prepare upload")
		return
	}
	respond(c, http.StatusOK, upload)
}
