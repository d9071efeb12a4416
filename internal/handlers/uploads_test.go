package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"freeshare/internal/mocks"
	"freeshare/internal/models"
	"freeshare/internal/storage"
)

func setupUploadRouter(uploader Uploader) *gin.Engine {
	handler := NewUploadHandler(uploader)
	return setupRouter(models.User{ID: "u1"}, func(r *gin.Engine) {
		r.POST("/api/uploads", handler.Create)
	})
}

func TestCreateUpload(t *testing.T) {
	uploader := new(mocks.UploaderMock)
	router := setupUploadRouter(uploader)

	up := storage.Upload{UploadURL: "https://s3.example/put", ImageURL: "https://cdn.example/items/a.png", Key: "items/a.png"}
	uploader.On("PresignUpload", mock.Anything, "image/png").Return(up, nil).Once()
	uploader.On("PresignUpload", mock.Anything, "text/html").Return(nil, storage.ErrUnsupportedContentType).Once()

	rec := doJSON(t, router, http.MethodPost, "/api/uploads", map[string]string{"contentType": "image/png"})
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeData[storage.Upload](t, decodeEnvelope(t, rec))
	assert.Equal(t, "items/a.png", got.Key)

	rec = doJSON(t, router, http.MethodPost, "/api/uploads", map[string]string{"contentType": "text/html"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Only image uploads are supported", decodeEnvelope(t, rec).Error)

	rec = doJSON(t, router, http.MethodPost, "/api/uploads", map[string]string{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Content type is required", decodeEnvelope(t, rec).Error)

	uploader.AssertExpectations(t)
}
