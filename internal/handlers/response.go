package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"freeshare/internal/models"
)

// Envelope is the body shape of every JSON response.
type Envelope struct {
	Success    bool               `json:"success"`
	Data       any                `json:"data,omitempty"`
	Error      string             `json:"error,omitempty"`
	Pagination *models.Pagination `json:"pagination,omitempty"`
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

func respondPage(c *gin.Context, data any, page models.Pagination) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data, Pagination: &page})
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Envelope{Success: false, Error: message})
}

// internalError logs err and writes a generic 500.
func internalError(c *gin.Context, err error, message string) {
	log.Error().
		Err(err).
		Str("request_id", requestIDFromContext(c)).
		Str("route", c.FullPath()).
		Msg(message)
	respondError(c, http.StatusInternalServerError, message)
}

// Recovery turns panics into the 500 envelope.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error().
			Interface("panic", recovered).
			Str("request_id", requestIDFromContext(c)).
			Str("path", c.Request.URL.Path).
			Msg("panic recovered")
		respondError(c, http.StatusInternalServerError, "Internal server error")
	})
}
