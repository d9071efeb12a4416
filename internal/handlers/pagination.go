package handlers

import (
	"github.com/gin-gonic/gin"

	"freeshare/internal/models"
)

type pageQuery struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// bindPage reads limit/offset, falling back to def for a missing or bad limit.
func bindPage(c *gin.Context, def int) (int, int, error) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return 0, 0, err
	}
	limit, offset := models.ClampPage(q.Limit, q.Offset, def)
	return limit, offset, nil
}
