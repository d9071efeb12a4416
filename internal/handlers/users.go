package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"freeshare/internal/models"
	"freeshare/internal/repositories"
)

// UserHandler serves /api/users.
type UserHandler struct {
	users repositories.UserRepository
	items repositories.ItemRepository
}

// NewUserHandler builds a UserHandler.
func NewUserHandler(users repositories.UserRepository, items repositories.ItemRepository) *UserHandler {
	return &UserHandler{users: users, items: items}
}

// Get handles GET /api/users/:id. Only the owner sees the email address.
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.users.FindByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repositories.ErrUserNotFound) {
		respondError(c, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		internalError(c, err, "Failed to load user")
		return
	}

	if user.ID != userIDFromContext(c) {
		respond(c, http.StatusOK, user.Public())
		return
	}
	respond(c, http.StatusOK, user)
}

// UpdateMe handles PATCH /api/users/me.
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req models.UserUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, validationMessage(err))
		return
	}

	updated, err := h.users.Update(c.Request.Context(), userIDFromContext(c), req)
	if errors.Is(err, repositories.ErrUserNotFound) {
		respondError(c, http.StatusBadRequest, "Failed to update profile")
		return
	}
	if err != nil {
		internalError(c, err, "Failed to update profile")
		return
	}
	respond(c, http.StatusOK, updated)
}

// Items handles GET /api/users/:id/items.
func (h *UserHandler) Items(c *gin.Context) {
	limit, offset, err := bindPage(c, models.DefaultPageSize)
	if err != nil {
		respondError(c, http.StatusBadRequest, queryMessage(err))
		return
	}

	items, total, err := h.items.FindAll(c.Request.Context(), models.ItemFilters{
		UserID: c.Param("id"),
		Limit:  limit,
		Offset: offset,
	}, userIDFromContext(c))
	if err != nil {
		internalError(c, err, "Failed to load items")
		return
	}
	respondPage(c, items, models.NewPagination(total, limit, offset, len(items)))
}
