package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"freeshare/internal/events"
	"freeshare/internal/models"
	"freeshare/internal/observability"
	"freeshare/internal/repositories"
)

// ItemHandler serves /api/items and /api/saved.
type ItemHandler struct {
	items  repositories.ItemRepository
	events EventEmitter
}

// NewItemHandler builds an ItemHandler.
func NewItemHandler(items repositories.ItemRepository, events EventEmitter) *ItemHandler {
	return &ItemHandler{items: items, events: events}
}

type feedQuery struct {
	Category string   `form:"category" binding:"omitempty,category"`
	Lat      *float64 `form:"lat" binding:"omitempty,latitude"`
	Lng      *float64 `form:"lng" binding:"omitempty,longitude"`
	Radius   *float64 `form:"radius" binding:"omitempty,gt=0"`
	Search   string   `form:"search" binding:"max=200"`
	Sort     string   `form:"sort" binding:"omitempty,sort"`
	Status   string   `form:"status" binding:"omitempty,status"`
	UserID   string   `form:"userId"`
	Limit    int      `form:"limit"`
	Offset   int      `form:"offset"`
}

func (q feedQuery) filters() models.ItemFilters {
	limit, offset := models.ClampPage(q.Limit, q.Offset, models.DefaultPageSize)
	sort := models.SortOrder(q.Sort)
	if sort == "" {
		sort = models.SortNewest
	}
	return models.ItemFilters{
		Category:    models.Category(q.Category),
		Lat:         q.Lat,
		Lng:         q.Lng,
		RadiusMiles: q.Radius,
		Search:      q.Search,
		SortBy:      sort,
		Status:      models.ItemStatus(q.Status),
		UserID:      q.UserID,
		Limit:       limit,
		Offset:      offset,
	}
}

// List handles GET /api/items.
func (h *ItemHandler) List(c *gin.Context) {
	var q feedQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, http.StatusBadRequest, queryMessage(err))
		return
	}
	filters := q.filters()

	items, total, err := h.items.FindAll(c.Request.Context(), filters, userIDFromContext(c))
	if err != nil {
		internalError(c, err, "Failed to load items")
		return
	}
	respondPage(c, items, models.NewPagination(total, filters.Limit, filters.Offset, len(items)))
}

// Get handles GET /api/items/:id.
func (h *ItemHandler) Get(c *gin.Context) {
	item, err := h.items.FindByID(c.Request.Context(), c.Param("id"), userIDFromContext(c))
	if errors.Is(err, repositories.ErrItemNotFound) {
		respondError(c, http.StatusNotFound, "Item not found")
		return
	}
	if err != nil {
		internalError(c, err, "Failed to load item")
		return
	}
	respond(c, http.StatusOK, item)
}

// Create handles POST /api/items.
func (h *ItemHandler) Create(c *gin.Context) {
	var req models.ItemCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, validationMessage(err))
		return
	}

	item, err := h.items.Create(c.Request.Context(), userIDFromContext(c), req)
	if err != nil {
		internalError(c, err, "Failed to create item")
		return
	}

	observability.IncItemCreated(string(item.Category))
	emit(c, h.events, events.ItemCreated, events.ItemPayload{
		ItemID:   item.ID,
		Category: string(item.Category),
		Status:   string(item.Status),
	})
	respond(c, http.StatusCreated, item)
}

// Update handles PATCH /api/items/:id.
func (h *ItemHandler) Update(c *gin.Context) {
	var req models.ItemUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, validationMessage(err))
		return
	}

	item, err := h.items.Update(c.Request.Context(), c.Param("id"), userIDFromContext(c), req)
	if errors.Is(err, repositories.ErrItemNotFound) {
		respondError(c, http.StatusNotFound, "Item not found or not authorized")
		return
	}
	if err != nil {
		internalError(c, err, "Failed to update item")
		return
	}

	emit(c, h.events, events.ItemUpdated, events.ItemPayload{
		ItemID:   item.ID,
		Category: string(item.Category),
		Status:   string(item.Status),
	})
	respond(c, http.StatusOK, item)
}

// Delete handles DELETE /api/items/:id.
func (h *ItemHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	err := h.items.Delete(c.Request.Context(), id, userIDFromContext(c))
	if errors.Is(err, repositories.ErrItemNotFound) {
		respondError(c, http.StatusNotFound, "Item not found or not authorized")
		return
	}
	if err != nil {
		internalError(c, err, "Failed to delete item")
		return
	}

	emit(c, h.events, events.ItemDeleted, events.ItemPayload{ItemID: id})
	c.JSON(http.StatusOK, Envelope{Success: true})
}

// Save handles POST /api/items/:id/save.
func (h *ItemHandler) Save(c *gin.Context) {
	err := h.items.Save(c.Request.Context(), userIDFromContext(c), c.Param("id"))
	h.savedResult(c, err)
}

// Unsave handles DELETE /api/items/:id/save.
func (h *ItemHandler) Unsave(c *gin.Context) {
	err := h.items.Unsave(c.Request.Context(), userIDFromContext(c), c.Param("id"))
	h.savedResult(c, err)
}

func (h *ItemHandler) savedResult(c *gin.Context, err error) {
	if errors.Is(err, repositories.ErrItemNotFound) {
		respondError(c, http.StatusNotFound, "Item not found")
		return
	}
	if err != nil {
		internalError(c, err, "Failed to update saved items")
		return
	}
	c.JSON(http.StatusOK, Envelope{Success: true})
}

// Saved handles GET /api/saved.
func (h *ItemHandler) Saved(c *gin.Context) {
	limit, offset, err := bindPage(c, models.DefaultPageSize)
	if err != nil {
		respondError(c, http.StatusBadRequest, queryMessage(err))
		return
	}

	items, total, err := h.items.ListSaved(c.Request.Context(), userIDFromContext(c), limit, offset)
	if err != nil {
		internalError(c, err, "Failed to load saved items")
		return
	}
	respondPage(c, items, models.NewPagination(total, limit, offset, len(items)))
}
