package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"freeshare/internal/models"
)

var ErrItemNotFound = errors.New("item not found")

// MilesPerDegree is the flat approximation used for feed distances.
const MilesPerDegree = 69.0

// ItemRepository abstracts listing persistence.
type ItemRepository interface {
	FindByID(ctx context.Context, id, currentUserID string) (models.Item, error)
	FindAll(ctx context.Context, filters models.ItemFilters, currentUserID string) ([]models.Item, int, error)
	Create(ctx context.Context, userID string, in models.ItemCreate) (models.Item, error)
	Update(ctx context.Context, id, userID string, in models.ItemUpdate) (models.Item, error)
	Delete(ctx context.Context, id, userID string) error
	Save(ctx context.Context, userID, itemID string) error
	Unsave(ctx context.Context, userID, itemID string) error
	ListSaved(ctx context.Context, userID string, limit, offset int) ([]models.Item, int, error)
	Exists(ctx context.Context, id string) (bool, error)
}

// ItemRepo is a sqlx implementation of ItemRepository.
type ItemRepo struct {
	db  *sqlx.DB
	now Clock
}

// NewItemRepo constructs an ItemRepo.
func NewItemRepo(db *sqlx.DB) *ItemRepo {
	return &ItemRepo{db: db, now: systemClock}
}

type itemRow struct {
	ID          string            `db:"id"`
	UserID      string            `db:"user_id"`
	Title       string            `db:"title"`
	Description string            `db:"description"`
	Images      models.StringList `db:"images"`
	Category    models.Category   `db:"category"`
	Condition   models.Condition  `db:"condition"`
	Status      models.ItemStatus `db:"status"`
	LocationLat float64           `db:"location_lat"`
	LocationLng float64           `db:"location_lng"`
	City        string            `db:"city"`
	Zip         string            `db:"zip"`
	CreatedAt   time.Time         `db:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at"`
	OwnerName   sql.NullString    `db:"owner_name"`
	OwnerAvatar *string           `db:"owner_avatar"`
	IsSaved     bool              `db:"is_saved"`
	DistanceSq  *float64          `db:"distance_sq"`
}

func (r itemRow) toModel() models.Item {
	item := models.Item{
		ID:          r.ID,
		UserID:      r.UserID,
		Title:       r.Title,
		Description: r.Description,
		Images:      r.Images,
		Category:    r.Category,
		Condition:   r.Condition,
		Status:      r.Status,
		LocationLat: r.LocationLat,
		LocationLng: r.LocationLng,
		City:        r.City,
		Zip:         r.Zip,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		IsSaved:     r.IsSaved,
	}
	if item.Images == nil {
		item.Images = models.StringList{}
	}
	if r.OwnerName.Valid {
		item.User = &models.UserSummary{ID: r.UserID, Name: r.OwnerName.String, Avatar: r.OwnerAvatar}
	}
	if r.DistanceSq != nil {
		miles := math.Sqrt(*r.DistanceSq) * MilesPerDegree
		item.Distance = &miles
	}
	return item
}

const itemColumns = `i.id, i.user_id, i.title, i.description, i.images, i.category, i.condition,
	i.status, i.location_lat, i.location_lng, i.city, i.zip, i.created_at, i.updated_at,
	u.name AS owner_name, u.avatar AS owner_avatar,
	EXISTS (SELECT 1 FROM saved_items s WHERE s.item_id = i.id AND s.user_id = ?) AS is_saved`

const degreeDistanceSq = `((i.location_lat - ?) * (i.location_lat - ?) + (i.location_lng - ?) * (i.location_lng - ?))`

// FindByID fetches one item with its owner and the caller's saved flag.
func (r *ItemRepo) FindByID(ctx context.Context, id, currentUserID string) (models.Item, error) {
	var row itemRow
	query := r.db.Rebind(`SELECT ` + itemColumns + `, NULL AS distance_sq
		FROM items i JOIN users u ON u.id = i.user_id
		WHERE i.id = ?`)
	err := r.db.GetContext(ctx, &row, query, currentUserID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Item{}, ErrItemNotFound
	}
	if err != nil {
		return models.Item{}, fmt.Errorf("find item: %w", err)
	}
	return row.toModel(), nil
}

// FindAll runs the feed query and returns one page plus the total match count.
func (r *ItemRepo) FindAll(ctx context.Context, f models.ItemFilters, currentUserID string) ([]models.Item, int, error) {
	var where []string
	var whereArgs []any

	switch {
	case f.Status != "":
		where = append(where, "i.status = ?")
		whereArgs = append(whereArgs, f.Status)
	case f.UserID != "" && f.UserID == currentUserID:
		// owners see every status of their own listings
	default:
		where = append(where, "i.status = ?")
		whereArgs = append(whereArgs, models.StatusAvailable)
	}
	if f.Category != "" {
		where = append(where, "i.category = ?")
		whereArgs = append(whereArgs, f.Category)
	}
	if f.UserID != "" {
		where = append(where, "i.user_id = ?")
		whereArgs = append(whereArgs, f.UserID)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := "%" + strings.ToLower(s) + "%"
		where = append(where, "(LOWER(i.title) LIKE ? OR LOWER(i.description) LIKE ?)")
		whereArgs = append(whereArgs, pattern, pattern)
	}

	hasPoint := f.Lat != nil && f.Lng != nil
	var pointArgs []any
	if hasPoint {
		pointArgs = []any{*f.Lat, *f.Lat, *f.Lng, *f.Lng}
		if f.RadiusMiles != nil && *f.RadiusMiles > 0 {
			deg := *f.RadiusMiles / MilesPerDegree
			where = append(where, degreeDistanceSq+" <= ?")
			whereArgs = append(whereArgs, append(append([]any{}, pointArgs...), deg*deg)...)
		}
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	countQuery := r.db.Rebind(`SELECT COUNT(*) FROM items i` + whereSQL)
	if err := r.db.GetContext(ctx, &total, countQuery, whereArgs...); err != nil {
		return nil, 0, fmt.Errorf("count items: %w", err)
	}

	args := []any{currentUserID}
	distanceSQL := "NULL"
	if hasPoint {
		distanceSQL = degreeDistanceSq
		args = append(args, pointArgs...)
	}
	args = append(args, whereArgs...)

	var orderSQL string
	switch {
	case f.SortBy == models.SortClosest && hasPoint:
		orderSQL = "distance_sq ASC, i.created_at DESC"
	case f.SortBy == models.SortPopular:
		orderSQL = "(SELECT COUNT(*) FROM saved_items sp WHERE sp.item_id = i.id) DESC, i.created_at DESC"
	default:
		orderSQL = "i.created_at DESC"
	}

	limit, offset := models.ClampPage(f.Limit, f.Offset, models.DefaultPageSize)
	args = append(args, limit, offset)

	query := r.db.Rebind(`SELECT ` + itemColumns + `, ` + distanceSQL + ` AS distance_sq
		FROM items i JOIN users u ON u.id = i.user_id` + whereSQL + `
		ORDER BY ` + orderSQL + ` LIMIT ? OFFSET ?`)

	var rows []itemRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list items: %w", err)
	}
	return toItems(rows), total, nil
}

// Create inserts a listing owned by userID with status available.
func (r *ItemRepo) Create(ctx context.Context, userID string, in models.ItemCreate) (models.Item, error) {
	id := newID()
	now := r.now()
	images := in.Images
	if images == nil {
		images = models.StringList{}
	}
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`INSERT INTO items
		(id, user_id, title, description, images, category, condition, status,
		 location_lat, location_lng, city, zip, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		id, userID, in.Title, in.Description, images, in.Category, in.Condition, models.StatusAvailable,
		in.LocationLat, in.LocationLng, in.City, in.Zip, now, now)
	if err != nil {
		return models.Item{}, fmt.Errorf("create item: %w", err)
	}
	return r.FindByID(ctx, id, userID)
}

// Update applies the non-nil fields of in. Callers that do not own the item
// get ErrItemNotFound.
func (r *ItemRepo) Update(ctx context.Context, id, userID string, in models.ItemUpdate) (models.Item, error) {
	sets := []string{"updated_at = ?"}
	args := []any{r.now()}
	add := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	if in.Title != nil {
		add("title", *in.Title)
	}
	if in.Description != nil {
		add("description", *in.Description)
	}
	if in.Images != nil {
		add("images", *in.Images)
	}
	if in.Category != nil {
		add("category", *in.Category)
	}
	if in.Condition != nil {
		add("condition", *in.Condition)
	}
	if in.Status != nil {
		add("status", *in.Status)
	}
	if in.LocationLat != nil {
		add("location_lat", *in.LocationLat)
	}
	if in.LocationLng != nil {
		add("location_lng", *in.LocationLng)
	}
	if in.City != nil {
		add("city", *in.City)
	}
	if in.Zip != nil {
		add("zip", *in.Zip)
	}
	args = append(args, id, userID)

	query := r.db.Rebind(`UPDATE items SET ` + strings.Join(sets, ", ") + ` WHERE id = ? AND user_id = ?`)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return models.Item{}, fmt.Errorf("update item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.Item{}, fmt.Errorf("update item: %w", err)
	}
	if n == 0 {
		return models.Item{}, ErrItemNotFound
	}
	return r.FindByID(ctx, id, userID)
}

// Delete removes an owned item; saves, conversations and messages cascade.
func (r *ItemRepo) Delete(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM items WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if n == 0 {
		return ErrItemNotFound
	}
	return nil
}

// Save bookmarks an item. Saving twice is a no-op.
func (r *ItemRepo) Save(ctx context.Context, userID, itemID string) error {
	ok, err := r.Exists(ctx, itemID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrItemNotFound
	}
	_, err = r.db.ExecContext(ctx, r.db.Rebind(`INSERT INTO saved_items (id, user_id, item_id, created_at)
		VALUES (?, ?, ?, ?) ON CONFLICT (user_id, item_id) DO NOTHING`),
		newID(), userID, itemID, r.now())
	if err != nil {
		return fmt.Errorf("save item: %w", err)
	}
	return nil
}

// Unsave removes a bookmark. Removing a missing bookmark is a no-op, but the
// item itself must exist.
func (r *ItemRepo) Unsave(ctx context.Context, userID, itemID string) error {
	ok, err := r.Exists(ctx, itemID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrItemNotFound
	}
	_, err = r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM saved_items WHERE user_id = ? AND item_id = ?`), userID, itemID)
	if err != nil {
		return fmt.Errorf("unsave item: %w", err)
	}
	return nil
}

// ListSaved returns the user's bookmarks, most recently saved first.
func (r *ItemRepo) ListSaved(ctx context.Context, userID string, limit, offset int) ([]models.Item, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind(`SELECT COUNT(*) FROM saved_items WHERE user_id = ?`), userID); err != nil {
		return nil, 0, fmt.Errorf("count saved items: %w", err)
	}

	limit, offset = models.ClampPage(limit, offset, models.DefaultPageSize)
	query := r.db.Rebind(`SELECT ` + itemColumns + `, NULL AS distance_sq
		FROM saved_items sv
		JOIN items i ON i.id = sv.item_id
		JOIN users u ON u.id = i.user_id
		WHERE sv.user_id = ?
		ORDER BY sv.created_at DESC
		LIMIT ? OFFSET ?`)

	var rows []itemRow
	if err := r.db.SelectContext(ctx, &rows, query, userID, userID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("list saved items: %w", err)
	}
	return toItems(rows), total, nil
}

// Exists reports whether an item with id exists.
func (r *ItemRepo) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, r.db.Rebind(`SELECT EXISTS (SELECT 1 FROM items WHERE id = ?)`), id)
	if err != nil {
		return false, fmt.Errorf("item exists: %w", err)
	}
	return exists, nil
}

func toItems(rows []itemRow) []models.Item {
	items := make([]models.Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toModel())
	}
	return items
}
