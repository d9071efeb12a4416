package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type Category string

const (
	CategoryFurniture   Category = "furniture"
	CategoryElectronics Category = "electronics"
	CategoryClothing    Category = "clothing"
	CategoryBooks       Category = "books"
	CategoryKitchen     Category = "kitchen"
	CategoryOutdoor     Category = "outdoor"
	CategoryKids        Category = "kids"
	CategoryOther       Category = "other"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryFurniture, CategoryElectronics, CategoryClothing, CategoryBooks,
		CategoryKitchen, CategoryOutdoor, CategoryKids, CategoryOther:
		return true
	}
	return false
}

type Condition string

const (
	ConditionNew     Condition = "new"
	ConditionLikeNew Condition = "like_new"
	ConditionGood    Condition = "good"
	ConditionFair    Condition = "fair"
)

func (c Condition) Valid() bool {
	switch c {
	case ConditionNew, ConditionLikeNew, ConditionGood, ConditionFair:
		return true
	}
	return false
}

type ItemStatus string

const (
	StatusAvailable ItemStatus = "available"
	StatusPending   ItemStatus = "pending"
	StatusClaimed   ItemStatus = "claimed"
)

func (s ItemStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusPending, StatusClaimed:
		return true
	}
	return false
}

type SortOrder string

const (
	SortNewest  SortOrder = "newest"
	SortClosest SortOrder = "closest"
	SortPopular SortOrder = "popular"
)

func (s SortOrder) Valid() bool {
	switch s {
	case SortNewest, SortClosest, SortPopular:
		return true
	}
	return false
}

// StringList is stored as a JSON array in a text column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("string list: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*l = StringList{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("string list: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	*l = out
	return nil
}

// Item is a listing posted for giveaway.
type Item struct {
	ID          string       `json:"id"`
	UserID      string       `json:"userId"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Images      StringList   `json:"images"`
	Category    Category     `json:"category"`
	Condition   Condition    `json:"condition"`
	Status      ItemStatus   `json:"status"`
	LocationLat float64      `json:"locationLat"`
	LocationLng float64      `json:"locationLng"`
	City        string       `json:"city"`
	Zip         string       `json:"zip"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	User        *UserSummary `json:"user,omitempty"`
	Distance    *float64     `json:"distance,omitempty"`
	IsSaved     bool         `json:"isSaved"`
}

// ItemCreate is the body of POST /api/items.
type ItemCreate struct {
	Title       string     `json:"title" binding:"required,min=3,max=120"`
	Description string     `json:"description" binding:"required,min=10,max=5000"`
	Images      StringList `json:"images" binding:"omitempty,max=10,dive,max=2048"`
	Category    Category   `json:"category" binding:"required,category"`
	Condition   Condition  `json:"condition" binding:"required,condition"`
	LocationLat float64    `json:"locationLat" binding:"required,latitude"`
	LocationLng float64    `json:"locationLng" binding:"required,longitude"`
	City        string     `json:"city" binding:"max=120"`
	Zip         string     `json:"zip" binding:"max=20"`
}

// ItemUpdate is a partial update; nil fields are left untouched.
type ItemUpdate struct {
	Title       *string     `json:"title" binding:"omitempty,min=3,max=120"`
	Description *string     `json:"description" binding:"omitempty,min=10,max=5000"`
	Images      *StringList `json:"images" binding:"omitempty,max=10,dive,max=2048"`
	Category    *Category   `json:"category" binding:"omitempty,category"`
	Condition   *Condition  `json:"condition" binding:"omitempty,condition"`
	Status      *ItemStatus `json:"status" binding:"omitempty,status"`
	LocationLat *float64    `json:"locationLat" binding:"omitempty,latitude"`
	LocationLng *float64    `json:"locationLng" binding:"omitempty,longitude"`
	City        *string     `json:"city" binding:"omitempty,max=120"`
	Zip         *string     `json:"zip" binding:"omitempty,max=20"`
}

// ItemFilters drives the feed query.
type ItemFilters struct {
	Category    Category
	Lat         *float64
	Lng         *float64
	RadiusMiles *float64
	Search      string
	SortBy      SortOrder
	Status      ItemStatus
	UserID      string
	Limit       int
	Offset      int
}
