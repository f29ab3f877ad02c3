package catalog

import (
	"time"
)

// Listing is a car-for-sale record.
type Listing struct {
	ID          string    `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	Title       string    `gorm:"column:title;size:255" json:"title"`
	CarModel    string    `gorm:"column:car_model;size:255" json:"car_model"`
	Year        int       `gorm:"column:year" json:"year"`
	Price       float64   `gorm:"column:price" json:"price"`
	ImageURL    string    `gorm:"column:image_url;size:512" json:"image_url"`
	Description string    `gorm:"column:description;type:text" json:"description"`
	OwnerID     string    `gorm:"column:owner_id;size:190;not null;index" json:"owner_id"`
	CreatedAt   time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

// TableName provides the explicit table binding for GORM.
func (Listing) TableName() string {
	return "listings"
}

// Comment belongs to a listing via PostID. Comments are only ever created
// or deleted, never updated.
type Comment struct {
	ID        string    `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	PostID    string    `gorm:"column:post_id;size:190;not null;index" json:"post_id"`
	UserID    string    `gorm:"column:user_id;size:190;not null" json:"user_id"`
	Text      string    `gorm:"column:text;type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

// TableName provides the explicit table binding for GORM.
func (Comment) TableName() string {
	return "comments"
}

// Like marks one user's like on one listing. At most one Like should exist
// per (post_id, user_id) pair, but that uniqueness is enforced by
// read-before-write in ToggleLike, not by a database constraint.
type Like struct {
	ID        string    `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	PostID    string    `gorm:"column:post_id;size:190;not null;index:idx_likes_post_user,priority:1" json:"post_id"`
	UserID    string    `gorm:"column:user_id;size:190;not null;index:idx_likes_post_user,priority:2" json:"user_id"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

// TableName provides the explicit table binding for GORM.
func (Like) TableName() string {
	return "likes"
}

// ListingInput carries the caller-supplied fields for a new listing.
type ListingInput struct {
	Title       string  `json:"title"`
	CarModel    string  `json:"car_model"`
	Year        int     `json:"year"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"image_url"`
	Description string  `json:"description"`
}

// ListingPatch describes a partial update; nil fields are left untouched.
type ListingPatch struct {
	Title       *string  `json:"title"`
	CarModel    *string  `json:"car_model"`
	Year        *int     `json:"year"`
	Price       *float64 `json:"price"`
	ImageURL    *string  `json:"image_url"`
	Description *string  `json:"description"`
}

func (p ListingPatch) changes() map[string]interface{} {
	updates := map[string]interface{}{}
	if p.Title != nil {
		updates["title"] = *p.Title
	}
	if p.CarModel != nil {
		updates["car_model"] = *p.CarModel
	}
	if p.Year != nil {
		updates["year"] = *p.Year
	}
	if p.Price != nil {
		updates["price"] = *p.Price
	}
	if p.ImageURL != nil {
		updates["image_url"] = *p.ImageURL
	}
	if p.Description != nil {
		updates["description"] = *p.Description
	}
	return updates
}
