package models

import (
	"time"

	"github.com/google/uuid"
)

// StoreCategories is the allowed set of store/deal categories.
var StoreCategories = []string{
	"clothing", "electronics", "beauty", "convenience", "shoes",
	"grocery", "accessories", "books", "home", "sports", "other",
}

// ValidCategory reports whether c is a known category.
func ValidCategory(c string) bool {
	for _, v := range StoreCategories {
		if v == c {
			return true
		}
	}
	return false
}

// Store represents a merchant location that publishes deals.
type Store struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`

	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Website string `json:"website,omitempty"`

	Street  string  `json:"street"`
	City    string  `json:"city"`
	State   string  `json:"state"`
	ZipCode string  `json:"zip_code"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`

	LogoURL  string `json:"logo_url,omitempty"`
	CoverURL string `json:"cover_url,omitempty"`

	IsVerified       bool `json:"is_verified"`
	IsActive         bool `json:"is_active"`
	AutoApproveDeals bool `json:"auto_approve_deals"`

	RatingAverage float64 `json:"rating_average"`
	RatingCount   int     `json:"rating_count"`

	TotalViews  int64 `json:"total_views"`
	TotalClicks int64 `json:"total_clicks"`
	TotalDeals  int64 `json:"total_deals"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
