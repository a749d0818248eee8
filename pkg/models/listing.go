package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Attribute bounds shared by extraction and validation.
const (
	MinTitleLength    = 5
	MaxDescriptionLen = 500
	MaxImages         = 2

	MinPrice   = 500
	MaxPrice   = 100000
	MinYear    = 1989
	MaxYear    = 2025
	MinMileage = 1000
	MaxMileage = 500000
)

// Transmission is the gearbox type inferred from listing text.
type Transmission string

const (
	TransmissionUnknown   Transmission = "Unknown"
	TransmissionManual    Transmission = "Manual"
	TransmissionAutomatic Transmission = "Automatic"
)

// Listing represents one marketplace item that passed extraction,
// classification and filtering.
type Listing struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	Price        *int         `json:"price,omitempty"`
	Year         *int         `json:"year,omitempty"`
	Mileage      *int         `json:"mileage,omitempty"`
	Transmission Transmission `json:"transmission"`
	Images       []string     `json:"images,omitempty"`
	URL          string       `json:"url"`
	LowballPrice *int         `json:"lowball_price,omitempty"` // set after LLM evaluation
	ScrapedAt    time.Time    `json:"scraped_at"`
}

// NewListingID returns a fresh opaque listing id.
// Two discoveries of the same URL receive different ids.
func NewListingID() string {
	return "listing_" + uuid.NewString()
}

// ListingIDFromURL creates a deterministic ID from a listing URL.
// The ID is a SHA-256 hash (first 16 chars) of the URL.
func ListingIDFromURL(url string) string {
	hash := sha256.Sum256([]byte(url))
	return "listing_" + hex.EncodeToString(hash[:])[:16]
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
