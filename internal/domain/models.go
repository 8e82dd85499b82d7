package domain

import (
	"strings"
	"time"
)

const (
	DefaultPageSize = 15
	MaxPageSize     = 100
	// FeaturedSlots is how many listings the home view promotes.
	FeaturedSlots = 6
)

type Condition string

const (
	ConditionNew  Condition = "New"
	ConditionUsed Condition = "Used"
)

// ParseCondition accepts the canonical names and the Spanish aliases the
// original storefront sent (Nuevo, Usado), case-insensitively.
func ParseCondition(s string) (Condition, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "new", "nuevo":
		return ConditionNew, true
	case "used", "usado":
		return ConditionUsed, true
	}
	return "", false
}

type Category struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

type Province struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

type Locality struct {
	ID           int64    `json:"id" db:"id"`
	Name         string   `json:"name" db:"name"`
	ProvinceID   int64    `json:"province_id" db:"province_id"`
	ProvinceName string   `json:"province_name,omitempty" db:"province_name"`
	Latitude     *float64 `json:"latitude,omitempty" db:"latitude"`
	Longitude    *float64 `json:"longitude,omitempty" db:"longitude"`
}

type Seller struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Contact string `json:"contact"`
}

type Listing struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Price       float64    `json:"price"`
	Condition   Condition  `json:"condition"`
	Categories  []Category `json:"categories"`
	Locality    *Locality  `json:"locality,omitempty"`
	Seller      Seller     `json:"seller"`
	Images      []string   `json:"images"`
	EndsAt      time.Time  `json:"ends_at"`
	Available   bool       `json:"available"`
	Views       int64      `json:"views"`
	Searches    int64      `json:"searches"`
	Featured    bool       `json:"featured"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Expired reports whether the listing's sale window has closed.
func (l Listing) Expired(now time.Time) bool { return now.After(l.EndsAt) }

// ListingPage is one page of a filtered listing query.
type ListingPage struct {
	Items []Listing `json:"items"`
	Total int       `json:"total"`
	// Suggestion is a spelling correction of the search term, if any.
	Suggestion string `json:"suggestion,omitempty"`
}

// NewListing is the publish payload.
type NewListing struct {
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Price         float64   `json:"price"`
	LocalityID    int64     `json:"locality_id"`
	Categories    []string  `json:"categories"`
	Condition     string    `json:"condition"`
	EndsAt        time.Time `json:"ends_at"`
	SellerName    string    `json:"seller_name"`
	SellerContact string    `json:"seller_contact"`
	Images        []string  `json:"images"`
}

type SuggestionType string

const (
	SuggestProduct  SuggestionType = "product"
	SuggestCategory SuggestionType = "category"
	SuggestLocation SuggestionType = "location"
	SuggestSeller   SuggestionType = "seller"
)

type Suggestion struct {
	Text     string         `json:"text"`
	Type     SuggestionType `json:"type"`
	Category string         `json:"category,omitempty"`
	SellerID int64          `json:"seller_id,omitempty"`
}

// SuggestionResult is the autocomplete answer. Suggestion is the "did you
// mean" correction and is null when the query needs none.
type SuggestionResult struct {
	Suggestions []Suggestion `json:"suggestions"`
	Suggestion  *string      `json:"suggestion"`
}
