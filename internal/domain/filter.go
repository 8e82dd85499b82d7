package domain

import (
	"fmt"
	"strings"
	"time"
)

// EndsIn is an expiry bucket relative to now.
type EndsIn string

const (
	EndsToday    EndsIn = "today"
	EndsTomorrow EndsIn = "tomorrow"
	Ends7Plus    EndsIn = "7+days"
	Ends30Plus   EndsIn = "30+days"
)

// ParseEndsIn accepts the bucket names and the short codes of the original
// storefront ("0", "1", "7+", "30+").
func ParseEndsIn(s string) (EndsIn, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "today", "0":
		return EndsToday, true
	case "tomorrow", "1":
		return EndsTomorrow, true
	case "7+days", "7+":
		return Ends7Plus, true
	case "30+days", "30+":
		return Ends30Plus, true
	}
	return "", false
}

// Window translates the bucket into an ends_at range: after is exclusive,
// until is inclusive. Either may be nil.
func (e EndsIn) Window(now time.Time) (after, until *time.Time) {
	day := 24 * time.Hour
	at := func(d time.Duration) *time.Time { t := now.Add(d); return &t }
	switch e {
	case EndsToday:
		return nil, at(day)
	case EndsTomorrow:
		return at(day), at(7 * day)
	case Ends7Plus:
		return at(7 * day), nil
	case Ends30Plus:
		return at(30 * day), nil
	}
	return nil, nil
}

// ListingFilter is the canonical listing query.
type ListingFilter struct {
	Search       string
	Category     string
	Condition    Condition
	Location     string // province or locality name
	LocalityID   int64
	PriceMin     *float64
	PriceMax     *float64
	EndsIn       EndsIn
	SellerID     int64
	ActiveOnly   bool
	FeaturedOnly bool
	Page         int
	PageSize     int
}

// Normalize fills defaults and rejects out-of-range values.
func (f *ListingFilter) Normalize() error {
	f.Search = strings.TrimSpace(f.Search)
	if f.Page == 0 {
		f.Page = 1
	}
	if f.PageSize == 0 {
		f.PageSize = DefaultPageSize
	}
	if f.Page < 1 {
		return fmt.Errorf("%w: page must be >= 1", ErrInvalidFilter)
	}
	if f.PageSize < 1 || f.PageSize > MaxPageSize {
		return fmt.Errorf("%w: page_size must be within 1..%d", ErrInvalidFilter, MaxPageSize)
	}
	if f.PriceMin != nil && *f.PriceMin < 0 || f.PriceMax != nil && *f.PriceMax < 0 {
		return fmt.Errorf("%w: price bounds must be non-negative", ErrInvalidFilter)
	}
	if f.PriceMin != nil && f.PriceMax != nil && *f.PriceMin > *f.PriceMax {
		return fmt.Errorf("%w: price_min exceeds price_max", ErrInvalidFilter)
	}
	return nil
}

// Offset is the row offset of the requested page.
func (f ListingFilter) Offset() int { return (f.Page - 1) * f.PageSize }

// Validate checks a publish payload.
func (n *NewListing) Validate() error {
	n.Title = strings.TrimSpace(n.Title)
	n.SellerName = strings.TrimSpace(n.SellerName)
	n.SellerContact = strings.TrimSpace(n.SellerContact)
	switch {
	case n.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidListing)
	case n.Price < 0:
		return fmt.Errorf("%w: price must be non-negative", ErrInvalidListing)
	case len(n.Categories) == 0:
		return fmt.Errorf("%w: at least one category is required", ErrInvalidListing)
	case len(n.Images) == 0:
		return fmt.Errorf("%w: at least one image is required", ErrInvalidListing)
	case n.EndsAt.IsZero():
		return fmt.Errorf("%w: ends_at is required", ErrInvalidListing)
	case n.SellerName == "" || n.SellerContact == "":
		return fmt.Errorf("%w: seller name and contact are required", ErrInvalidListing)
	case n.LocalityID <= 0:
		return fmt.Errorf("%w: locality_id is required", ErrInvalidListing)
	}
	if _, ok := ParseCondition(n.Condition); !ok {
		return fmt.Errorf("%w: condition must be New or Used", ErrInvalidListing)
	}
	for _, img := range n.Images {
		if strings.TrimSpace(img) == "" {
			return fmt.Errorf("%w: empty image reference", ErrInvalidListing)
		}
	}
	return nil
}
