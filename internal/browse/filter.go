package browse

import (
	"strconv"
	"strings"

	"garagesale/internal/domain"
)

// Filter is the buyer's current filter selection. The zero value is the home
// view. Sidebar dimensions combine with AND; the free-text term and a
// location or seller picked from suggestions are mutually exclusive.
type Filter struct {
	Search    string
	Category  string
	Condition domain.Condition
	Location  string
	EndsIn    domain.EndsIn
	SellerID  int64
	// PriceMin and PriceMax hold committed digit-only bounds; "" is unset.
	PriceMin string
	PriceMax string
	Page     int

	stagedMin string
	stagedMax string
}

// Active reports whether any filter dimension is set.
func (f Filter) Active() bool {
	return f.Search != "" ||
		f.Category != "" ||
		f.Condition != "" ||
		f.Location != "" ||
		f.EndsIn != "" ||
		f.SellerID != 0 ||
		f.PriceMin != "" ||
		f.PriceMax != ""
}

// FeaturedOnly is true exactly when no filter dimension is active.
func FeaturedOnly(f Filter) bool { return !f.Active() }

// Home reports whether f resolves to the unfiltered first page.
func Home(f Filter) bool { return FeaturedOnly(f) && f.page() == 1 }

func (f Filter) page() int {
	if f.Page < 1 {
		return 1
	}
	return f.Page
}

// SetSearch changes the free-text term. A different term resets every other
// dimension to its default.
func (f *Filter) SetSearch(term string) {
	term = strings.TrimSpace(term)
	if term == f.Search {
		return
	}
	*f = Filter{Search: term, Page: 1}
}

// SelectSuggestion applies an autocomplete pick. Location and seller picks
// clear the free-text term; anything else becomes the term.
func (f *Filter) SelectSuggestion(s domain.Suggestion) {
	switch s.Type {
	case domain.SuggestLocation:
		f.Search = ""
		f.Location = strings.TrimSpace(s.Text)
	case domain.SuggestSeller:
		f.Search = ""
		if s.SellerID > 0 {
			f.SellerID = s.SellerID
		} else if id, err := strconv.ParseInt(strings.TrimSpace(s.Text), 10, 64); err == nil && id > 0 {
			f.SellerID = id
		}
	default:
		f.SetSearch(s.Text)
	}
	f.Page = 1
}

func (f *Filter) SetCategory(name string) {
	f.Category = strings.TrimSpace(name)
	f.Page = 1
}

func (f *Filter) SetCondition(c domain.Condition) {
	f.Condition = c
	f.Page = 1
}

// SetLocation filters by a province or locality name.
func (f *Filter) SetLocation(name string) {
	f.Location = strings.TrimSpace(name)
	f.Page = 1
}

func (f *Filter) SetEndsIn(e domain.EndsIn) {
	f.EndsIn = e
	f.Page = 1
}

func (f *Filter) SetPage(n int) {
	if n < 1 {
		n = 1
	}
	f.Page = n
}

// StagePriceMin records typed input without applying it. Non-digits are dropped.
func (f *Filter) StagePriceMin(raw string) string {
	f.stagedMin = digits(raw)
	return f.stagedMin
}

func (f *Filter) StagePriceMax(raw string) string {
	f.stagedMax = digits(raw)
	return f.stagedMax
}

// Staged returns the price inputs not yet applied.
func (f Filter) Staged() (min, max string) { return f.stagedMin, f.stagedMax }

// ApplyPrice commits both staged bounds together.
func (f *Filter) ApplyPrice() {
	f.PriceMin, f.PriceMax = f.stagedMin, f.stagedMax
	f.Page = 1
}

// ClearSeller drops a seller filter picked from suggestions.
func (f *Filter) ClearSeller() {
	f.SellerID = 0
	f.Page = 1
}

// Reset returns to the home view.
func (f *Filter) Reset() { *f = Filter{Page: 1} }

// Request derives the store query for f.
func (f Filter) Request(pageSize int) domain.ListingFilter {
	if pageSize <= 0 {
		pageSize = domain.DefaultPageSize
	}
	req := domain.ListingFilter{
		Search:       f.Search,
		Category:     f.Category,
		Condition:    f.Condition,
		Location:     f.Location,
		EndsIn:       f.EndsIn,
		SellerID:     f.SellerID,
		ActiveOnly:   true,
		FeaturedOnly: FeaturedOnly(f),
		Page:         f.page(),
		PageSize:     pageSize,
	}
	req.PriceMin = parsePrice(f.PriceMin)
	req.PriceMax = parsePrice(f.PriceMax)
	return req
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func parsePrice(s string) *float64 {
	if s == "" {
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &n
}
