package browse

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"garagesale/internal/clock"
	"garagesale/internal/domain"
)

// Card is a listing as shown in the result grid.
type Card struct {
	ID        int64
	Title     string
	Price     string
	Free      bool
	Condition string
	Image     string
	Location  string
	TimeLeft  string
	Expired   bool
	Featured  bool
	Views     int64
	Searches  int64
	Seller    string
	SellerID  int64
}

// Pagination is present only when the results span more than one page.
type Pagination struct {
	Page    int
	Pages   int
	Prev    int // 0 when on the first page
	Next    int // 0 when on the last page
	Numbers []int
}

type View struct {
	Cards      []Card
	Total      int
	Pagination *Pagination
	// Empty is set when the query matched nothing.
	Empty bool
}

// Renderer turns store pages into views. Prices use Argentine grouping.
type Renderer struct {
	PageSize int
	Clock    clock.Clock
}

var pricePrinter = message.NewPrinter(language.MustParse("es-AR"))

func (r Renderer) Render(page domain.ListingPage, current int) View {
	clk := r.Clock
	if clk == nil {
		clk = clock.New()
	}
	now := clk.Now()
	size := r.PageSize
	if size <= 0 {
		size = domain.DefaultPageSize
	}
	v := View{Cards: make([]Card, 0, len(page.Items)), Total: page.Total, Empty: len(page.Items) == 0}
	for _, l := range page.Items {
		v.Cards = append(v.Cards, card(l, now))
	}
	v.Pagination = paginate(page.Total, size, current)
	return v
}

func card(l domain.Listing, now time.Time) Card {
	c := Card{
		ID:        l.ID,
		Title:     l.Title,
		Price:     PriceLabel(l.Price),
		Free:      l.Price == 0,
		Condition: string(l.Condition),
		Location:  LocationLabel(l.Locality),
		TimeLeft:  TimeLeft(l.EndsAt, now),
		Expired:   l.Expired(now),
		Featured:  l.Featured,
		Views:     l.Views,
		Searches:  l.Searches,
		Seller:    l.Seller.Name,
		SellerID:  l.Seller.ID,
	}
	if len(l.Images) > 0 {
		c.Image = l.Images[0]
	}
	return c
}

func paginate(total, size, current int) *Pagination {
	if total <= size {
		return nil
	}
	pages := (total + size - 1) / size
	if current < 1 {
		current = 1
	}
	if current > pages {
		current = pages
	}
	p := &Pagination{Page: current, Pages: pages}
	if current > 1 {
		p.Prev = current - 1
	}
	if current < pages {
		p.Next = current + 1
	}
	for i := 1; i <= pages; i++ {
		p.Numbers = append(p.Numbers, i)
	}
	return p
}

// PriceLabel formats a price; zero is "Free".
func PriceLabel(p float64) string {
	if p == 0 {
		return "Free"
	}
	return pricePrinter.Sprintf("$ %v", number.Decimal(p, number.MaxFractionDigits(2)))
}

// LocationLabel renders "Locality, Province", or whichever part is known.
func LocationLabel(l *domain.Locality) string {
	switch {
	case l == nil:
		return ""
	case l.ProvinceName == "":
		return l.Name
	case l.Name == "":
		return l.ProvinceName
	}
	return l.Name + ", " + l.ProvinceName
}

// TimeLeft is the remaining sale window: "3d 4h left", "5h 12m left",
// "12m left" or "ended".
func TimeLeft(endsAt, now time.Time) string {
	d := endsAt.Sub(now)
	if d <= 0 {
		return "ended"
	}
	days := int(d / (24 * time.Hour))
	hours := int(d % (24 * time.Hour) / time.Hour)
	mins := int(d % time.Hour / time.Minute)
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh left", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm left", hours, mins)
	case mins > 0:
		return fmt.Sprintf("%dm left", mins)
	}
	return "<1m left"
}
