// Package client talks to a garagesale server over its JSON API. It
// satisfies browse.Store and browse.Suggester.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"garagesale/internal/domain"
)

const defaultTimeout = 5 * time.Second

type Client struct {
	base    string
	timeout time.Duration
}

// New returns a client for the server at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), timeout: timeout}
}

// CategoryOption is one entry of GET /categories.
type CategoryOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type Locations struct {
	Provinces  []domain.Province `json:"provinces"`
	Localities []domain.Locality `json:"localities"`
}

// StatusError is a non-2xx answer that maps to no domain error.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string { return fmt.Sprintf("server returned %d: %s", e.Code, e.Message) }

func (c *Client) Query(ctx context.Context, f domain.ListingFilter) (domain.ListingPage, error) {
	var page domain.ListingPage
	a := fiber.Get(c.base + "/products/").QueryString(filterQuery(f).Encode())
	err := c.do(ctx, a, &page)
	return page, err
}

func (c *Client) Get(ctx context.Context, id int64) (domain.Listing, error) {
	var l domain.Listing
	err := c.do(ctx, fiber.Get(c.productURL(id, "")), &l)
	return l, err
}

func (c *Client) IncrementView(ctx context.Context, id int64) error {
	return c.do(ctx, fiber.Post(c.productURL(id, "/view")), nil)
}

func (c *Client) IncrementSearch(ctx context.Context, id int64) error {
	return c.do(ctx, fiber.Post(c.productURL(id, "/search")), nil)
}

func (c *Client) SetFeatured(ctx context.Context, id int64, featured bool) error {
	return c.do(ctx, fiber.Post(c.productURL(id, "/featured")).JSON(featured), nil)
}

// Suggest asks for autocomplete candidates. Callers should not send terms
// shorter than two characters; the server answers those with an empty list.
func (c *Client) Suggest(ctx context.Context, query, category string) (domain.SuggestionResult, error) {
	q := url.Values{"query": {query}}
	if category != "" {
		q.Set("category", category)
	}
	var res domain.SuggestionResult
	err := c.do(ctx, fiber.Get(c.base+"/search/suggestions").QueryString(q.Encode()), &res)
	return res, err
}

func (c *Client) Categories(ctx context.Context) ([]CategoryOption, error) {
	var out struct {
		Categories []CategoryOption `json:"categories"`
	}
	err := c.do(ctx, fiber.Get(c.base+"/categories"), &out)
	return out.Categories, err
}

func (c *Client) Locations(ctx context.Context) (Locations, error) {
	var out Locations
	err := c.do(ctx, fiber.Get(c.base+"/locations"), &out)
	return out, err
}

func (c *Client) productURL(id int64, suffix string) string {
	return c.base + "/products/" + strconv.FormatInt(id, 10) + suffix
}

// do sends the request and decodes a 2xx body into out. fiber agents have no
// context support, so the context only bounds the timeout and short-circuits
// cancelled calls.
func (c *Client) do(ctx context.Context, a *fiber.Agent, out any) error {
	if err := ctx.Err(); err != nil {
		fiber.ReleaseAgent(a)
		return err
	}
	timeout := c.timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}
	code, body, errs := a.Timeout(timeout).Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("request failed: %w", errs[0])
	}
	if code >= 300 {
		return statusError(code, body)
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func statusError(code int, body []byte) error {
	var payload struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(body, &payload)
	switch code {
	case fiber.StatusNotFound:
		return domain.ErrNotFound
	case fiber.StatusBadRequest:
		return fmt.Errorf("%w: %s", domain.ErrInvalidFilter, payload.Error)
	}
	return &StatusError{Code: code, Message: payload.Error}
}

func filterQuery(f domain.ListingFilter) url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	price := func(p *float64) string {
		if p == nil {
			return ""
		}
		return strconv.FormatFloat(*p, 'f', -1, 64)
	}
	id := func(n int64) string {
		if n == 0 {
			return ""
		}
		return strconv.FormatInt(n, 10)
	}
	set("search", f.Search)
	set("category", f.Category)
	set("condition", string(f.Condition))
	set("location", f.Location)
	set("locality", id(f.LocalityID))
	set("price_min", price(f.PriceMin))
	set("price_max", price(f.PriceMax))
	set("ends_in", string(f.EndsIn))
	set("seller_id", id(f.SellerID))
	q.Set("active_only", strconv.FormatBool(f.ActiveOnly))
	if f.FeaturedOnly {
		q.Set("featured_only", "true")
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(f.PageSize))
	}
	return q
}
