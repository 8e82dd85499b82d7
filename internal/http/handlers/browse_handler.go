package handlers

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"garagesale/internal/browse"
	"garagesale/internal/clock"
	"garagesale/internal/domain"
	"garagesale/internal/log"
	"garagesale/internal/services"
	"garagesale/internal/validate"
)

const browseCookie = "bsid"

// BrowseHandler renders the listing grid server-side. Each request runs the
// same controller a remote client would, against the session named by the
// bsid cookie.
type BrowseHandler struct {
	Store    browse.Store
	Suggest  browse.Suggester
	Catalog  *services.CatalogService
	Sessions *browse.Registry
	Clock    clock.Clock
	PageSize int
	Log      *zap.Logger
}

type option struct {
	Value    string
	Label    string
	Selected bool
}

type pageLink struct {
	N       int
	URL     string
	Current bool
}

var endsInOptions = []option{
	{Value: string(domain.EndsToday), Label: "Ends today"},
	{Value: string(domain.EndsTomorrow), Label: "Ends this week"},
	{Value: string(domain.Ends7Plus), Label: "More than 7 days"},
	{Value: string(domain.Ends30Plus), Label: "More than 30 days"},
}

func (h *BrowseHandler) Page(c *fiber.Ctx) error {
	sid, sess := h.Sessions.Acquire(c.Cookies(browseCookie))
	c.Cookie(&fiber.Cookie{Name: browseCookie, Value: sid, Path: "/", HTTPOnly: true, SameSite: "Lax"})

	f, field, ok := browseFilter(c)
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": field})
		c.Status(fiber.StatusBadRequest)
		return h.render(c, browse.Filter{}, browse.State{Err: "Invalid " + field + ". Please adjust the filters."})
	}
	if f.Search != "" {
		sess.PushRecent(f.Search)
	}

	ctx := c.UserContext()
	ctrl := browse.NewController(ctx, h.Store, h.Suggest, sess, browse.Config{
		PageSize:       h.PageSize,
		Clock:          h.Clock,
		Log:            h.Log,
		EffectsContext: context.WithoutCancel(ctx),
	})
	ctrl.SetFilter(f)
	ctrl.Settle()
	st := ctrl.State()
	if st.Err != "" {
		log.Info(c, "browse.query.fail", map[string]any{"filter": st.Request})
	}
	return h.render(c, f, st)
}

func (h *BrowseHandler) render(c *fiber.Ctx, f browse.Filter, st browse.State) error {
	ctx := c.UserContext()
	data := fiber.Map{
		"Q":        f.Search,
		"Filter":   f,
		"View":     st.View,
		"Err":      st.Err,
		"Recent":   st.Recent,
		"Home":     browse.Home(f),
		"Featured": browse.FeaturedOnly(f),
	}

	cats, err := h.Catalog.ListCategories(ctx)
	if err != nil {
		log.Error(c, "categories.list", err, nil)
	}
	catOpts := make([]option, 0, len(cats))
	for _, cat := range cats {
		catOpts = append(catOpts, option{Value: cat.Name, Label: cat.Name, Selected: cat.Name == f.Category})
	}
	data["Categories"] = catOpts

	provs, _, err := h.Catalog.ListLocations(ctx)
	if err != nil {
		log.Error(c, "locations.list", err, nil)
	}
	provOpts := make([]option, 0, len(provs))
	for _, p := range provs {
		provOpts = append(provOpts, option{Value: p.Name, Label: p.Name, Selected: strings.EqualFold(p.Name, f.Location)})
	}
	data["Provinces"] = provOpts

	ends := make([]option, len(endsInOptions))
	for i, o := range endsInOptions {
		o.Selected = o.Value == string(f.EndsIn)
		ends[i] = o
	}
	data["EndsIn"] = ends
	data["Conditions"] = []option{
		{Value: string(domain.ConditionNew), Label: "New", Selected: f.Condition == domain.ConditionNew},
		{Value: string(domain.ConditionUsed), Label: "Used", Selected: f.Condition == domain.ConditionUsed},
	}

	if fix := st.Page.Suggestion; fix != "" && !strings.EqualFold(fix, f.Search) {
		data["DidYouMean"] = fix
		data["DidYouMeanURL"] = "/browse?" + url.Values{"q": {fix}}.Encode()
	}
	if p := st.View.Pagination; p != nil {
		links := make([]pageLink, 0, len(p.Numbers))
		for _, n := range p.Numbers {
			links = append(links, pageLink{N: n, URL: browseURL(f, n), Current: n == p.Page})
		}
		data["Pages"] = links
		if p.Prev > 0 {
			data["PrevURL"] = browseURL(f, p.Prev)
		}
		if p.Next > 0 {
			data["NextURL"] = browseURL(f, p.Next)
		}
	}
	return render(c, "browse", data)
}

// browseFilter reads the browse page's query string into a filter. Prices
// go through the same digit-only staging as typed input.
func browseFilter(c *fiber.Ctx) (browse.Filter, string, bool) {
	var f browse.Filter
	if raw := c.Query("q"); strings.TrimSpace(raw) != "" {
		q, ok := validate.Q(raw)
		if !ok {
			return f, "search", false
		}
		f.SetSearch(q)
	}
	cat, ok := validate.OptionalName(c.Query("category"))
	if !ok {
		return f, "category", false
	}
	cond, ok := validate.Condition(c.Query("condition"))
	if !ok {
		return f, "condition", false
	}
	loc, ok := validate.OptionalName(c.Query("location"))
	if !ok {
		return f, "location", false
	}
	ends, ok := validate.EndsIn(c.Query("ends_in"))
	if !ok {
		return f, "ends_in", false
	}
	seller, ok := validate.OptionalID(c.Query("seller_id"))
	if !ok {
		return f, "seller_id", false
	}
	page, ok := validate.Page(c.Query("page"), 1)
	if !ok {
		return f, "page", false
	}

	f.SetCategory(cat)
	f.SetCondition(cond)
	f.SetLocation(loc)
	f.SetEndsIn(ends)
	f.SellerID = seller
	f.StagePriceMin(c.Query("price_min"))
	f.StagePriceMax(c.Query("price_max"))
	f.ApplyPrice()
	f.SetPage(page)
	return f, "", true
}

func browseURL(f browse.Filter, page int) string {
	v := url.Values{}
	set := func(k, val string) {
		if val != "" {
			v.Set(k, val)
		}
	}
	set("q", f.Search)
	set("category", f.Category)
	set("condition", string(f.Condition))
	set("location", f.Location)
	set("ends_in", string(f.EndsIn))
	set("price_min", f.PriceMin)
	set("price_max", f.PriceMax)
	if f.SellerID != 0 {
		v.Set("seller_id", strconv.FormatInt(f.SellerID, 10))
	}
	if page > 1 {
		v.Set("page", strconv.Itoa(page))
	}
	if len(v) == 0 {
		return "/browse"
	}
	return "/browse?" + v.Encode()
}
