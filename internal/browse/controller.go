package browse

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"garagesale/internal/clock"
	"garagesale/internal/domain"
)

// QueryErrorMessage is shown inline when the listing query fails.
const QueryErrorMessage = "We could not load listings. Please try again."

// State is what a browse screen draws.
type State struct {
	Filter  Filter
	Request domain.ListingFilter
	Page    domain.ListingPage
	View    View
	Loading bool
	Err     string
	Input   string
	Panel   Panel
	Recent  []string
}

type Config struct {
	PageSize int
	Clock    clock.Clock
	Log      *zap.Logger
	// OnChange, when set, receives a snapshot after every state change. It is
	// called without the controller lock held.
	OnChange func(State)
	// EffectsContext scopes view counting and featured mutations, which may
	// outlive the screen that started them. Defaults to the controller context.
	EffectsContext context.Context
}

// Controller drives one browse screen. Every filter change issues a new
// listing query; responses to superseded queries are dropped. View counting
// and featured mutations run in the background and never hold up a render.
type Controller struct {
	store    Store
	suggest  Suggester
	session  *Session
	renderer Renderer
	recalc   *Recalculator
	counters *Counters
	log      *zap.Logger
	pageSize int
	onChange func(State)
	ctx      context.Context
	fxCtx    context.Context

	mu     sync.Mutex
	filter Filter
	seq    uint64
	sugSeq uint64
	state  State

	queries sync.WaitGroup
	effects sync.WaitGroup
}

func NewController(ctx context.Context, store Store, sug Suggester, sess *Session, cfg Config) *Controller {
	if sess == nil {
		sess = NewSession()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = domain.DefaultPageSize
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.EffectsContext == nil {
		cfg.EffectsContext = ctx
	}
	log := logger(cfg.Log)
	return &Controller{
		store:    store,
		suggest:  sug,
		session:  sess,
		renderer: Renderer{PageSize: cfg.PageSize, Clock: cfg.Clock},
		recalc:   &Recalculator{Store: store, Log: log},
		counters: &Counters{Store: store, Session: sess, Log: log},
		log:      log,
		pageSize: cfg.PageSize,
		onChange: cfg.OnChange,
		ctx:      ctx,
		fxCtx:    cfg.EffectsContext,
		filter:   Filter{Page: 1},
	}
}

// State returns a snapshot of the current screen.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	s := c.state
	s.Filter = c.filter
	s.Recent = c.session.Recent()
	return s
}

// Settle waits until the screen is ready to draw: listing queries, the
// search-count re-fetch and suggestion lookups. View counting and featured
// mutations may still be running.
func (c *Controller) Settle() { c.queries.Wait() }

// Drain waits for every outstanding network call, side effects included.
func (c *Controller) Drain() {
	c.queries.Wait()
	c.effects.Wait()
}

func (c *Controller) spawn(fn func()) { run(&c.queries, fn) }

func (c *Controller) spawnEffect(fn func()) { run(&c.effects, fn) }

func run(wg *sync.WaitGroup, fn func()) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		fn()
	}()
}

func (c *Controller) emit(s State) {
	if c.onChange != nil {
		c.onChange(s)
	}
}

// Refresh re-runs the current query.
func (c *Controller) Refresh() { c.change(func(*Filter) {}) }

// SetFilter replaces the whole filter, e.g. when restoring from a URL.
func (c *Controller) SetFilter(f Filter) { c.change(func(cur *Filter) { *cur = f }) }

// Search commits a free-text term.
func (c *Controller) Search(term string) {
	c.session.PushRecent(term)
	c.change(func(f *Filter) { f.SetSearch(term) })
}

// Select applies an autocomplete pick.
func (c *Controller) Select(s domain.Suggestion) {
	if s.Type != domain.SuggestLocation && s.Type != domain.SuggestSeller {
		c.session.PushRecent(s.Text)
	}
	c.change(func(f *Filter) { f.SelectSuggestion(s) })
}

func (c *Controller) SetCategory(name string) {
	c.change(func(f *Filter) { f.SetCategory(name) })
}

func (c *Controller) SetCondition(cond domain.Condition) {
	c.change(func(f *Filter) { f.SetCondition(cond) })
}

func (c *Controller) SetLocation(name string) {
	c.change(func(f *Filter) { f.SetLocation(name) })
}

func (c *Controller) SetEndsIn(e domain.EndsIn) {
	c.change(func(f *Filter) { f.SetEndsIn(e) })
}

func (c *Controller) GoToPage(n int) {
	c.change(func(f *Filter) { f.SetPage(n) })
}

// StagePrice records typed price inputs without querying.
func (c *Controller) StagePrice(min, max string) {
	c.mu.Lock()
	c.filter.StagePriceMin(min)
	c.filter.StagePriceMax(max)
	s := c.snapshotLocked()
	c.mu.Unlock()
	c.emit(s)
}

// ApplyPrice commits the staged price range.
func (c *Controller) ApplyPrice() { c.change((*Filter).ApplyPrice) }

func (c *Controller) Reset() { c.change((*Filter).Reset) }

func (c *Controller) change(mutate func(*Filter)) {
	c.mu.Lock()
	mutate(&c.filter)
	c.seq++
	seq := c.seq
	req := c.filter.Request(c.pageSize)
	c.state.Request = req
	c.state.Loading = true
	c.state.Err = ""
	c.state.Panel = Panel{}
	s := c.snapshotLocked()
	c.mu.Unlock()

	c.emit(s)
	c.spawn(func() { c.fetch(seq, req, true) })
}

// fetch runs req and applies the result if seq is still the latest query.
func (c *Controller) fetch(seq uint64, req domain.ListingFilter, withEffects bool) {
	page, err := c.store.Query(c.ctx, req)

	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		c.log.Debug("browse.query.stale", zap.Uint64("seq", seq))
		return
	}
	if err != nil {
		if withEffects {
			c.state.Loading = false
			c.state.Err = QueryErrorMessage
		}
		s := c.snapshotLocked()
		c.mu.Unlock()
		c.log.Warn("browse.query.fail", zap.Error(err))
		c.emit(s)
		return
	}
	c.state.Page = page
	c.state.View = c.renderer.Render(page, req.Page)
	c.state.Loading = false
	c.state.Err = ""
	s := c.snapshotLocked()
	c.mu.Unlock()
	c.emit(s)

	if !withEffects {
		return
	}
	items := page.Items
	if req.FeaturedOnly && req.Page == 1 {
		c.spawnEffect(func() { c.recalc.Recalculate(c.fxCtx, items) })
	}
	c.spawnEffect(func() { c.counters.CountViews(c.fxCtx, items) })
	if !req.FeaturedOnly {
		c.spawn(func() {
			if c.counters.CountSearches(c.ctx, items) > 0 {
				c.fetch(seq, req, false)
			}
		})
	}
}

// Type updates the search box and looks up suggestions for it. Answers to
// older keystrokes are dropped.
func (c *Controller) Type(term string) {
	c.mu.Lock()
	c.sugSeq++
	seq := c.sugSeq
	c.state.Input = term
	category := c.filter.Category
	if !ShouldSuggest(term) || c.suggest == nil {
		c.state.Panel = Panel{}
		s := c.snapshotLocked()
		c.mu.Unlock()
		c.emit(s)
		return
	}
	c.mu.Unlock()

	c.spawn(func() {
		res, err := c.suggest.Suggest(c.ctx, term, category)
		if err != nil {
			c.log.Warn("browse.suggest.fail", zap.String("term", term), zap.Error(err))
		}
		c.mu.Lock()
		if seq != c.sugSeq {
			c.mu.Unlock()
			return
		}
		if err != nil {
			c.state.Panel = Panel{}
		} else {
			c.state.Panel = BuildPanel(term, res)
		}
		s := c.snapshotLocked()
		c.mu.Unlock()
		c.emit(s)
	})
}

// ClosePanel hides the autocomplete dropdown.
func (c *Controller) ClosePanel() {
	c.mu.Lock()
	c.sugSeq++
	c.state.Panel = Panel{}
	s := c.snapshotLocked()
	c.mu.Unlock()
	c.emit(s)
}
