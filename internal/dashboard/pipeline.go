package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"stockboard/internal/stocks"
)

// State is the pipeline's load state.
type State int

const (
	Loading State = iota
	Ready
	Error
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Error:
		return "error"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Selection is the symbol and range the user is looking at.
type Selection struct {
	Symbol string
	Range  Range
}

// Snapshot is a consistent copy of the pipeline's view.
type Snapshot struct {
	State     State
	Selection Selection
	Symbols   []string // sorted
	Labels    map[string]string
	Points    []Point
	Message   string // user-facing, set in Error
	Err       error
}

// CatalogSource supplies the stock catalog; *stocks.Service implements it.
type CatalogSource interface {
	FetchCatalog(ctx context.Context, forceRefresh bool) ([]stocks.Series, error)
}

// Ticket identifies one load started by Begin.
type Ticket struct {
	owner     *Pipeline
	gen       uint64
	mount     bool
	force     bool
	selection Selection
}

// Result is the outcome of Load, applied by Commit.
type Result struct {
	ticket    Ticket
	selection Selection
	symbols   []string
	labels    map[string]string
	points    []Point
	message   string
	err       error
}

// Err returns the load error, if any.
func (r Result) Err() error { return r.err }

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock overrides the time source used for range filtering.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// Pipeline runs the Loading/Ready/Error state machine for the dashboard.
// Each Begin bumps a generation counter; Commit drops results from older
// generations, so a slow earlier load never overwrites a later one.
type Pipeline struct {
	src           CatalogSource
	defaultSymbol string
	defaultRange  Range
	now           func() time.Time
	log           *slog.Logger

	mu        sync.Mutex
	gen       uint64
	mounted   bool
	state     State
	selection Selection
	symbols   []string
	labels    map[string]string
	points    []Point
	message   string
	err       error
}

// NewPipeline creates a pipeline in the Loading state.
func NewPipeline(src CatalogSource, defaultSymbol string, defaultRange Range, opts ...Option) *Pipeline {
	p := &Pipeline{
		src:           src,
		defaultSymbol: defaultSymbol,
		defaultRange:  defaultRange,
		now:           time.Now,
		log:           slog.Default(),
		state:         Loading,
		selection:     Selection{Symbol: defaultSymbol, Range: defaultRange},
		labels:        map[string]string{},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Mount loads the catalog, picks the default symbol and shows its view.
func (p *Pipeline) Mount(ctx context.Context) Snapshot {
	p.Commit(p.Load(ctx, p.BeginMount(false)))
	return p.Snapshot()
}

// Select switches to sel, reusing the cached catalog.
func (p *Pipeline) Select(ctx context.Context, sel Selection) Snapshot {
	p.Commit(p.Load(ctx, p.Begin(sel, false)))
	return p.Snapshot()
}

// Refresh reloads the current selection from the network. Before a
// successful mount it retries the mount instead.
func (p *Pipeline) Refresh(ctx context.Context) Snapshot {
	p.Commit(p.Load(ctx, p.BeginRefresh()))
	return p.Snapshot()
}

// BeginMount enters Loading for an initial load.
func (p *Pipeline) BeginMount(force bool) Ticket {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.beginLocked(Ticket{mount: true, force: force, selection: Selection{Range: p.defaultRange}})
}

// Reset returns the pipeline to its initial unmounted Loading state and
// invalidates every outstanding ticket.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	p.mounted = false
	p.state = Loading
	p.selection = Selection{Symbol: p.defaultSymbol, Range: p.defaultRange}
	p.symbols = nil
	p.labels = map[string]string{}
	p.points = nil
	p.message = ""
	p.err = nil
}

// Begin enters Loading for sel.
func (p *Pipeline) Begin(sel Selection, forceRefresh bool) Ticket {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.selection = sel
	return p.beginLocked(Ticket{force: forceRefresh, selection: sel})
}

// BeginRefresh enters Loading for a forced reload of the current selection.
func (p *Pipeline) BeginRefresh() Ticket {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.mounted {
		return p.beginLocked(Ticket{mount: true, force: true, selection: Selection{Range: p.selection.Range}})
	}
	return p.beginLocked(Ticket{force: true, selection: p.selection})
}

func (p *Pipeline) beginLocked(t Ticket) Ticket {
	p.gen++
	t.owner = p
	t.gen = p.gen
	p.state = Loading
	p.message = ""
	p.err = nil
	return t
}

// Load fetches and prepares the view for t. It does not change pipeline
// state and is safe to run on another goroutine.
func (p *Pipeline) Load(ctx context.Context, t Ticket) Result {
	res := Result{ticket: t, selection: t.selection}

	catalog, err := p.src.FetchCatalog(ctx, t.force)
	if err != nil {
		res.err = err
		if t.mount {
			res.message = stocks.FetchFailedMessage
		} else {
			res.message = "Failed to load data for " + t.selection.Symbol
		}
		p.log.Warn("dashboard load failed", "symbol", t.selection.Symbol, "range", t.selection.Range, "error", err)
		return res
	}

	res.labels = stocks.Labels(catalog)
	res.symbols = make([]string, 0, len(res.labels))
	for sym := range res.labels {
		res.symbols = append(res.symbols, sym)
	}
	sort.Strings(res.symbols)

	if t.mount {
		res.selection.Symbol = p.pickDefault(res.labels, res.symbols)
	}

	series, _ := stocks.Find(catalog, res.selection.Symbol)
	res.points = FilterByRange(Normalize(series.Data), res.selection.Range, p.now())
	return res
}

// pickDefault returns the configured default symbol when the catalog has it,
// else the first symbol alphabetically, else the configured default.
func (p *Pipeline) pickDefault(labels map[string]string, sorted []string) string {
	if _, ok := labels[p.defaultSymbol]; ok || len(sorted) == 0 {
		return p.defaultSymbol
	}
	return sorted[0]
}

// Commit applies r if it belongs to the latest Begin and reports whether it
// did.
func (p *Pipeline) Commit(r Result) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if r.ticket.owner != p || r.ticket.gen != p.gen {
		p.log.Debug("discarding stale dashboard load", "symbol", r.selection.Symbol, "gen", r.ticket.gen, "current", p.gen)
		return false
	}

	if r.err != nil {
		p.state = Error
		p.message = r.message
		p.err = r.err
		return true
	}

	if r.ticket.mount {
		p.mounted = true
	}
	p.state = Ready
	p.selection = r.selection
	p.symbols = r.symbols
	p.labels = r.labels
	p.points = r.points
	p.message = ""
	p.err = nil
	return true
}

// Snapshot returns a copy of the current view.
func (p *Pipeline) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	labels := make(map[string]string, len(p.labels))
	for k, v := range p.labels {
		labels[k] = v
	}
	return Snapshot{
		State:     p.state,
		Selection: p.selection,
		Symbols:   append([]string(nil), p.symbols...),
		Labels:    labels,
		Points:    append([]Point(nil), p.points...),
		Message:   p.message,
		Err:       p.err,
	}
}
