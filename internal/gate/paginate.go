package gate

import (
	"context"
	"log/slog"
	"time"

	"github.com/oktamcp/oktamcp/internal/observe"
)

// TerminalReason says why a pagination walk stopped.
type TerminalReason string

// Walk outcomes. BudgetExhausted and NoMorePages are ordinary
// completions; EmptyPage is a defensive stop against a cursor that
// reports more pages but returns none; ReasonError accompanies a
// partial result.
const (
	BudgetExhausted TerminalReason = "budget_exhausted"
	NoMorePages     TerminalReason = "no_more_pages"
	ReasonError     TerminalReason = "error"
	EmptyPage       TerminalReason = "empty_page"
)

// WalkerConfig holds the deployment-time pagination policy. None of the
// values are per-request overrides: the budget protects the shared
// upstream rate allowance from any single caller.
type WalkerConfig struct {
	// MaxPages caps how many pages one walk may retrieve.
	MaxPages int

	// InterPageDelay is slept before each continuation fetch. It is
	// deliberate backpressure against the upstream rate limit.
	InterPageDelay time.Duration
}

// DefaultWalkerConfig returns the default pagination policy.
func DefaultWalkerConfig() WalkerConfig {
	return WalkerConfig{
		MaxPages:       50,
		InterPageDelay: 200 * time.Millisecond,
	}
}

// PageSet is the immutable aggregate returned by one walk. It is owned
// by the caller and never shared across walks.
type PageSet struct {
	// Items is the flat, filtered result set accumulated so far.
	Items []Item

	// PageCount is the number of pages retrieved, counting the seed
	// page when a cursor was present.
	PageCount int

	// Reason says why the walk stopped.
	Reason TerminalReason

	// Err is non-nil when Reason is ReasonError. Items then still
	// holds everything accumulated before the failure.
	Err error
}

// More reports whether the upstream result set has pages beyond what
// this walk returned. Callers map it to a "more results available" hint.
func (p PageSet) More() bool { return p.Reason == BudgetExhausted }

// Walker drives cursors to completion under the configured budget.
// Pages within one walk are fetched strictly sequentially; independent
// walks interleave freely and compete for Admission slots through their
// cursors.
type Walker struct {
	cfg    WalkerConfig
	logger *slog.Logger
}

// NewWalker creates a walker. Zero config fields fall back to defaults;
// a negative delay is treated as zero.
func NewWalker(cfg WalkerConfig, logger *slog.Logger) *Walker {
	def := DefaultWalkerConfig()
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = def.MaxPages
	}
	if cfg.InterPageDelay < 0 {
		cfg.InterPageDelay = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Walker{cfg: cfg, logger: logger}
}

// MaxPages returns the configured page budget.
func (w *Walker) MaxPages() int { return w.cfg.MaxPages }

// Collect walks the cursor of an already-normalized initial response
// until the page budget is spent, the cursor is exhausted, or a page
// fails. An error on the initial response returns immediately with zero
// pages walked — nothing to partially return. A failing continuation
// page keeps everything accumulated before it. Collect never fails for
// ordinary pagination exhaustion.
func (w *Walker) Collect(ctx context.Context, initial Normalized) PageSet {
	set := w.collect(ctx, initial)
	if set.PageCount > 0 {
		observe.DefaultMetrics().PagesFetched.Add(ctx, int64(set.PageCount))
	}
	return set
}

func (w *Walker) collect(ctx context.Context, initial Normalized) PageSet {
	if initial.Err != nil {
		return PageSet{Reason: ReasonError, Err: initial.Err}
	}

	items := filterItems(initial.Items)
	w.logger.Debug("pagination seed",
		"raw", len(initial.Items), "valid", len(items))

	cursor := initial.Cursor
	if cursor == nil {
		return PageSet{Items: items, Reason: NoMorePages}
	}

	pages := 1
	for pages < w.cfg.MaxPages && cursor.HasNext() {
		if err := w.pause(ctx); err != nil {
			return PageSet{Items: items, PageCount: pages, Reason: ReasonError,
				Err: &PageError{Page: pages + 1, Err: err}}
		}

		raw, err := cursor.Next(ctx)
		if err != nil {
			w.logger.Warn("pagination stopped on page error",
				"page", pages+1, "accumulated", len(items), "error", err)
			return PageSet{Items: items, PageCount: pages, Reason: ReasonError,
				Err: &PageError{Page: pages + 1, Err: err}}
		}

		if len(raw) == 0 {
			// Cursor claimed more pages but produced none. Stop
			// rather than loop on a misbehaving upstream.
			w.logger.Warn("pagination stopped on empty page", "page", pages+1)
			return PageSet{Items: items, PageCount: pages, Reason: EmptyPage}
		}

		valid := filterItems(raw)
		items = append(items, valid...)
		pages++
		w.logger.Debug("pagination page",
			"page", pages, "raw", len(raw), "valid", len(valid), "total", len(items))
	}

	reason := NoMorePages
	if cursor.HasNext() {
		reason = BudgetExhausted
	}
	return PageSet{Items: items, PageCount: pages, Reason: reason}
}

// pause sleeps the inter-page delay, returning early if ctx is canceled.
func (w *Walker) pause(ctx context.Context) error {
	if w.cfg.InterPageDelay <= 0 {
		return nil
	}
	t := time.NewTimer(w.cfg.InterPageDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// filterItems drops null and structurally empty items. This is filtering
// policy, not an error: a malformed element never aborts the page.
func filterItems(raw []Item) []Item {
	out := make([]Item, 0, len(raw))
	for _, item := range raw {
		if len(item) == 0 {
			continue
		}
		out = append(out, item)
	}
	return out
}
