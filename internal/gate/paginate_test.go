package gate

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeCursor serves a fixed sequence of continuation pages. failAtFetch
// makes the n-th Next call (1-indexed) fail; emptyAtFetch makes it
// return an empty page while still reporting HasNext.
type fakeCursor struct {
	pages        [][]Item
	failAtFetch  int
	failErr      error
	emptyAtFetch int
	fetches      int
	endless      bool
}

func (c *fakeCursor) HasNext() bool {
	return c.endless || c.fetches < len(c.pages)
}

func (c *fakeCursor) Next(context.Context) ([]Item, error) {
	c.fetches++
	if c.failAtFetch > 0 && c.fetches == c.failAtFetch {
		if c.failErr != nil {
			return nil, c.failErr
		}
		return nil, errors.New("page fetch failed")
	}
	if c.emptyAtFetch > 0 && c.fetches == c.emptyAtFetch {
		return nil, nil
	}
	if c.endless {
		return []Item{{"id": "endless"}}, nil
	}
	return c.pages[c.fetches-1], nil
}

func page(n, size int) []Item {
	items := make([]Item, size)
	for i := range items {
		items[i] = Item{"id": itemID(n, i)}
	}
	return items
}

func itemID(pageNum, i int) string {
	return string(rune('a'+pageNum)) + "-" + string(rune('0'+i))
}

func quickWalker(maxPages int) *Walker {
	return NewWalker(WalkerConfig{MaxPages: maxPages, InterPageDelay: 0}, nil)
}

func TestCollect_PageErrorKeepsPartialResults(t *testing.T) {
	t.Parallel()

	// Five pages of ten items; page 3 (second continuation fetch)
	// fails under a budget of three pages.
	cursor := &fakeCursor{
		pages:       [][]Item{page(2, 10), page(3, 10), page(4, 10), page(5, 10)},
		failAtFetch: 2,
	}
	got := quickWalker(3).Collect(context.Background(), Pair(page(1, 10), cursor))

	if len(got.Items) != 20 {
		t.Fatalf("got %d items, want 20 (pages 1-2 preserved)", len(got.Items))
	}
	if got.PageCount != 2 {
		t.Fatalf("page count = %d, want 2", got.PageCount)
	}
	if got.Reason != ReasonError {
		t.Fatalf("reason = %q, want %q", got.Reason, ReasonError)
	}
	var pageErr *PageError
	if !errors.As(got.Err, &pageErr) || pageErr.Page != 3 {
		t.Fatalf("expected PageError for page 3, got %v", got.Err)
	}
}

func TestCollect_CursorExhausted(t *testing.T) {
	t.Parallel()

	cursor := &fakeCursor{pages: [][]Item{page(2, 4)}}
	got := quickWalker(3).Collect(context.Background(), Pair(page(1, 4), cursor))

	if len(got.Items) != 8 {
		t.Fatalf("got %d items, want 8", len(got.Items))
	}
	if got.PageCount != 2 || got.Reason != NoMorePages {
		t.Fatalf("got page count %d reason %q, want 2 %q", got.PageCount, got.Reason, NoMorePages)
	}
	if got.Err != nil {
		t.Fatalf("unexpected error: %v", got.Err)
	}
	if got.More() {
		t.Fatal("More() must be false when the cursor is exhausted")
	}
}

func TestCollect_BudgetExhausted(t *testing.T) {
	t.Parallel()

	cursor := &fakeCursor{
		pages: [][]Item{page(2, 5), page(3, 5), page(4, 5), page(5, 5)},
	}
	got := quickWalker(3).Collect(context.Background(), Pair(page(1, 5), cursor))

	if got.PageCount != 3 || got.Reason != BudgetExhausted {
		t.Fatalf("got page count %d reason %q, want 3 %q", got.PageCount, got.Reason, BudgetExhausted)
	}
	if len(got.Items) != 15 {
		t.Fatalf("got %d items, want 15", len(got.Items))
	}
	if got.Err != nil {
		t.Fatalf("budget exhaustion must not be an error, got %v", got.Err)
	}
	if !got.More() {
		t.Fatal("More() must signal remaining pages on budget exhaustion")
	}
}

func TestCollect_NeverExceedsFetchBudget(t *testing.T) {
	t.Parallel()

	const maxPages = 5
	cursor := &fakeCursor{endless: true}
	got := quickWalker(maxPages).Collect(context.Background(), Pair(page(1, 1), cursor))

	if cursor.fetches > maxPages {
		t.Fatalf("performed %d fetches, budget is %d", cursor.fetches, maxPages)
	}
	if got.Reason != BudgetExhausted {
		t.Fatalf("reason = %q, want %q", got.Reason, BudgetExhausted)
	}
}

func TestCollect_EmptyPageStopsWalk(t *testing.T) {
	t.Parallel()

	cursor := &fakeCursor{endless: true, emptyAtFetch: 2}
	got := quickWalker(10).Collect(context.Background(), Pair(page(1, 3), cursor))

	if got.Reason != EmptyPage {
		t.Fatalf("reason = %q, want %q", got.Reason, EmptyPage)
	}
	if got.PageCount != 2 {
		t.Fatalf("page count = %d, want 2", got.PageCount)
	}
	if len(got.Items) != 4 {
		t.Fatalf("got %d items, want 4 (seed + first fetch)", len(got.Items))
	}
}

func TestCollect_InitialErrorReturnsImmediately(t *testing.T) {
	t.Parallel()

	cursor := &fakeCursor{endless: true}
	boom := errors.New("forbidden")
	got := quickWalker(10).Collect(context.Background(), Triple(page(1, 3), cursor, boom))

	if got.PageCount != 0 || len(got.Items) != 0 {
		t.Fatalf("initial error must walk zero pages, got count %d items %d", got.PageCount, len(got.Items))
	}
	if got.Reason != ReasonError || !errors.Is(got.Err, boom) {
		t.Fatalf("got reason %q err %v", got.Reason, got.Err)
	}
	if cursor.fetches != 0 {
		t.Fatalf("no fetch may follow an initial error, got %d", cursor.fetches)
	}
}

func TestCollect_BareResponseWalksNothing(t *testing.T) {
	t.Parallel()

	got := quickWalker(10).Collect(context.Background(), Normalize(Item{"id": "app1"}))

	if got.PageCount != 0 {
		t.Fatalf("page count = %d, want 0 (no cursor, nothing walked)", got.PageCount)
	}
	if got.Reason != NoMorePages {
		t.Fatalf("reason = %q, want %q", got.Reason, NoMorePages)
	}
	if len(got.Items) != 1 {
		t.Fatalf("got %d items, want the bare object", len(got.Items))
	}
}

func TestCollect_FiltersInvalidItems(t *testing.T) {
	t.Parallel()

	seed := []Item{{"id": "u1"}, nil, {}, {"id": "u2"}}
	cursor := &fakeCursor{pages: [][]Item{{nil, {"id": "u3"}, {}}}}
	got := quickWalker(5).Collect(context.Background(), Pair(seed, cursor))

	if len(got.Items) != 3 {
		t.Fatalf("got %d items, want 3 after null filtering", len(got.Items))
	}
	if got.PageCount != 2 || got.Reason != NoMorePages {
		t.Fatalf("filtering must not affect termination: count %d reason %q", got.PageCount, got.Reason)
	}
}

func TestCollect_RateLimitErrorStaysClassifiable(t *testing.T) {
	t.Parallel()

	cursor := &fakeCursor{endless: true, failAtFetch: 1, failErr: ErrRateLimited}
	got := quickWalker(5).Collect(context.Background(), Pair(page(1, 2), cursor))

	if got.Reason != ReasonError {
		t.Fatalf("reason = %q, want %q", got.Reason, ReasonError)
	}
	if !IsRateLimited(got.Err) {
		t.Fatalf("rate-limit classification lost through PageError: %v", got.Err)
	}
	if len(got.Items) != 2 {
		t.Fatalf("partial seed results lost: %d items", len(got.Items))
	}
}

func TestCollect_CanceledDuringDelay(t *testing.T) {
	t.Parallel()

	w := NewWalker(WalkerConfig{MaxPages: 5, InterPageDelay: time.Hour}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cursor := &fakeCursor{endless: true}
	got := w.Collect(ctx, Pair(page(1, 2), cursor))

	if got.Reason != ReasonError || !errors.Is(got.Err, context.Canceled) {
		t.Fatalf("abandoned walk must return partial+error, got reason %q err %v", got.Reason, got.Err)
	}
	if len(got.Items) != 2 {
		t.Fatalf("seed items lost on cancellation: %d", len(got.Items))
	}
	if cursor.fetches != 0 {
		t.Fatalf("fetch performed after cancellation: %d", cursor.fetches)
	}
}

func TestNewWalker_Defaults(t *testing.T) {
	t.Parallel()

	w := NewWalker(WalkerConfig{}, nil)
	if w.MaxPages() != DefaultWalkerConfig().MaxPages {
		t.Fatalf("MaxPages = %d, want default %d", w.MaxPages(), DefaultWalkerConfig().MaxPages)
	}
}
