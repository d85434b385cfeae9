package gate

import "context"

// Item is one element of an upstream result page, decoded as a generic
// JSON object. The gate never interprets resource-specific fields.
type Item = map[string]any

// Cursor is an opaque, forward-only handle onto the remaining pages of a
// result set. It does not support rewinding or random access, and a
// single cursor must never be advanced concurrently: upstream cursors
// are stateful.
type Cursor interface {
	// HasNext reports whether another page is available.
	HasNext() bool

	// Next fetches the next page. Implementations route the fetch
	// through the shared Admission gate.
	Next(ctx context.Context) ([]Item, error)
}

// CursorCarrier is implemented by bare upstream values that expose their
// own continuation cursor.
type CursorCarrier interface {
	PageCursor() Cursor
}

// Normalized is the canonical (items, cursor, error) triple every
// consumer relies on. When Err is non-nil, Items and Cursor must not be
// trusted for further pagination.
type Normalized struct {
	Items  []Item
	Cursor Cursor
	Err    error
}

// Triple builds a Normalized from an upstream value already in
// (items, cursor, error) form.
func Triple(items []Item, cursor Cursor, err error) Normalized {
	return Normalized{Items: items, Cursor: cursor, Err: err}
}

// Pair builds a Normalized from an (items, cursor) value with an
// implicit nil error.
func Pair(items []Item, cursor Cursor) Normalized {
	return Normalized{Items: items, Cursor: cursor}
}

// Bare builds a Normalized from a single result object. The object
// itself becomes the only item and there is nothing left to paginate.
func Bare(item Item) Normalized {
	return Normalized{Items: []Item{item}}
}

// Fail builds a Normalized carrying only an error.
func Fail(err error) Normalized {
	return Normalized{Err: err}
}

// Normalize maps any upstream response value to a well-formed
// Normalized. It is total: every input produces a result and it never
// panics, so it is safe to call redundantly. The known shapes are:
//
//   - Normalized: returned as-is.
//   - []any of length 3: (items, cursor, error), trusting upstream order.
//   - []any of length 2: (items, cursor) with a nil error.
//   - nil: no results — (nil, nil, nil), which callers must treat as
//     an empty page, not an error.
//   - anything else: a single bare item. A tuple-like value of any other
//     arity is reported as a ShapeError instead; this is a warning-level
//     anomaly, not a hard failure.
func Normalize(v any) Normalized {
	switch r := v.(type) {
	case nil:
		return Normalized{}
	case Normalized:
		return r
	case []any:
		switch len(r) {
		case 3:
			return Triple(coerceItems(r[0]), coerceCursor(r[1]), coerceError(r[2]))
		case 2:
			return Pair(coerceItems(r[0]), coerceCursor(r[1]))
		default:
			return Fail(&ShapeError{Elements: len(r)})
		}
	case []Item:
		return Pair(r, nil)
	case Item:
		return Bare(r)
	case error:
		return Fail(r)
	default:
		// Best-effort fallback: treat an unknown scalar as one bare
		// item. The original upstream contract never promises this
		// shape, so the wrapping is deliberately lossless.
		n := Normalized{Items: []Item{{"value": r}}}
		if c, ok := r.(CursorCarrier); ok {
			n.Cursor = c.PageCursor()
		}
		return n
	}
}

func coerceItems(v any) []Item {
	switch items := v.(type) {
	case nil:
		return nil
	case []Item:
		return items
	case []any:
		out := make([]Item, 0, len(items))
		for _, e := range items {
			if item, ok := e.(Item); ok {
				out = append(out, item)
			} else {
				out = append(out, nil) // filtered later by the walker
			}
		}
		return out
	case Item:
		return []Item{items}
	default:
		return []Item{{"value": v}}
	}
}

func coerceCursor(v any) Cursor {
	if c, ok := v.(Cursor); ok {
		return c
	}
	return nil
}

func coerceError(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return nil
}
