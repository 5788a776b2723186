// Package cancel implements the cooperative cancellation signal shared by
// every stage of a scan: a single atomic flag, checked at well-defined
// points, safe to flip from any thread, and idempotent.
package cancel

import "sync/atomic"

// Token is a cooperative cancel signal. The zero value is a usable,
// not-yet-cancelled token.
type Token struct {
	flag atomic.Bool
}

// New returns a fresh, not-cancelled Token.
func New() *Token { return &Token{} }

// Cancel requests cancellation. Safe to call from any goroutine, any number
// of times.
func (t *Token) Cancel() {
	if t == nil {
		return
	}
	t.flag.Store(true)
}

// Cancelled reports whether Cancel has been called. A nil Token is never
// cancelled, so callers that operate without cancellation support can pass
// nil.
func (t *Token) Cancelled() bool {
	if t == nil {
		return false
	}
	return t.flag.Load()
}
