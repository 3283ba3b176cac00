package materialize

import "sync/atomic"

// Default size limits for attachments inlined into the template.
const (
	DefaultMaxFileSize  int64 = 64 * 1024
	DefaultMaxTotalSize int64 = 1024 * 1024
)

// Limits bounds how much template-only content is inlined.
type Limits struct {
	MaxFileSize  int64
	MaxTotalSize int64
}

// DefaultLimits returns the default per-file and cumulative limits.
func DefaultLimits() Limits {
	return Limits{MaxFileSize: DefaultMaxFileSize, MaxTotalSize: DefaultMaxTotalSize}
}

// Budget is the cumulative template-only byte counter for one run. It is
// passed explicitly to the materializer so independent runs never share it.
// Once a reservation fails the budget stays exhausted.
type Budget struct {
	limit     int64
	used      atomic.Int64
	exhausted atomic.Bool
}

// NewBudget returns a budget of limit bytes. A non-positive limit is unlimited.
func NewBudget(limit int64) *Budget {
	return &Budget{limit: limit}
}

// Reserve claims n bytes. It returns false, and marks the budget exhausted,
// when the claim would exceed the limit.
func (b *Budget) Reserve(n int64) bool {
	if b.limit <= 0 {
		b.used.Add(n)
		return true
	}
	for {
		if b.exhausted.Load() {
			return false
		}
		used := b.used.Load()
		if used+n > b.limit {
			b.exhausted.Store(true)
			return false
		}
		if b.used.CompareAndSwap(used, used+n) {
			return true
		}
	}
}

// Used returns the number of reserved bytes.
func (b *Budget) Used() int64 { return b.used.Load() }

// Exhausted reports whether a reservation has failed.
func (b *Budget) Exhausted() bool { return b.exhausted.Load() }
