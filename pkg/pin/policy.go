package pin

import "time"

// ResendPolicy decides whether a new issuance is allowed given the user's
// existing record, if any.
type ResendPolicy interface {
	// MayIssue is called with the existing record (nil when absent) and the
	// current time.
	MayIssue(existing *PinRecord, now time.Time) bool
}

// DefaultResendDebounce is the window after issuance during which a resend
// request is treated as an accidental duplicate and denied.
const DefaultResendDebounce = 3 * time.Second

// DebounceResendPolicy denies re-issuance only within a short window after
// the previous issuance, to absorb duplicate client taps. Outside the window
// a resend is always allowed, even before the old PIN expires; the new
// record supersedes the old one. Expired records never block.
type DebounceResendPolicy struct {
	Debounce time.Duration
}

func NewDebounceResendPolicy(debounce time.Duration) DebounceResendPolicy {
	return DebounceResendPolicy{Debounce: debounce}
}

// MayIssue implements ResendPolicy.
func (p DebounceResendPolicy) MayIssue(existing *PinRecord, now time.Time) bool {
	if existing == nil {
		return true
	}
	if existing.ExpiredAt(now) {
		return true
	}
	return now.Sub(existing.CreatedAt) >= p.Debounce
}
