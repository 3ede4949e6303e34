package billing

// The source system accepted any status change on a quote. Here the lifecycle
// is a closed state machine instead: a quote moves forward through
// DRAFT → SENT → ACCEPTED → PAID, and can be rejected while still DRAFT or
// SENT. REJECTED and PAID are terminal.
var quoteTransitions = map[QuoteStatus][]QuoteStatus{
	QuoteStatusDraft:    {QuoteStatusSent, QuoteStatusRejected},
	QuoteStatusSent:     {QuoteStatusAccepted, QuoteStatusRejected},
	QuoteStatusAccepted: {QuoteStatusPaid},
	QuoteStatusRejected: {},
	QuoteStatusPaid:     {},
}

// ValidQuoteStatus reports whether s is a known quote status.
func ValidQuoteStatus(s QuoteStatus) bool {
	_, ok := quoteTransitions[s]
	return ok
}

// CanTransition reports whether a quote may move from one status to another.
func CanTransition(from, to QuoteStatus) bool {
	if from == to {
		return true
	}
	for _, next := range quoteTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanConvert reports whether a quote in the given status may be converted to
// an invoice. Conversion requires the quote to have been accepted.
func CanConvert(s QuoteStatus) bool {
	return s == QuoteStatusAccepted
}

// CanEditLines reports whether a quote in the given status accepts line item
// changes. Terminal quotes are settled documents; their lines are history.
// ACCEPTED stays editable because the invoice freezes its own copy at
// conversion, so later quote rework cannot corrupt an issued invoice.
func CanEditLines(s QuoteStatus) bool {
	switch s {
	case QuoteStatusDraft, QuoteStatusSent, QuoteStatusAccepted:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func Terminal(s QuoteStatus) bool {
	return len(quoteTransitions[s]) == 0 && ValidQuoteStatus(s)
}
