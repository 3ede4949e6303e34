package billing

// LineUpdate pairs an existing line ID with its desired field values.
type LineUpdate struct {
	ID    int64
	Input QuoteLineInput
}

// LinePlan is the minimal set of operations turning a document's stored line
// items into the incoming desired set.
type LinePlan struct {
	Create []QuoteLineInput
	Update []LineUpdate
	Delete []int64
}

// Empty reports whether the plan performs no operations.
func (p LinePlan) Empty() bool {
	return len(p.Create) == 0 && len(p.Update) == 0 && len(p.Delete) == 0
}

// ReconcileLines diffs the stored line items against the incoming desired set:
// an incoming item whose ID matches a stored line updates it, an incoming item
// without a matching ID creates a new line, and every stored line not named by
// the incoming set is deleted. Incoming order is preserved for creates and
// updates; deletes follow stored order.
//
// The resulting plan must be applied in the same transaction as the totals
// recomputation so stored totals and persisted lines never diverge.
func ReconcileLines(existing []QuoteLine, incoming []QuoteLineInput) LinePlan {
	known := make(map[int64]bool, len(existing))
	for _, line := range existing {
		known[line.ID] = true
	}

	var plan LinePlan
	seen := make(map[int64]bool, len(incoming))
	for _, input := range incoming {
		if input.ID != nil && known[*input.ID] {
			plan.Update = append(plan.Update, LineUpdate{ID: *input.ID, Input: input})
			seen[*input.ID] = true
			continue
		}
		// Unknown IDs are treated as creates, same as absent ones.
		plan.Create = append(plan.Create, input)
	}

	for _, line := range existing {
		if !seen[line.ID] {
			plan.Delete = append(plan.Delete, line.ID)
		}
	}

	return plan
}
