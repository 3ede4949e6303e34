package billing

import "errors"

var (
	// ErrNotFound indicates the document does not exist or belongs to another
	// company. Ownership mismatches surface as not-found on purpose, so the
	// API never confirms the existence of another tenant's documents.
	ErrNotFound = errors.New("document not found")
	// ErrValidation indicates malformed or out-of-range input.
	ErrValidation = errors.New("validation failed")
	// ErrNotEligible indicates a conversion attempt on a quote that is not accepted.
	ErrNotEligible = errors.New("quote not eligible for conversion")
	// ErrConflict indicates a duplicate document number or a second conversion
	// attempt on an already converted quote.
	ErrConflict = errors.New("conflicting document")
)
