package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateInvoiceNumber returns a fresh invoice number derived from the
// current UTC time plus a random suffix. Collisions are effectively
// impossible, and the unique index on invoices.number is the backstop.
func GenerateInvoiceNumber(now time.Time) string {
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("FAC-%s-%s", now.UTC().Format("20060102150405"), suffix)
}
