package auth

import "time"

// Company is a registered business allowed to manage documents.
type Company struct {
	ID         int64
	Name       string
	KeyID      string
	APIKeyHash string
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
