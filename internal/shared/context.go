package shared

import "context"

// Company identifies the authenticated business on whose behalf a request runs.
type Company struct {
	ID   int64
	Name string
}

type companyContextKey struct{}

// ContextWithCompany stores the authenticated company in context.
func ContextWithCompany(ctx context.Context, c Company) context.Context {
	return context.WithValue(ctx, companyContextKey{}, c)
}

// CompanyFromContext extracts the authenticated company from context.
func CompanyFromContext(ctx context.Context) (Company, bool) {
	c, ok := ctx.Value(companyContextKey{}).(Company)
	return c, ok
}
