package shared

import "context"

// AccountContext identifies the tenant a request operates on behalf of.
// Every domain query is scoped to AccountID; SubuserID is set when a
// restricted subuser login created the session.
type AccountContext struct {
	AccountID int64
	SubuserID *int64
	Admin     bool
}

type accountContextKey struct{}

// ContextWithAccount stores the account context in ctx.
func ContextWithAccount(ctx context.Context, ac *AccountContext) context.Context {
	return context.WithValue(ctx, accountContextKey{}, ac)
}

// AccountFromContext extracts the account context, nil when unauthenticated.
func AccountFromContext(ctx context.Context) *AccountContext {
	ac, _ := ctx.Value(accountContextKey{}).(*AccountContext)
	return ac
}
