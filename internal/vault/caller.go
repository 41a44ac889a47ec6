package vault

import "context"

type callerContextKey struct{}

// WithCaller returns a context carrying the given caller identity.
// Transport middleware attaches it before handing the request to the engine.
func WithCaller(ctx context.Context, caller Address) context.Context {
	return context.WithValue(ctx, callerContextKey{}, caller)
}

// ContextCallers resolves the caller identity from the request context.
type ContextCallers struct{}

func (ContextCallers) CurrentCaller(ctx context.Context) (Address, error) {
	caller, ok := ctx.Value(callerContextKey{}).(Address)
	if !ok || caller == "" {
		return "", ErrMissingCaller
	}
	return caller, nil
}
