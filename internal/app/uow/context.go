package uow

import "context"

type contextKey struct{}

// ContextWithUnitOfWork returns a context carrying the active unit of work
// so bus middleware can hand the transaction to command handlers.
func ContextWithUnitOfWork(ctx context.Context, unit UnitOfWork) context.Context {
	return context.WithValue(ctx, contextKey{}, unit)
}

// FromContext extracts the ambient unit of work, if one was injected.
func FromContext(ctx context.Context) (UnitOfWork, bool) {
	unit, ok := ctx.Value(contextKey{}).(UnitOfWork)
	return unit, ok
}
