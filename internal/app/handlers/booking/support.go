package booking

import (
	"context"
	"errors"

	"stayfinder/internal/app/uow"
)

var ErrUnitOfWorkRequired = errors.New("booking: unit of work required")

// beginUnit returns the ambient unit of work when the transaction middleware
// provided one, otherwise starts a self-managed unit. finish commits a
// self-managed unit and is a no-op for an ambient one; cleanup rolls a
// self-managed unit back unless finish succeeded and must be deferred.
func beginUnit(ctx context.Context, factory uow.UoWFactory) (uow.UnitOfWork, context.Context, func() error, func(), error) {
	if unit, ok := uow.FromContext(ctx); ok {
		return unit, ctx, func() error { return nil }, func() {}, nil
	}
	if factory == nil {
		return nil, ctx, nil, nil, ErrUnitOfWorkRequired
	}
	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return nil, ctx, nil, nil, err
	}
	execCtx := ctx
	if injector, ok := unit.(interface {
		InjectContext(context.Context) context.Context
	}); ok {
		execCtx = injector.InjectContext(ctx)
	}
	execCtx = uow.ContextWithUnitOfWork(execCtx, unit)
	committed := false
	finish := func() error {
		if err := unit.Commit(execCtx); err != nil {
			return err
		}
		committed = true
		return nil
	}
	cleanup := func() {
		if !committed {
			_ = unit.Rollback(execCtx)
		}
	}
	return unit, execCtx, finish, cleanup, nil
}

// beginReadOnlyUnit starts a read-only unit whose cleanup always rolls back.
func beginReadOnlyUnit(ctx context.Context, factory uow.UoWFactory) (uow.UnitOfWork, context.Context, func(), error) {
	if unit, ok := uow.FromContext(ctx); ok {
		return unit, ctx, func() {}, nil
	}
	if factory == nil {
		return nil, ctx, nil, ErrUnitOfWorkRequired
	}
	unit, err := factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, ctx, nil, err
	}
	execCtx := uow.ContextWithUnitOfWork(ctx, unit)
	cleanup := func() { _ = unit.Rollback(execCtx) }
	return unit, execCtx, cleanup, nil
}
