package domain

import "context"

// ProgressObserver receives progress events of a running pipeline.
type ProgressObserver interface {
	OnProgress(p Progress)
}

// ProgressFunc adapts a plain function to ProgressObserver.
type ProgressFunc func(p Progress)

func (f ProgressFunc) OnProgress(p Progress) { f(p) }

// RunFilter defines criteria for listing runs
type RunFilter struct {
	Operation string
	Limit     int
	Offset    int
}

// RunRepository persists run history.
type RunRepository interface {
	Save(ctx context.Context, log *OperationLog) error
	List(ctx context.Context, filter RunFilter) ([]RunRecord, error)
}
