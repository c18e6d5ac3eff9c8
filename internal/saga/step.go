package saga

import "context"

// Step is one unit of work in a saga, with a forward action and a
// compensating action. Compensate must be a semantic inverse (emit the
// counter-movement, never restore a remembered prior value) and safe to
// call even if Execute only partially applied its effects.
type Step interface {
	Name() string
	Execute(ctx context.Context, sc *Context) error
	Compensate(ctx context.Context, sc *Context) error
}
