package core

import (
	"context"
	"fmt"
)

// Hook is a side effect to run once the primary write has committed.
type Hook struct {
	Name string
	Fn   func(ctx context.Context) error
}

// AfterCommit is the ordered list of side effects produced by a mutating operation.
// The caller runs it after the write succeeded; a failing hook never unwinds the write.
type AfterCommit []Hook

func (ac *AfterCommit) Add(name string, fn func(ctx context.Context) error) {
	*ac = append(*ac, Hook{Name: name, Fn: fn})
}

func (ac *AfterCommit) Extend(other AfterCommit) {
	*ac = append(*ac, other...)
}

// Run executes every hook in order. Failures are logged, counted and swallowed.
// It returns the number of failed hooks.
func (ac AfterCommit) Run(ctx context.Context, logger Logger, metrics Metrics) int {
	if metrics == nil {
		metrics = NopMetrics
	}
	var failed int
	for _, h := range ac {
		if err := runHook(ctx, h); err != nil {
			failed++
			metrics.HookFailed(h.Name)
			if logger != nil {
				logger.Error(fmt.Sprintf("post-commit hook %q: %v", h.Name, err), err)
			}
		}
	}
	return failed
}

func runHook(ctx context.Context, h Hook) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h.Fn(ctx)
}
