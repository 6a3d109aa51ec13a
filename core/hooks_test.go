package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingMetrics struct {
	nopMetrics
	failed []string
}

func (m *recordingMetrics) HookFailed(name string) { m.failed = append(m.failed, name) }

func TestAfterCommit_Run(t *testing.T) {
	var ran []string
	record := func(name string, err error) func(context.Context) error {
		return func(context.Context) error {
			ran = append(ran, name)
			return err
		}
	}

	var hooks AfterCommit
	hooks.Add("first", record("first", nil))
	hooks.Add("broken", record("broken", errors.New("smtp down")))

	var more AfterCommit
	more.Add("panicky", func(context.Context) error { panic("boom") })
	more.Add("last", record("last", nil))
	hooks.Extend(more)

	metrics := &recordingMetrics{}
	failed := hooks.Run(context.Background(), nil, metrics)

	assert.Equal(t, 2, failed)
	assert.Equal(t, []string{"first", "broken", "last"}, ran)
	assert.Equal(t, []string{"broken", "panicky"}, metrics.failed)
}

func TestAfterCommit_RunEmpty(t *testing.T) {
	var hooks AfterCommit
	assert.Zero(t, hooks.Run(context.Background(), nil, nil))
}
