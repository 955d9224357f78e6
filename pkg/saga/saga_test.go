package saga_test

import (
	"context"
	"errors"
	"testing"

	"github.com/corvael/provision-api/pkg/saga"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompensator_RunsInReverseOrder(t *testing.T) {
	var undone []string

	c := saga.NewCompensator("test")
	c.Push("first", func(ctx context.Context) error { undone = append(undone, "first"); return nil })
	c.Push("second", func(ctx context.Context) error { undone = append(undone, "second"); return nil })
	c.Push("third", func(ctx context.Context) error { undone = append(undone, "third"); return nil })

	err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"third", "second", "first"}, undone)
}

func TestCompensator_FailureDoesNotStopRemaining(t *testing.T) {
	var undone []string

	c := saga.NewCompensator("test")
	c.Push("first", func(ctx context.Context) error { undone = append(undone, "first"); return nil })
	c.Push("second", func(ctx context.Context) error { return errors.New("second undo failed") })
	c.Push("third", func(ctx context.Context) error { undone = append(undone, "third"); return nil })

	err := c.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "second undo failed")
	// The failure of "second" must not prevent "first" from running.
	assert.Equal(t, []string{"third", "first"}, undone)
}

func TestCompensator_AllFailuresCollected(t *testing.T) {
	c := saga.NewCompensator("test")
	c.Push("a", func(ctx context.Context) error { return errors.New("undo a failed") })
	c.Push("b", func(ctx context.Context) error { return errors.New("undo b failed") })

	err := c.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undo a failed")
	assert.Contains(t, err.Error(), "undo b failed")
}

func TestCompensator_Empty(t *testing.T) {
	c := saga.NewCompensator("empty")
	assert.Equal(t, 0, c.Len())
	assert.NoError(t, c.Run(context.Background()))
}

func TestCompensator_NilUndoSkipped(t *testing.T) {
	c := saga.NewCompensator("test")
	c.Push("noop", nil)
	assert.NoError(t, c.Run(context.Background()))
}

func TestCompensator_RunClearsActions(t *testing.T) {
	ran := 0
	c := saga.NewCompensator("test")
	c.Push("once", func(ctx context.Context) error { ran++; return nil })

	require.NoError(t, c.Run(context.Background()))
	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, 1, ran)
}
