package saga

import (
	"context"
	"errors"
	"fmt"
)

// Action is a recorded undo operation for a resource created earlier in a
// multi-step workflow.
type Action struct {
	Name string
	Undo func(ctx context.Context) error
}

// Compensator accumulates undo actions as a workflow creates resources and
// replays them in reverse order of registration when a later step fails.
// Only newly created resources should be recorded; updates to pre-existing
// state must not be pushed, since undoing them could destroy legitimate
// prior state.
type Compensator struct {
	name    string
	actions []Action
}

// NewCompensator creates a compensator for the named workflow.
func NewCompensator(name string) *Compensator {
	return &Compensator{name: name}
}

// Push records an undo action. Actions run LIFO on Run.
func (c *Compensator) Push(name string, undo func(ctx context.Context) error) {
	c.actions = append(c.actions, Action{Name: name, Undo: undo})
}

// Len returns the number of recorded actions.
func (c *Compensator) Len() int {
	return len(c.actions)
}

// Run executes all recorded undo actions in reverse order. Each action's
// failure is collected but does not prevent attempting the remaining ones:
// compensation is best-effort, not itself transactional. The joined error
// describes every failed action; callers log it and propagate the original
// workflow error instead.
func (c *Compensator) Run(ctx context.Context) error {
	var errs []error
	for i := len(c.actions) - 1; i >= 0; i-- {
		a := c.actions[i]
		if a.Undo == nil {
			continue
		}
		if err := a.Undo(ctx); err != nil {
			errs = append(errs, fmt.Errorf("saga %s: compensate %q: %w", c.name, a.Name, err))
		}
	}
	c.actions = c.actions[:0]
	return errors.Join(errs...)
}
