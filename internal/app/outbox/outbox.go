package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jsamuelsen/quote-revisions/internal/ports"
)

// ErrAlreadyFlushed is returned when staging into an outbox that has been flushed.
var ErrAlreadyFlushed = errors.New("outbox already flushed")

// Action is a staged post-commit side effect.
type Action interface {
	// Execute performs the action.
	Execute(ctx context.Context) error

	// Description returns a human-readable description for logging.
	Description() string
}

// Failure pairs an action with the error it returned.
type Failure struct {
	Action Action
	Err    error
}

// Outbox collects actions for one transaction attempt.
type Outbox struct {
	mu      sync.Mutex
	actions []Action
	flushed bool
}

// New creates an empty outbox.
func New() *Outbox {
	return &Outbox{}
}

// Stage appends an action. A nil outbox accepts and drops the action.
func (o *Outbox) Stage(action Action) error {
	if o == nil {
		return nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.flushed {
		return ErrAlreadyFlushed
	}

	o.actions = append(o.actions, action)

	return nil
}

// Flush executes every staged action in order and reports the ones that failed.
// A second Flush is a no-op.
func (o *Outbox) Flush(ctx context.Context) []Failure {
	if o == nil {
		return nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.flushed {
		return nil
	}

	o.flushed = true

	var failures []Failure

	for _, action := range o.actions {
		if err := action.Execute(ctx); err != nil {
			failures = append(failures, Failure{Action: action, Err: err})
		}
	}

	return failures
}

// Actions returns a copy of staged actions (for inspection/testing).
func (o *Outbox) Actions() []Action {
	if o == nil {
		return nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	result := make([]Action, len(o.actions))
	copy(result, o.actions)

	return result
}

// PublishAction publishes one event.
type PublishAction struct {
	Publisher ports.EventPublisher
	Event     ports.Event
}

// Publish returns an action that publishes event through publisher.
func Publish(publisher ports.EventPublisher, event ports.Event) *PublishAction {
	return &PublishAction{Publisher: publisher, Event: event}
}

// Execute implements Action.
func (a *PublishAction) Execute(ctx context.Context) error {
	if err := a.Publisher.Publish(ctx, a.Event); err != nil {
		return fmt.Errorf("publishing %s: %w", a.Event.EventType(), err)
	}

	return nil
}

// Description implements Action.
func (a *PublishAction) Description() string {
	return "publish " + a.Event.EventType()
}
