package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-revisions/internal/domain"
	"github.com/jsamuelsen/quote-revisions/internal/mocks"
)

// mockAction is a test helper for Action interface.
type mockAction struct {
	description string
	executeErr  error
	executed    bool
}

func (a *mockAction) Execute(_ context.Context) error {
	a.executed = true
	return a.executeErr
}

func (a *mockAction) Description() string {
	return a.description
}

func TestStage_StagesAction(t *testing.T) {
	box := New()

	err := box.Stage(&mockAction{description: "test-action"})

	require.NoError(t, err)
	assert.Len(t, box.Actions(), 1)
}

func TestStage_AfterFlush_ReturnsError(t *testing.T) {
	box := New()
	assert.Empty(t, box.Flush(context.Background()))

	err := box.Stage(&mockAction{description: "late"})

	assert.ErrorIs(t, err, ErrAlreadyFlushed)
}

func TestStage_NilOutbox(t *testing.T) {
	var box *Outbox

	assert.NoError(t, box.Stage(&mockAction{}))
	assert.Nil(t, box.Flush(context.Background()))
	assert.Nil(t, box.Actions())
}

func TestFlush_RunsEveryActionDespiteFailures(t *testing.T) {
	box := New()

	action1 := &mockAction{description: "action1"}
	action2 := &mockAction{description: "action2", executeErr: errors.New("sink down")}
	action3 := &mockAction{description: "action3"}

	_ = box.Stage(action1)
	_ = box.Stage(action2)
	_ = box.Stage(action3)

	failures := box.Flush(context.Background())

	require.Len(t, failures, 1)
	assert.Equal(t, "action2", failures[0].Action.Description())
	assert.EqualError(t, failures[0].Err, "sink down")
	assert.True(t, action1.executed)
	assert.True(t, action2.executed)
	assert.True(t, action3.executed)
}

func TestFlush_SecondFlushIsNoop(t *testing.T) {
	box := New()
	action := &mockAction{description: "once"}
	_ = box.Stage(action)

	box.Flush(context.Background())
	action.executed = false
	box.Flush(context.Background())

	assert.False(t, action.executed)
}

func TestActions_ReturnsCopy(t *testing.T) {
	box := New()
	_ = box.Stage(&mockAction{description: "test-action"})

	actions := box.Actions()
	actions[0] = nil

	assert.NotNil(t, box.Actions()[0])
}

func TestPublishAction(t *testing.T) {
	rev := &domain.QuoteRevision{ID: "q-1", RootID: "q-1", TenantID: "t-1", VersionNumber: 1, UpdatedAt: time.Now()}
	event := domain.NewLineageCreatedEvent(rev, "alice")

	t.Run("success", func(t *testing.T) {
		publisher := mocks.NewMockEventPublisher(t)
		publisher.EXPECT().Publish(mock.Anything, event).Return(nil)

		action := Publish(publisher, event)

		assert.Equal(t, "publish quote.lineage.created", action.Description())
		assert.NoError(t, action.Execute(context.Background()))
	})

	t.Run("failure wraps publisher error", func(t *testing.T) {
		publisher := mocks.NewMockEventPublisher(t)
		publisher.EXPECT().Publish(mock.Anything, event).Return(domain.NewUnavailableError("audit", "throttled"))

		err := Publish(publisher, event).Execute(context.Background())

		require.Error(t, err)
		assert.True(t, domain.IsUnavailable(err))
		assert.Contains(t, err.Error(), "publishing quote.lineage.created")
	})
}
