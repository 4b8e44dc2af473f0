package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jsamuelsen/quote-revisions/internal/domain"
)

// Stage names a step of a mutating revision operation. Stages run in order
// and the first failure stops the operation:
//
//	validate  input checks, nothing is read or written
//	commit    the store transaction, retried on conflict
//	verify    post-conditions of the committed lineage
//	publish   metrics and audit events, after the commit is final
type Stage string

// Stages of a Mutation.
const (
	StageValidate Stage = "validate"
	StageCommit   Stage = "commit"
	StageVerify   Stage = "verify"
	StagePublish  Stage = "publish"
)

// StageError records the operation and stage a mutation stopped in. The
// wrapped error keeps its domain kind, so callers still use domain.IsNotFound
// and friends on it.
type StageError struct {
	Operation string
	Stage     Stage
	Err       error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Operation, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// StageOf reports the stage err was raised in, if it came from a Mutation.
func StageOf(err error) (Stage, bool) {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage, true
	}

	return "", false
}

// errPostCondition marks a committed result that failed verification.
var errPostCondition = errors.New("post-condition violated")

// Mutation is one mutating operation on a lineage. Validate and Publish are
// optional; Commit is required.
type Mutation[I any] struct {
	Name     string
	Validate func(ctx context.Context, in I) error
	Commit   func(ctx context.Context, in I) (*mutation, error)
	Verify   func(in I, m *mutation) error
	Publish  func(ctx context.Context, in I, m *mutation) error
}

// run executes the stages for in and returns the committed revision.
//
// A verify failure means the transaction already committed something that
// breaks a lineage invariant. It is logged at ERROR and returned; the
// revision is not handed back to the caller.
func (op Mutation[I]) run(ctx context.Context, logger *slog.Logger, in I) (*domain.QuoteRevision, error) {
	logger = logger.With(slog.String("operation", op.Name))
	start := time.Now()

	fail := func(stage Stage, err error) error {
		level := slog.LevelWarn
		if stage == StageVerify || !isCallerError(err) {
			level = slog.LevelError
		}

		logger.Log(ctx, level, "revision operation failed",
			slog.String("stage", string(stage)),
			slog.Any("error", err),
		)

		return &StageError{Operation: op.Name, Stage: stage, Err: err}
	}

	if op.Validate != nil {
		if err := op.Validate(ctx, in); err != nil {
			return nil, fail(StageValidate, err)
		}
	}

	m, err := op.Commit(ctx, in)
	if err != nil {
		return nil, fail(StageCommit, err)
	}

	if op.Verify != nil {
		if err := op.Verify(in, m); err != nil {
			return nil, fail(StageVerify, err)
		}
	}

	if op.Publish != nil {
		if err := op.Publish(ctx, in, m); err != nil {
			return nil, fail(StagePublish, err)
		}
	}

	logger.DebugContext(ctx, "revision operation committed",
		slog.String("revision_id", m.revision.ID),
		slog.Int("version", m.revision.VersionNumber),
		slog.Bool("changed", m.changed),
		slog.Duration("duration", time.Since(start)),
	)

	return m.revision, nil
}

// isCallerError reports errors caused by the request rather than the service.
func isCallerError(err error) bool {
	return domain.IsInvalidInput(err) ||
		domain.IsNotFound(err) ||
		domain.IsForbidden(err) ||
		domain.IsInvalidBundle(err) ||
		domain.IsInvalidState(err) ||
		errors.Is(err, context.Canceled)
}
