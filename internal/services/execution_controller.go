package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ArowuTest/bridgetunes-draw-console/internal/apperrors"
	"github.com/ArowuTest/bridgetunes-draw-console/internal/models"
	"github.com/ArowuTest/bridgetunes-draw-console/internal/repositories"
)

// ExecutionState is the lifecycle position of an ExecutionController.
type ExecutionState string

const (
	StateIdle            ExecutionState = "IDLE"
	StateSubmitting      ExecutionState = "SUBMITTING"
	StateCompleted       ExecutionState = "COMPLETED"
	StateConflictPending ExecutionState = "CONFLICT_PENDING"
	StateFailed          ExecutionState = "FAILED"
)

// DrawService is the backend the controller submits draws to.
type DrawService interface {
	Execute(ctx context.Context, session models.Session, req models.DrawRequest) (*models.DrawResult, error)
	Rerun(ctx context.Context, session models.Session, existingDrawID string, req models.DrawRequest) (*models.DrawResult, error)
}

// ControllerSnapshot is a point-in-time copy of the controller state.
type ControllerSnapshot struct {
	State          ExecutionState      `json:"state"`
	Result         *models.DrawResult  `json:"result,omitempty"`
	ExistingDrawID string              `json:"existingDrawId,omitempty"`
	Request        *models.DrawRequest `json:"request,omitempty"`
	Message        string              `json:"message,omitempty"`
}

// ControllerOption configures an ExecutionController.
type ControllerOption func(*ExecutionController)

// WithSpinDelay holds a successful result for d before it is applied.
func WithSpinDelay(d time.Duration) ControllerOption {
	return func(c *ExecutionController) {
		c.spinDelay = d
	}
}

// WithInvalidator registers a callback run after every successful execute
// or rerun, used to drop cached draw lists.
func WithInvalidator(fn func()) ControllerOption {
	return func(c *ExecutionController) {
		c.invalidate = fn
	}
}

// WithAuditTrail records every outcome in repo.
func WithAuditTrail(repo repositories.DrawAuditRepository) ControllerOption {
	return func(c *ExecutionController) {
		c.audit = repo
	}
}

// WithClock overrides time.Now for audit timestamps.
func WithClock(now func() time.Time) ControllerOption {
	return func(c *ExecutionController) {
		c.now = now
	}
}

// ExecutionController drives one operator's draw submission, including the
// confirmed-rerun path after a conflict. At most one backend call is in
// flight per controller.
type ExecutionController struct {
	session    models.Session
	draws      DrawService
	spinDelay  time.Duration
	invalidate func()
	audit      repositories.DrawAuditRepository
	now        func() time.Time
	log        *zap.Logger

	mu             sync.Mutex
	state          ExecutionState
	generation     uint64
	result         *models.DrawResult
	conflict       *apperrors.ConflictError
	existingDrawID string
	pending        *models.DrawRequest
	message        string
}

// NewExecutionController creates an idle controller acting for session.
func NewExecutionController(session models.Session, draws DrawService, opts ...ControllerOption) *ExecutionController {
	c := &ExecutionController{
		session: session,
		draws:   draws,
		now:     time.Now,
		state:   StateIdle,
		log:     zap.L().With(zap.String("operator", session.Subject)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute submits req. It fails with *apperrors.BusyError while another
// submission is in flight and returns the pending conflict again while a
// rerun decision is outstanding; neither case reaches the backend.
func (c *ExecutionController) Execute(ctx context.Context, req models.DrawRequest) (*models.DrawResult, error) {
	c.mu.Lock()
	switch c.state {
	case StateSubmitting:
		c.mu.Unlock()
		return nil, &apperrors.BusyError{}
	case StateConflictPending:
		conflict := c.conflict
		c.mu.Unlock()
		return nil, conflict
	}
	c.state = StateSubmitting
	c.message = ""
	gen := c.generation
	session := c.session
	c.mu.Unlock()

	c.log.Info("submitting draw",
		zap.String("draw_date", req.DateString()),
		zap.String("prize_structure_id", req.PrizeStructureID),
		zap.String("mode", string(req.Mode())),
		zap.Int("entries", len(req.Entries)))

	result, err := c.draws.Execute(ctx, session, req)
	return c.finish(ctx, gen, models.AuditActionExecute, req, "", result, err)
}

// ConfirmRerun reruns the conflicting draw with the request that caused the
// conflict. It makes exactly one backend call.
func (c *ExecutionController) ConfirmRerun(ctx context.Context) (*models.DrawResult, error) {
	c.mu.Lock()
	if c.state != StateConflictPending || c.pending == nil {
		c.mu.Unlock()
		return nil, apperrors.ErrNoPendingRerun
	}
	existingID := c.existingDrawID
	req := *c.pending
	c.state = StateSubmitting
	c.conflict = nil
	c.message = ""
	gen := c.generation
	session := c.session
	c.mu.Unlock()

	c.log.Info("rerunning draw",
		zap.String("existing_draw_id", existingID),
		zap.String("draw_date", req.DateString()))

	result, err := c.draws.Rerun(ctx, session, existingID, req)
	return c.finish(ctx, gen, models.AuditActionRerun, req, existingID, result, err)
}

// DeclineRerun drops the pending conflict and returns to IDLE.
func (c *ExecutionController) DeclineRerun(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateConflictPending {
		c.mu.Unlock()
		return apperrors.ErrNoPendingRerun
	}
	existingID := c.existingDrawID
	var req models.DrawRequest
	if c.pending != nil {
		req = *c.pending
	}
	c.state = StateIdle
	c.conflict = nil
	c.existingDrawID = ""
	c.pending = nil
	c.message = ""
	c.mu.Unlock()

	c.log.Info("rerun declined", zap.String("existing_draw_id", existingID))
	c.record(ctx, models.AuditActionDeclineRerun, models.AuditOutcomeDeclined, req, existingID, "", "")
	return nil
}

// Abandon resets the controller to IDLE. A call still in flight finishes
// and its result goes to its caller, but it no longer changes this
// controller.
func (c *ExecutionController) Abandon() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.state = StateIdle
	c.result = nil
	c.conflict = nil
	c.existingDrawID = ""
	c.pending = nil
	c.message = ""
}

// Refresh replaces the session used for subsequent backend calls, e.g.
// after the operator's token was renewed.
func (c *ExecutionController) Refresh(session models.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = session
}

// State returns the current lifecycle state.
func (c *ExecutionController) State() ExecutionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns a copy of the controller state.
func (c *ExecutionController) Snapshot() ControllerSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := ControllerSnapshot{
		State:          c.state,
		Result:         c.result,
		ExistingDrawID: c.existingDrawID,
		Message:        c.message,
	}
	if c.pending != nil {
		req := *c.pending
		snap.Request = &req
	}
	return snap
}

func (c *ExecutionController) finish(
	ctx context.Context,
	gen uint64,
	action models.AuditAction,
	req models.DrawRequest,
	existingID string,
	result *models.DrawResult,
	err error,
) (*models.DrawResult, error) {
	if err == nil {
		c.spin(ctx)
		if c.invalidate != nil {
			c.invalidate()
		}
	}

	var (
		outcome  models.AuditOutcome
		conflict *apperrors.ConflictError
		drawID   string
	)
	switch {
	case err == nil:
		outcome = models.AuditOutcomeCompleted
		if result != nil {
			drawID = result.DrawID
		}
	case errors.As(err, &conflict) && conflict.RerunEligible && conflict.ExistingDrawID != "":
		outcome = models.AuditOutcomeConflict
		existingID = conflict.ExistingDrawID
		err = conflict
	default:
		outcome = models.AuditOutcomeFailed
		err = apperrors.AsExecutionError(err)
	}

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.log.Warn("discarding result of abandoned submission", zap.String("action", string(action)))
		c.record(ctx, action, outcome, req, existingID, drawID, apperrors.UserMessage(err))
		return result, err
	}
	switch outcome {
	case models.AuditOutcomeCompleted:
		c.state = StateCompleted
		c.result = result
		c.conflict = nil
		c.existingDrawID = ""
		c.pending = nil
		c.message = ""
	case models.AuditOutcomeConflict:
		pending := req
		c.state = StateConflictPending
		c.conflict = conflict
		c.existingDrawID = conflict.ExistingDrawID
		c.pending = &pending
		c.message = apperrors.UserMessage(conflict)
	default:
		c.state = StateFailed
		c.conflict = nil
		c.existingDrawID = ""
		c.pending = nil
		c.message = apperrors.UserMessage(err)
	}
	c.mu.Unlock()

	switch outcome {
	case models.AuditOutcomeCompleted:
		c.log.Info("draw completed", zap.String("draw_id", drawID))
	case models.AuditOutcomeConflict:
		c.log.Info("draw conflict awaiting rerun decision", zap.String("existing_draw_id", existingID))
	default:
		c.log.Error("draw failed", zap.Error(err))
	}
	c.record(ctx, action, outcome, req, existingID, drawID, apperrors.UserMessage(err))
	return result, err
}

// spin waits out the configured delay. Cancellation cuts the wait short but
// never changes the outcome.
func (c *ExecutionController) spin(ctx context.Context) {
	if c.spinDelay <= 0 {
		return
	}
	timer := time.NewTimer(c.spinDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func (c *ExecutionController) record(
	ctx context.Context,
	action models.AuditAction,
	outcome models.AuditOutcome,
	req models.DrawRequest,
	existingID, drawID, message string,
) {
	if c.audit == nil {
		return
	}
	c.mu.Lock()
	operator := c.session.Subject
	c.mu.Unlock()
	entry := &models.DrawAudit{
		Operator:         operator,
		Action:           action,
		Outcome:          outcome,
		DrawDate:         req.DrawDate,
		PrizeStructureID: req.PrizeStructureID,
		Mode:             req.Mode(),
		EntryCount:       len(req.Entries),
		DrawID:           drawID,
		ExistingDrawID:   existingID,
		Message:          message,
		CreatedAt:        c.now(),
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := c.audit.Create(ctx, entry); err != nil {
		c.log.Warn("failed to record draw audit", zap.Error(err))
	}
}
