package review

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"recruitflow/internal/model"
	"recruitflow/internal/repository"
)

// fakeLedger is an in-memory ProgressStore for engine tests.
type fakeLedger struct {
	mu   sync.Mutex
	rows map[int64]*model.ProgressDetail
}

func newFakeLedger(rows ...*model.ProgressDetail) *fakeLedger {
	l := &fakeLedger{rows: make(map[int64]*model.ProgressDetail)}
	for _, r := range rows {
		l.rows[r.ID] = r
	}
	return l
}

func (l *fakeLedger) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.ProgressTx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(ctx, &fakeTx{ledger: l})
}

func (l *fakeLedger) ListByApplication(ctx context.Context, applicationID int64) ([]model.ProgressDetail, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []model.ProgressDetail
	for _, r := range l.rows {
		if r.ApplicationID == applicationID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

type fakeTx struct {
	ledger *fakeLedger
}

func (t *fakeTx) RowForReview(ctx context.Context, rowID int64) (*model.ProgressDetail, error) {
	r, ok := t.ledger.rows[rowID]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (t *fakeTx) ApplyDecision(ctx context.Context, rowID int64, u model.ReviewUpdate) (*model.ApplicationProgress, error) {
	r, ok := t.ledger.rows[rowID]
	if !ok {
		return nil, model.ErrNotFound
	}

	now := time.Now()
	r.Status = u.Status
	rs := u.ReviewStatus
	r.ReviewStatus = &rs
	r.ReviewNotes = u.Notes
	r.ReviewedBy = &u.ReviewedBy
	r.ReviewedAt = &now
	if u.SetCompleted && r.CompletedAt == nil {
		r.CompletedAt = &now
	}
	r.UpdatedAt = now

	cp := r.ApplicationProgress
	return &cp, nil
}

func (t *fakeTx) MarkCompleted(ctx context.Context, rowID int64) (*model.ApplicationProgress, error) {
	r, ok := t.ledger.rows[rowID]
	if !ok {
		return nil, model.ErrNotFound
	}

	now := time.Now()
	r.Status = model.StatusCompleted
	if r.CompletedAt == nil {
		r.CompletedAt = &now
	}
	r.UpdatedAt = now

	cp := r.ApplicationProgress
	return &cp, nil
}

func (t *fakeTx) UnlockNext(ctx context.Context, applicationID, callID int64, orderIndex int) (string, bool, error) {
	for _, r := range t.ledger.rows {
		if r.ApplicationID == applicationID && r.CallID == callID &&
			r.OrderIndex == orderIndex && r.Status == model.StatusPending {
			r.Status = model.StatusInProgress
			return r.MilestoneName, true, nil
		}
	}
	return "", false, nil
}

func (t *fakeTx) CascadeReject(ctx context.Context, applicationID, callID int64, orderIndex int, note string) (int64, error) {
	var n int64
	for _, r := range t.ledger.rows {
		if r.ApplicationID == applicationID && r.CallID == callID &&
			r.OrderIndex > orderIndex && !r.Status.Terminal() {
			r.Status = model.StatusRejected
			rs := model.ReviewRejected
			r.ReviewStatus = &rs
			if r.ReviewNotes == nil {
				noteCopy := note
				r.ReviewNotes = &noteCopy
			}
			n++
		}
	}
	return n, nil
}

func (t *fakeTx) ExistingStates(ctx context.Context, applicationID int64) (map[int64]model.Status, error) {
	states := make(map[int64]model.Status)
	for _, r := range t.ledger.rows {
		if r.ApplicationID == applicationID {
			states[r.MilestoneID] = r.Status
		}
	}
	return states, nil
}

func (t *fakeTx) InsertIfAbsent(ctx context.Context, applicationID, milestoneID int64, status model.Status) (bool, error) {
	for _, r := range t.ledger.rows {
		if r.ApplicationID == applicationID && r.MilestoneID == milestoneID {
			return false, nil
		}
	}
	id := int64(len(t.ledger.rows) + 1)
	t.ledger.rows[id] = &model.ProgressDetail{
		ApplicationProgress: model.ApplicationProgress{
			ID:            id,
			ApplicationID: applicationID,
			MilestoneID:   milestoneID,
			Status:        status,
		},
	}
	return true, nil
}

// recordingNotifier captures notifications for assertions.
type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
	last  *Notification
	fail  bool
	done  chan struct{}
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{done: make(chan struct{}, 8)}
}

func (n *recordingNotifier) record(kind string, notification *Notification) error {
	n.mu.Lock()
	n.calls = append(n.calls, kind)
	n.last = notification
	fail := n.fail
	n.mu.Unlock()
	n.done <- struct{}{}
	if fail {
		return errors.New("notifier unavailable")
	}
	return nil
}

func (n *recordingNotifier) NotifyApproved(_ context.Context, notification *Notification) error {
	return n.record("approved", notification)
}

func (n *recordingNotifier) NotifyRejected(_ context.Context, notification *Notification) error {
	return n.record("rejected", notification)
}

func (n *recordingNotifier) NotifyNeedsChanges(_ context.Context, notification *Notification) error {
	return n.record("needs_changes", notification)
}

func (n *recordingNotifier) wait(t *testing.T) *Notification {
	t.Helper()
	select {
	case <-n.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.last
}

func row(id, appID, callID, milestoneID int64, name string, order int, status model.Status) *model.ProgressDetail {
	return &model.ProgressDetail{
		ApplicationProgress: model.ApplicationProgress{
			ID:            id,
			ApplicationID: appID,
			MilestoneID:   milestoneID,
			Status:        status,
		},
		CallID:        callID,
		MilestoneName: name,
		OrderIndex:    order,
	}
}

func notesOf(s string) *string { return &s }

func TestApproveCompletesAndUnlocksNext(t *testing.T) {
	ledger := newFakeLedger(
		row(1, 10, 100, 1000, "CV screening", 1, model.StatusInProgress),
		row(2, 10, 100, 1001, "Interview", 2, model.StatusPending),
		row(3, 10, 100, 1002, "Offer", 3, model.StatusPending),
	)
	notifier := newRecordingNotifier()
	engine := NewEngine(ledger, notifier, zap.NewNop())

	outcome, err := engine.ReviewMilestone(context.Background(), 1, "APPROVED", notesOf("solid CV"), 7)
	require.NoError(t, err)

	assert.Equal(t, model.StatusCompleted, outcome.Row.Status)
	require.NotNil(t, outcome.Row.CompletedAt)
	require.NotNil(t, outcome.UnlockedNext)
	assert.Equal(t, "Interview", *outcome.UnlockedNext)

	assert.Equal(t, model.StatusInProgress, ledger.rows[2].Status)
	assert.Equal(t, model.StatusPending, ledger.rows[3].Status)

	n := notifier.wait(t)
	assert.Equal(t, "Interview", n.UnlockedNext)
	assert.Equal(t, model.DecisionApproved, n.Decision)
}

func TestApproveLastMilestoneUnlocksNothing(t *testing.T) {
	ledger := newFakeLedger(
		row(1, 10, 100, 1000, "Offer", 3, model.StatusInProgress),
	)
	notifier := newRecordingNotifier()
	engine := NewEngine(ledger, notifier, zap.NewNop())

	outcome, err := engine.ReviewMilestone(context.Background(), 1, "APPROVED", nil, 7)
	require.NoError(t, err)

	assert.Nil(t, outcome.UnlockedNext)
	notifier.wait(t)
}

func TestApprovingEveryMilestoneInOrderCompletesPipeline(t *testing.T) {
	ledger := newFakeLedger(
		row(1, 10, 100, 1000, "CV screening", 1, model.StatusInProgress),
		row(2, 10, 100, 1001, "Interview", 2, model.StatusPending),
		row(3, 10, 100, 1002, "Case study", 3, model.StatusPending),
		row(4, 10, 100, 1003, "Offer", 4, model.StatusPending),
	)
	notifier := newRecordingNotifier()
	engine := NewEngine(ledger, notifier, zap.NewNop())
	ctx := context.Background()

	for rowID := int64(1); rowID <= 4; rowID++ {
		outcome, err := engine.ReviewMilestone(ctx, rowID, "APPROVED", nil, 7)
		require.NoError(t, err)
		assert.Equal(t, model.StatusCompleted, outcome.Row.Status)
		if rowID < 4 {
			require.NotNil(t, outcome.UnlockedNext)
		} else {
			assert.Nil(t, outcome.UnlockedNext)
		}
		notifier.wait(t)
	}

	rows, err := ledger.ListByApplication(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	for _, r := range rows {
		assert.Equal(t, model.StatusCompleted, r.Status)
		assert.NotNil(t, r.CompletedAt, r.MilestoneName)
	}
}

func TestRejectCascadesOverLaterRows(t *testing.T) {
	existingNote := "submitted late"
	rows := []*model.ProgressDetail{
		row(1, 10, 100, 1000, "CV screening", 1, model.StatusCompleted),
		row(2, 10, 100, 1001, "Interview", 2, model.StatusInProgress),
		row(3, 10, 100, 1002, "Case study", 3, model.StatusPending),
		row(4, 10, 100, 1003, "Offer", 4, model.StatusNeedsChanges),
	}
	rows[3].ReviewNotes = &existingNote
	ledger := newFakeLedger(rows...)
	notifier := newRecordingNotifier()
	engine := NewEngine(ledger, notifier, zap.NewNop())

	outcome, err := engine.ReviewMilestone(context.Background(), 2, "REJECTED", notesOf("poor fit"), 7)
	require.NoError(t, err)

	assert.Equal(t, model.StatusRejected, outcome.Row.Status)
	assert.Equal(t, int64(2), outcome.CascadedRows)

	// Completed rows stay untouched.
	assert.Equal(t, model.StatusCompleted, ledger.rows[1].Status)
	assert.Equal(t, model.StatusRejected, ledger.rows[3].Status)
	assert.Equal(t, model.StatusRejected, ledger.rows[4].Status)

	// Cascaded rows get the synthetic note unless one is already set.
	require.NotNil(t, ledger.rows[3].ReviewNotes)
	assert.Equal(t, CascadeNote, *ledger.rows[3].ReviewNotes)
	assert.Equal(t, existingNote, *ledger.rows[4].ReviewNotes)

	n := notifier.wait(t)
	assert.Equal(t, []string{"rejected"}, notifier.calls)
	assert.Equal(t, int64(2), n.CascadedRows)
}

func TestNeedsChangesIsSoft(t *testing.T) {
	ledger := newFakeLedger(
		row(1, 10, 100, 1000, "CV screening", 1, model.StatusInProgress),
		row(2, 10, 100, 1001, "Interview", 2, model.StatusPending),
	)
	notifier := newRecordingNotifier()
	engine := NewEngine(ledger, notifier, zap.NewNop())

	outcome, err := engine.ReviewMilestone(context.Background(), 1, "NEEDS_CHANGES", notesOf("add references"), 7)
	require.NoError(t, err)

	assert.Equal(t, model.StatusNeedsChanges, outcome.Row.Status)
	assert.Nil(t, outcome.Row.CompletedAt)
	assert.Equal(t, int64(0), outcome.CascadedRows)
	assert.Nil(t, outcome.UnlockedNext)

	// No cascade, no unlock.
	assert.Equal(t, model.StatusPending, ledger.rows[2].Status)

	n := notifier.wait(t)
	assert.Equal(t, "add references", n.ReviewNotes)
}

func TestReviewValidation(t *testing.T) {
	ledger := newFakeLedger(
		row(1, 10, 100, 1000, "CV screening", 1, model.StatusInProgress),
	)
	engine := NewEngine(ledger, newRecordingNotifier(), zap.NewNop())
	ctx := context.Background()

	_, err := engine.ReviewMilestone(ctx, 1, "MAYBE", nil, 7)
	assert.ErrorIs(t, err, model.ErrInvalidDecision)

	_, err = engine.ReviewMilestone(ctx, 999, "APPROVED", nil, 7)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestTerminalRowCannotBeReviewedAgain(t *testing.T) {
	ledger := newFakeLedger(
		row(1, 10, 100, 1000, "CV screening", 1, model.StatusCompleted),
		row(2, 10, 100, 1001, "Interview", 2, model.StatusRejected),
	)
	engine := NewEngine(ledger, newRecordingNotifier(), zap.NewNop())
	ctx := context.Background()

	_, err := engine.ReviewMilestone(ctx, 1, "REJECTED", nil, 7)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	_, err = engine.ReviewMilestone(ctx, 2, "APPROVED", nil, 7)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestNotifierFailureDoesNotFailReview(t *testing.T) {
	ledger := newFakeLedger(
		row(1, 10, 100, 1000, "CV screening", 1, model.StatusInProgress),
	)
	notifier := newRecordingNotifier()
	notifier.fail = true
	engine := NewEngine(ledger, notifier, zap.NewNop())

	outcome, err := engine.ReviewMilestone(context.Background(), 1, "APPROVED", nil, 7)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, outcome.Row.Status)

	notifier.wait(t)
	assert.Equal(t, model.StatusCompleted, ledger.rows[1].Status)
}

func TestCompleteWithoutReview(t *testing.T) {
	ledger := newFakeLedger(
		row(1, 10, 100, 1000, "Intake form", 1, model.StatusInProgress),
		row(2, 10, 100, 1001, "Interview", 2, model.StatusPending),
	)
	notifier := newRecordingNotifier()
	engine := NewEngine(ledger, notifier, zap.NewNop())
	ctx := context.Background()

	outcome, err := engine.CompleteWithoutReview(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, model.StatusCompleted, outcome.Row.Status)
	require.NotNil(t, outcome.Row.CompletedAt)
	firstCompletedAt := *outcome.Row.CompletedAt
	assert.Nil(t, outcome.Row.ReviewStatus)
	require.NotNil(t, outcome.UnlockedNext)
	assert.Equal(t, "Interview", *outcome.UnlockedNext)

	// Completing again is a no-op that preserves completedAt.
	outcome, err = engine.CompleteWithoutReview(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, outcome.Row.Status)
	assert.True(t, outcome.Row.CompletedAt.Equal(firstCompletedAt))
	assert.Nil(t, outcome.UnlockedNext)

	// No notification for self-service completion.
	assert.Empty(t, notifier.calls)
}

func TestCompleteWithoutReviewRejectedRow(t *testing.T) {
	ledger := newFakeLedger(
		row(1, 10, 100, 1000, "Intake form", 1, model.StatusRejected),
	)
	engine := NewEngine(ledger, newRecordingNotifier(), zap.NewNop())

	_, err := engine.CompleteWithoutReview(context.Background(), 1)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}
