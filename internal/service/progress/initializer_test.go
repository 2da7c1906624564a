package progress

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"recruitflow/internal/model"
	"recruitflow/internal/repository"
)

// fakeLedger is an in-memory ProgressStore for initializer tests.
type fakeLedger struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*model.ProgressDetail
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{rows: make(map[int64]*model.ProgressDetail)}
}

func (l *fakeLedger) addRow(appID, milestoneID int64, status model.Status) *model.ProgressDetail {
	l.nextID++
	r := &model.ProgressDetail{
		ApplicationProgress: model.ApplicationProgress{
			ID:            l.nextID,
			ApplicationID: appID,
			MilestoneID:   milestoneID,
			Status:        status,
		},
	}
	l.rows[r.ID] = r
	return r
}

func (l *fakeLedger) statusOf(appID, milestoneID int64) (model.Status, bool) {
	for _, r := range l.rows {
		if r.ApplicationID == appID && r.MilestoneID == milestoneID {
			return r.Status, true
		}
	}
	return "", false
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
	return nil, nil
}

func (t *fakeTx) MarkCompleted(ctx context.Context, rowID int64) (*model.ApplicationProgress, error) {
	return nil, nil
}

func (t *fakeTx) UnlockNext(ctx context.Context, applicationID, callID int64, orderIndex int) (string, bool, error) {
	return "", false, nil
}

func (t *fakeTx) CascadeReject(ctx context.Context, applicationID, callID int64, orderIndex int, note string) (int64, error) {
	return 0, nil
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
	if _, ok := t.ledger.statusOf(applicationID, milestoneID); ok {
		return false, nil
	}
	t.ledger.addRow(applicationID, milestoneID, status)
	return true, nil
}

// fakeMilestones serves milestone definitions from memory.
type fakeMilestones struct {
	defs map[int64][]model.MilestoneDefinition // keyed by call id
}

func (f *fakeMilestones) Insert(ctx context.Context, def *model.MilestoneDefinition) error { return nil }

func (f *fakeMilestones) ListByCall(ctx context.Context, callID int64) ([]model.MilestoneDefinition, error) {
	return f.defs[callID], nil
}

func (f *fakeMilestones) GetByID(ctx context.Context, id int64) (*model.MilestoneDefinition, error) {
	return nil, model.ErrNotFound
}

func (f *fakeMilestones) MaxOrderIndex(ctx context.Context, callID int64) (int, error) {
	max := 0
	for _, d := range f.defs[callID] {
		if d.OrderIndex > max {
			max = d.OrderIndex
		}
	}
	return max, nil
}

func (f *fakeMilestones) CallExists(ctx context.Context, callID int64) (bool, error) {
	_, ok := f.defs[callID]
	return ok, nil
}

// fakeDirectory resolves applications from memory.
type fakeDirectory struct {
	apps map[int64]*model.Application // keyed by application id
}

func (f *fakeDirectory) GetApplication(ctx context.Context, applicationID int64) (*model.Application, error) {
	app, ok := f.apps[applicationID]
	if !ok {
		return nil, model.ErrNotFound
	}
	return app, nil
}

func (f *fakeDirectory) ListApplicationIDsByCall(ctx context.Context, callID int64) ([]int64, error) {
	var ids []int64
	for id, app := range f.apps {
		if app.CallID == callID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (f *fakeDirectory) ResolveContact(ctx context.Context, applicationID int64) (*model.Contact, error) {
	return nil, model.ErrNotFound
}

func defsFor(callID int64, ids ...int64) []model.MilestoneDefinition {
	defs := make([]model.MilestoneDefinition, len(ids))
	for i, id := range ids {
		defs[i] = model.MilestoneDefinition{
			ID:         id,
			CallID:     callID,
			Name:       "milestone",
			OrderIndex: i + 1,
		}
	}
	return defs
}

func newInitializer(ledger *fakeLedger, milestones *fakeMilestones, directory *fakeDirectory) *Initializer {
	return NewInitializer(ledger, milestones, directory, zap.NewNop())
}

func TestInitializeSeedsFirstMilestoneActive(t *testing.T) {
	ledger := newFakeLedger()
	milestones := &fakeMilestones{defs: map[int64][]model.MilestoneDefinition{100: defsFor(100, 1, 2, 3)}}
	directory := &fakeDirectory{apps: map[int64]*model.Application{10: {ID: 10, CallID: 100}}}
	init := newInitializer(ledger, milestones, directory)

	created, err := init.InitializeForApplication(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), created)

	s, _ := ledger.statusOf(10, 1)
	assert.Equal(t, model.StatusInProgress, s)
	s, _ = ledger.statusOf(10, 2)
	assert.Equal(t, model.StatusPending, s)
	s, _ = ledger.statusOf(10, 3)
	assert.Equal(t, model.StatusPending, s)
}

func TestInitializeIsIdempotent(t *testing.T) {
	ledger := newFakeLedger()
	milestones := &fakeMilestones{defs: map[int64][]model.MilestoneDefinition{100: defsFor(100, 1, 2)}}
	directory := &fakeDirectory{apps: map[int64]*model.Application{10: {ID: 10, CallID: 100}}}
	init := newInitializer(ledger, milestones, directory)
	ctx := context.Background()

	created, err := init.InitializeForApplication(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), created)

	created, err = init.InitializeForApplication(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), created)
}

func TestInitializeDoesNotRegressPosition(t *testing.T) {
	ledger := newFakeLedger()
	// The application already completed milestone 1 and works on 2.
	ledger.addRow(10, 1, model.StatusCompleted)
	ledger.addRow(10, 2, model.StatusInProgress)

	milestones := &fakeMilestones{defs: map[int64][]model.MilestoneDefinition{100: defsFor(100, 1, 2, 3)}}
	directory := &fakeDirectory{apps: map[int64]*model.Application{10: {ID: 10, CallID: 100}}}
	init := newInitializer(ledger, milestones, directory)

	created, err := init.InitializeForApplication(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), created)

	// The new row must not steal the active position.
	s, _ := ledger.statusOf(10, 3)
	assert.Equal(t, model.StatusPending, s)
	s, _ = ledger.statusOf(10, 2)
	assert.Equal(t, model.StatusInProgress, s)
}

func TestInitializeUnknownApplication(t *testing.T) {
	init := newInitializer(newFakeLedger(), &fakeMilestones{}, &fakeDirectory{apps: map[int64]*model.Application{}})

	_, err := init.InitializeForApplication(context.Background(), 999)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSyncForCallCreatesPendingOnly(t *testing.T) {
	ledger := newFakeLedger()
	// 3 applications x 2 milestones with exactly one pair missing.
	ledger.addRow(10, 1, model.StatusInProgress)
	ledger.addRow(10, 2, model.StatusPending)
	ledger.addRow(11, 1, model.StatusCompleted)
	ledger.addRow(11, 2, model.StatusInProgress)
	ledger.addRow(12, 1, model.StatusInProgress)

	milestones := &fakeMilestones{defs: map[int64][]model.MilestoneDefinition{100: defsFor(100, 1, 2)}}
	directory := &fakeDirectory{apps: map[int64]*model.Application{
		10: {ID: 10, CallID: 100},
		11: {ID: 11, CallID: 100},
		12: {ID: 12, CallID: 100},
	}}
	init := newInitializer(ledger, milestones, directory)

	created, err := init.SyncForCall(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, int64(1), created)

	// The backfilled row is PENDING even though it is the lowest missing one.
	s, _ := ledger.statusOf(12, 2)
	assert.Equal(t, model.StatusPending, s)

	// Existing rows keep their states.
	s, _ = ledger.statusOf(10, 1)
	assert.Equal(t, model.StatusInProgress, s)
	s, _ = ledger.statusOf(11, 1)
	assert.Equal(t, model.StatusCompleted, s)
}

func TestAutoInitializeOnMilestoneCreate(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addRow(10, 1, model.StatusInProgress)
	ledger.addRow(10, 2, model.StatusPending)
	ledger.addRow(11, 1, model.StatusCompleted)

	directory := &fakeDirectory{apps: map[int64]*model.Application{
		10: {ID: 10, CallID: 100},
		11: {ID: 11, CallID: 100},
	}}
	init := newInitializer(ledger, &fakeMilestones{}, directory)

	created, err := init.AutoInitializeOnMilestoneCreate(context.Background(), 100, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(2), created)

	s, _ := ledger.statusOf(10, 3)
	assert.Equal(t, model.StatusPending, s)
	s, _ = ledger.statusOf(11, 3)
	assert.Equal(t, model.StatusPending, s)

	// Existing rows stay untouched.
	s, _ = ledger.statusOf(10, 1)
	assert.Equal(t, model.StatusInProgress, s)
	s, _ = ledger.statusOf(10, 2)
	assert.Equal(t, model.StatusPending, s)
}
