package milestone

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"recruitflow/internal/model"
)

type fakeStore struct {
	calls       map[int64]bool
	defs        []model.MilestoneDefinition
	nextID      int64
	insertErr   error
	insertCount int
}

func (f *fakeStore) Insert(ctx context.Context, def *model.MilestoneDefinition) error {
	f.insertCount++
	if f.insertErr != nil {
		return f.insertErr
	}
	f.nextID++
	def.ID = f.nextID
	f.defs = append(f.defs, *def)
	return nil
}

func (f *fakeStore) ListByCall(ctx context.Context, callID int64) ([]model.MilestoneDefinition, error) {
	var out []model.MilestoneDefinition
	for _, d := range f.defs {
		if d.CallID == callID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeStore) GetByID(ctx context.Context, id int64) (*model.MilestoneDefinition, error) {
	for i := range f.defs {
		if f.defs[i].ID == id {
			return &f.defs[i], nil
		}
	}
	return nil, model.ErrNotFound
}

func (f *fakeStore) MaxOrderIndex(ctx context.Context, callID int64) (int, error) {
	max := 0
	for _, d := range f.defs {
		if d.CallID == callID && d.OrderIndex > max {
			max = d.OrderIndex
		}
	}
	return max, nil
}

func (f *fakeStore) CallExists(ctx context.Context, callID int64) (bool, error) {
	return f.calls[callID], nil
}

type fakeBackfiller struct {
	callID      int64
	milestoneID int64
	created     int64
	err         error
}

func (f *fakeBackfiller) AutoInitializeOnMilestoneCreate(ctx context.Context, callID int64, milestoneID int64) (int64, error) {
	f.callID = callID
	f.milestoneID = milestoneID
	return f.created, f.err
}

func TestCreateEnforcesContiguousOrder(t *testing.T) {
	store := &fakeStore{calls: map[int64]bool{100: true}}
	store.defs = []model.MilestoneDefinition{
		{ID: 1, CallID: 100, Name: "CV screening", OrderIndex: 1},
		{ID: 2, CallID: 100, Name: "Interview", OrderIndex: 2},
	}
	store.nextID = 2
	svc := NewService(store, &fakeBackfiller{}, zap.NewNop())
	ctx := context.Background()

	// A gap is rejected.
	_, err := svc.Create(ctx, CreateInput{CallID: 100, Name: "Offer", OrderIndex: 4})
	assert.ErrorIs(t, err, model.ErrInvalidOrderIndex)

	// Reusing an existing index is rejected.
	_, err = svc.Create(ctx, CreateInput{CallID: 100, Name: "Offer", OrderIndex: 2})
	assert.ErrorIs(t, err, model.ErrInvalidOrderIndex)

	// max + 1 is accepted.
	def, err := svc.Create(ctx, CreateInput{CallID: 100, Name: "Offer", OrderIndex: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, def.OrderIndex)
}

func TestCreateDefinitionStatus(t *testing.T) {
	store := &fakeStore{calls: map[int64]bool{100: true}}
	svc := NewService(store, &fakeBackfiller{}, zap.NewNop())
	ctx := context.Background()

	// Omitted status defaults to active.
	def, err := svc.Create(ctx, CreateInput{CallID: 100, Name: "CV screening", OrderIndex: 1})
	require.NoError(t, err)
	assert.Equal(t, model.MilestoneActive, def.Status)

	// A pending definition is accepted and persisted as given.
	def, err = svc.Create(ctx, CreateInput{
		CallID: 100, Name: "Interview", OrderIndex: 2, Status: model.MilestonePending,
	})
	require.NoError(t, err)
	assert.Equal(t, model.MilestonePending, def.Status)
	assert.Equal(t, model.MilestonePending, store.defs[1].Status)

	// Anything outside the closed set is rejected before insert.
	_, err = svc.Create(ctx, CreateInput{
		CallID: 100, Name: "Offer", OrderIndex: 3, Status: "archived",
	})
	assert.ErrorIs(t, err, model.ErrInvalidStatus)
	assert.Len(t, store.defs, 2)
}

func TestCreateBackfillsExistingApplications(t *testing.T) {
	store := &fakeStore{calls: map[int64]bool{100: true}}
	backfiller := &fakeBackfiller{created: 5}
	svc := NewService(store, backfiller, zap.NewNop())

	def, err := svc.Create(context.Background(), CreateInput{CallID: 100, Name: "CV screening", OrderIndex: 1})
	require.NoError(t, err)

	assert.Equal(t, int64(100), backfiller.callID)
	assert.Equal(t, def.ID, backfiller.milestoneID)
}

func TestCreateUnknownCall(t *testing.T) {
	svc := NewService(&fakeStore{calls: map[int64]bool{}}, &fakeBackfiller{}, zap.NewNop())

	_, err := svc.Create(context.Background(), CreateInput{CallID: 999, Name: "X", OrderIndex: 1})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestCreateConcurrentIndexClaim(t *testing.T) {
	store := &fakeStore{calls: map[int64]bool{100: true}, insertErr: model.ErrDuplicate}
	svc := NewService(store, &fakeBackfiller{}, zap.NewNop())

	_, err := svc.Create(context.Background(), CreateInput{CallID: 100, Name: "X", OrderIndex: 1})
	assert.ErrorIs(t, err, model.ErrConflict)
}

func TestListByCall(t *testing.T) {
	store := &fakeStore{calls: map[int64]bool{100: true}}
	store.defs = []model.MilestoneDefinition{
		{ID: 1, CallID: 100, Name: "CV screening", OrderIndex: 1},
	}
	svc := NewService(store, &fakeBackfiller{}, zap.NewNop())
	ctx := context.Background()

	defs, err := svc.ListByCall(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, defs, 1)

	_, err = svc.ListByCall(ctx, 999)
	assert.ErrorIs(t, err, model.ErrNotFound)
}
