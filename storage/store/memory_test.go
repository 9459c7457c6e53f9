package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"agrochain/internal/models"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withClock(t *testing.T, start time.Time) {
	t.Helper()
	now := start
	timeNow = func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	t.Cleanup(func() { timeNow = time.Now })
}

func TestMemoryBatches(t *testing.T) {
	withClock(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	m := NewMemoryStore(nil)
	ctx := context.Background()
	contract := "contract-1"
	farmer := "farmer-1"

	older := &models.Batch{ID: "b1", BatchCode: "B-1", CropType: "Maize", ContractID: &contract, FarmerID: &farmer}
	newer := &models.Batch{ID: "b2", BatchCode: "B-2", CropType: "Maize", ContractID: &contract, FarmerID: &farmer}
	require.NoError(t, m.CreateBatch(ctx, older))
	require.NoError(t, m.CreateBatch(ctx, newer))

	assert.ErrorIs(t, m.CreateBatch(ctx, &models.Batch{ID: "b3", BatchCode: "B-1"}), ErrDuplicate)
	assert.ErrorIs(t, m.CreateBatch(ctx, &models.Batch{ID: "b1", BatchCode: "B-9"}), ErrDuplicate)

	got, err := m.GetBatchByCode(ctx, "B-2")
	require.NoError(t, err)
	assert.Equal(t, "b2", got.ID)
	got.CropType = "changed"
	again, _ := m.GetBatchByID(ctx, "b2")
	assert.Equal(t, "Maize", again.CropType, "reads return copies")

	latest, err := m.FindLatestBatchByContract(ctx, contract)
	require.NoError(t, err)
	assert.Equal(t, "b2", latest.ID)
	_, err = m.FindLatestBatchByContract(ctx, "other")
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := m.ListBatchesByFarmer(ctx, farmer)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b2", list[0].ID)

	require.NoError(t, m.UpdateBatchStatus(ctx, "b1", models.StatusHarvested))
	lat := 1.5
	require.NoError(t, m.UpdateBatchLocation(ctx, "b1", "Depot", &lat, nil))
	got, _ = m.GetBatchByID(ctx, "b1")
	assert.Equal(t, models.StatusHarvested, got.CurrentStatus)
	assert.Equal(t, "Depot", got.CurrentLocation)
	assert.Equal(t, &lat, got.LocationLat)
	assert.ErrorIs(t, m.UpdateBatchStatus(ctx, "nope", models.StatusSold), ErrNotFound)
}

func TestMemoryContractsAndFarmers(t *testing.T) {
	m := NewMemoryStore(nil)
	ctx := context.Background()
	m.PutContract(models.Contract{ID: "c1", ContractCode: "CT-001"})
	m.PutFarmer(models.Farmer{ID: "f1", FullName: "Wanjiru"})

	c, err := m.GetContractByCode(ctx, "CT-001")
	require.NoError(t, err)
	assert.Equal(t, "c1", c.ID)
	_, err = m.GetContract(ctx, "c2")
	assert.ErrorIs(t, err, ErrNotFound)

	f, err := m.GetFarmer(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "Wanjiru", f.FullName)
}

func TestMemoryEventsOrdered(t *testing.T) {
	m := NewMemoryStore(nil)
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, m.InsertEvent(ctx, &models.TraceabilityEvent{ID: "e2", BatchID: "b", CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, m.InsertEvent(ctx, &models.TraceabilityEvent{ID: "e1", BatchID: "b", CreatedAt: base}))
	require.NoError(t, m.InsertEvent(ctx, &models.TraceabilityEvent{ID: "e3", BatchID: "b", CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, m.InsertEvent(ctx, &models.TraceabilityEvent{ID: "x", BatchID: "other", CreatedAt: base}))
	assert.ErrorIs(t, m.InsertEvent(ctx, &models.TraceabilityEvent{ID: "e1", BatchID: "b"}), ErrDuplicate)

	evs, err := m.ListEventsByBatch(ctx, "b")
	require.NoError(t, err)
	ids := make([]string, len(evs))
	for i, ev := range evs {
		ids[i] = ev.ID
	}
	assert.Equal(t, []string{"e1", "e2", "e3"}, ids)

	status, ok := m.AnchorStatus("e1")
	assert.True(t, ok)
	assert.Equal(t, AnchorPending, status)
}

func TestMemoryAnchoringLifecycle(t *testing.T) {
	m := NewMemoryStore(nil)
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		require.NoError(t, m.InsertEvent(ctx, &models.TraceabilityEvent{ID: fmt.Sprintf("e%d", i), BatchID: "b", EventHash: fmt.Sprintf("h%d", i)}))
	}

	tasks, err := m.GetAndMarkEventsForAnchoring(ctx, []string{"e1", "e2", "e3", "missing"}, 2)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, AnchorAnchoring, tasks["e1"].Status)
	assert.Equal(t, "h1", tasks["e1"].EventHash)
	assert.Equal(t, 1, tasks["e1"].Attempts)

	require.NoError(t, m.MarkAnchorsCompleted(ctx, []AnchorCompletion{{EventID: "e1", TxHash: "tx", BlockHeight: 9}}))
	require.NoError(t, m.MarkAnchorsFailed(ctx, []AnchorFailure{{EventID: "e2", ErrorMessage: "rejected"}}))
	require.NoError(t, m.MarkAnchorsForRetry(ctx, []string{"e3"}, "timeout"))

	s, _ := m.AnchorStatus("e1")
	assert.Equal(t, AnchorAnchored, s)
	s, _ = m.AnchorStatus("e2")
	assert.Equal(t, AnchorFailed, s)
	s, _ = m.AnchorStatus("e3")
	assert.Equal(t, AnchorPending, s)

	evs, _ := m.ListEventsByBatch(ctx, "b")
	assert.Equal(t, "tx", evs[0].AnchorTxHash)
	assert.Equal(t, uint64(9), evs[0].AnchorBlockHeight)

	// terminal events are skipped; e3 takes its second and last attempt
	tasks, err = m.GetAndMarkEventsForAnchoring(ctx, []string{"e1", "e2", "e3"}, 2)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, 2, tasks["e3"].Attempts)

	require.NoError(t, m.MarkAnchorsForRetry(ctx, []string{"e3"}, "timeout"))
	tasks, err = m.GetAndMarkEventsForAnchoring(ctx, []string{"e3"}, 2)
	require.NoError(t, err)
	assert.Equal(t, AnchorFailed, tasks["e3"].Status)
}

func TestMemoryProcessingResultsAreCopied(t *testing.T) {
	m := NewMemoryStore(nil)
	ctx := context.Background()
	_, err := m.GetProcessingResult(ctx, "b")
	assert.ErrorIs(t, err, ErrNotFound)

	r := models.NewProcessingResult("b")
	r.Processing.Methods = []string{"Washing"}
	require.NoError(t, m.SaveProcessingResult(ctx, r))
	r.Processing.Methods[0] = "Peeling"

	got, err := m.GetProcessingResult(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"Washing"}, got.Processing.Methods)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestMemoryActivityOrdering(t *testing.T) {
	withClock(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	m := NewMemoryStore(nil)
	ctx := context.Background()
	same := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for _, a := range []models.GrowthActivity{
		{ID: "a1", ContractID: "c", FarmerID: "f", ActivityDate: same},
		{ID: "a2", ContractID: "c", FarmerID: "f", ActivityDate: same},
		{ID: "a3", ContractID: "c", FarmerID: "g", ActivityDate: same.Add(24 * time.Hour)},
	} {
		a := a
		require.NoError(t, m.InsertActivity(ctx, &a))
	}

	list, err := m.ListActivitiesByContract(ctx, "c", "")
	require.NoError(t, err)
	require.Len(t, list, 3)
	// same activity date: the later insert comes first
	assert.Equal(t, []string{"a3", "a2", "a1"}, []string{list[0].ID, list[1].ID, list[2].ID})

	list, err = m.ListActivitiesByFarmer(ctx, "f", 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a2", list[0].ID)
}

func TestTranslateErr(t *testing.T) {
	assert.ErrorIs(t, translateErr(pgx.ErrNoRows), ErrNotFound)
	assert.ErrorIs(t, translateErr(fmt.Errorf("scan: %w", pgx.ErrNoRows)), ErrNotFound)

	dup := translateErr(&pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "batches_batch_code_key"})
	assert.ErrorIs(t, dup, ErrDuplicate)
	assert.Contains(t, dup.Error(), "batches_batch_code_key")

	other := errors.New("connection reset")
	assert.Equal(t, other, translateErr(other))
}
