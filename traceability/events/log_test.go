package events

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"agrochain/internal/models"
	"agrochain/storage/store"
	"agrochain/traceability/hash"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = log.New(io.Discard, "", 0)

type recordingPublisher struct {
	mu    sync.Mutex
	codes []string
	ids   []string
}

func (p *recordingPublisher) PublishEvent(_ context.Context, ev *models.TraceabilityEvent, batchCode string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.codes = append(p.codes, batchCode)
	p.ids = append(p.ids, ev.ID)
}

func strPtr(s string) *string { return &s }

func newLog(t *testing.T) (*Log, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore(testLogger)
	l := NewLog(st, st, hash.New(hash.ModeSHA256), testLogger)

	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	l.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	return l, st
}

func seedBatch(t *testing.T, st *store.MemoryStore, code string, contractID, farmerID *string) *models.Batch {
	t.Helper()
	b := &models.Batch{
		ID:            uuid.NewString(),
		BatchCode:     code,
		CropType:      "Tomato",
		Unit:          "kg",
		CurrentStatus: models.StatusGrowing,
		ContractID:    contractID,
		FarmerID:      farmerID,
	}
	require.NoError(t, st.CreateBatch(context.Background(), b))
	return b
}

func TestAddEventStampsAndHashes(t *testing.T) {
	l, st := newLog(t)
	pub := &recordingPublisher{}
	l.SetPublisher(pub)
	b := seedBatch(t, st, "B-TEST0001", strPtr("contract-1"), strPtr("farmer-1"))

	in := &models.TraceabilityEvent{
		ID:        "client-supplied",
		BatchID:   b.ID,
		EventType: models.EventHarvest,
		Title:     "Harvest complete",
		Detail:    models.QualityDetail{Grade: "Grade A"},
	}
	stored, err := l.AddEvent(context.Background(), in)
	require.NoError(t, err)

	assert.NotEqual(t, "client-supplied", stored.ID)
	assert.Equal(t, "client-supplied", in.ID, "input must not be modified")
	assert.Equal(t, time.UTC, stored.CreatedAt.Location())
	assert.Equal(t, hash.New(hash.ModeSHA256).Hash(hash.InputFromEvent(stored), stored.CreatedAt), stored.EventHash)
	require.NotNil(t, stored.ContractID)
	assert.Equal(t, "contract-1", *stored.ContractID)
	require.NotNil(t, stored.FarmerID)
	assert.Equal(t, "farmer-1", *stored.FarmerID)

	assert.Equal(t, []string{"B-TEST0001"}, pub.codes)
	assert.Equal(t, []string{stored.ID}, pub.ids)
}

func TestAddEventDropsClientAnchor(t *testing.T) {
	l, st := newLog(t)
	b := seedBatch(t, st, "B-ANCH0001", nil, nil)

	in := &models.TraceabilityEvent{
		BatchID:           b.ID,
		EventType:         models.EventHarvest,
		Title:             "Harvest complete",
		AnchorTxHash:      "0xforged",
		AnchorBlockHeight: 42,
	}
	stored, err := l.AddEvent(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, stored.AnchorTxHash)
	assert.Zero(t, stored.AnchorBlockHeight)

	got, err := l.GetEventsForBatch(context.Background(), b.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Empty(t, got[0].AnchorTxHash)
	assert.Zero(t, got[0].AnchorBlockHeight)
}

func TestAddEventValidation(t *testing.T) {
	l, st := newLog(t)
	b := seedBatch(t, st, "B-VAL00001", nil, nil)
	var verr *models.ValidationError

	_, err := l.AddEvent(context.Background(), nil)
	assert.ErrorAs(t, err, &verr)

	_, err = l.AddEvent(context.Background(), &models.TraceabilityEvent{BatchID: b.ID, EventType: models.EventHarvest})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "event_title", verr.Field)

	_, err = l.AddEvent(context.Background(), &models.TraceabilityEvent{
		BatchID: b.ID, EventType: models.EventPlanting, Title: "Planted",
		Detail: models.TransportDetail{Origin: "Farm"},
	})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "details", verr.Field)

	_, err = l.AddEvent(context.Background(), &models.TraceabilityEvent{BatchID: "missing", EventType: models.EventHarvest, Title: "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	evs, err := l.GetEventsForBatch(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Empty(t, evs)
}

func TestGetEventsForBatchOrdered(t *testing.T) {
	l, st := newLog(t)
	b := seedBatch(t, st, "B-ORD00001", nil, nil)
	other := seedBatch(t, st, "B-ORD00002", nil, nil)

	titles := []string{"Planted", "Watered", "Fertilized", "Harvested", "Stored"}
	for _, title := range titles {
		_, err := l.AddEvent(context.Background(), &models.TraceabilityEvent{BatchID: b.ID, EventType: models.EventGrowthUpdate, Title: title})
		require.NoError(t, err)
	}
	_, err := l.AddEvent(context.Background(), &models.TraceabilityEvent{BatchID: other.ID, EventType: models.EventPlanting, Title: "Other"})
	require.NoError(t, err)

	evs, err := l.GetEventsForBatch(context.Background(), b.ID)
	require.NoError(t, err)
	require.Len(t, evs, len(titles))
	for i, ev := range evs {
		assert.Equal(t, titles[i], ev.Title)
		if i > 0 {
			assert.True(t, ev.CreatedAt.After(evs[i-1].CreatedAt))
		}
	}

	empty, err := l.GetEventsForBatch(context.Background(), "no-such-batch")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestResolveByBatchCode(t *testing.T) {
	l, st := newLog(t)
	st.PutFarmer(models.Farmer{ID: "farmer-1", FullName: "Amina"})
	st.PutContract(models.Contract{ID: "contract-1", ContractCode: "CT-2026-001", FarmerID: "farmer-1"})
	b := seedBatch(t, st, "B-TEST0001", strPtr("contract-1"), strPtr("farmer-1"))
	_, err := l.AddEvent(context.Background(), &models.TraceabilityEvent{BatchID: b.ID, EventType: models.EventPlanting, Title: "Planted"})
	require.NoError(t, err)

	p, err := l.ResolveByExternalKey(context.Background(), "B-TEST0001")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "batch_code", p.ResolvedBy)
	assert.Equal(t, b.ID, p.Batch.ID)
	assert.Len(t, p.Events, 1)
	require.NotNil(t, p.Farmer)
	assert.Equal(t, "Amina", p.Farmer.FullName)
	require.NotNil(t, p.Contract)
	assert.Equal(t, "CT-2026-001", p.Contract.ContractCode)
}

func TestResolveByContractPicksNewestBatch(t *testing.T) {
	l, st := newLog(t)
	st.PutContract(models.Contract{ID: "contract-9", ContractCode: "CT-LEGACY-9", FarmerID: "farmer-9"})
	seedBatch(t, st, "B-OLD00001", strPtr("contract-9"), nil)
	newest := seedBatch(t, st, "B-NEW00001", strPtr("contract-9"), nil)

	byID, err := l.ResolveByExternalKey(context.Background(), "contract-9")
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "contract_id", byID.ResolvedBy)
	assert.Equal(t, newest.ID, byID.Batch.ID)
	assert.Nil(t, byID.Farmer, "unknown farmer is optional")

	byCode, err := l.ResolveByExternalKey(context.Background(), "CT-LEGACY-9")
	require.NoError(t, err)
	require.NotNil(t, byCode)
	assert.Equal(t, "contract_code", byCode.ResolvedBy)
	assert.Equal(t, newest.ID, byCode.Batch.ID)
}

func TestResolveMissReturnsNil(t *testing.T) {
	l, st := newLog(t)
	seedBatch(t, st, "B-TEST0001", nil, nil)

	for _, key := range []string{"", uuid.NewString(), "B-ZZZZZZZZ"} {
		p, err := l.ResolveByExternalKey(context.Background(), key)
		assert.NoError(t, err)
		assert.Nil(t, p, key)
	}
}

func TestResolverOrderPrefersBatchCode(t *testing.T) {
	l, st := newLog(t)
	// a contract whose id collides with a batch code must not shadow the batch
	viaContract := seedBatch(t, st, "B-CONTRACT", strPtr("B-SHARED01"), nil)
	direct := seedBatch(t, st, "B-SHARED01", nil, nil)

	p, err := l.ResolveByExternalKey(context.Background(), "B-SHARED01")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, direct.ID, p.Batch.ID)
	assert.NotEqual(t, viaContract.ID, p.Batch.ID)
}
