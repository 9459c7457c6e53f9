package store

import (
	"context"
	"log"
	"sort"
	"sync"

	"agrochain/internal/models"
)

type memoryEvent struct {
	event    models.TraceabilityEvent
	status   string
	attempts int
	lastErr  string
}

// MemoryStore keeps everything in process memory. Used for local runs without
// Postgres and by tests.
type MemoryStore struct {
	mu         sync.RWMutex
	logger     *log.Logger
	batches    map[string]*models.Batch
	codes      map[string]string // batch_code -> id
	batchOrder []string
	contracts  map[string]*models.Contract
	farmers    map[string]*models.Farmer
	events     []*memoryEvent
	eventIdx   map[string]*memoryEvent
	results    map[string]*models.ProcessingResult
	activities []models.GrowthActivity
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore(logger *log.Logger) *MemoryStore {
	return &MemoryStore{
		logger:    logger,
		batches:   make(map[string]*models.Batch),
		codes:     make(map[string]string),
		contracts: make(map[string]*models.Contract),
		farmers:   make(map[string]*models.Farmer),
		eventIdx:  make(map[string]*memoryEvent),
		results:   make(map[string]*models.ProcessingResult),
	}
}

// PutContract seeds a contract summary
func (m *MemoryStore) PutContract(c models.Contract) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contracts[c.ID] = &c
}

// PutFarmer seeds a farmer profile
func (m *MemoryStore) PutFarmer(f models.Farmer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.farmers[f.ID] = &f
}

func (m *MemoryStore) CreateBatch(_ context.Context, b *models.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.codes[b.BatchCode]; ok {
		return ErrDuplicate
	}
	if _, ok := m.batches[b.ID]; ok {
		return ErrDuplicate
	}
	now := timeNow()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	cp := *b
	m.batches[b.ID] = &cp
	m.codes[b.BatchCode] = b.ID
	m.batchOrder = append(m.batchOrder, b.ID)
	return nil
}

func (m *MemoryStore) GetBatchByID(_ context.Context, id string) (*models.Batch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.batches[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *MemoryStore) GetBatchByCode(ctx context.Context, code string) (*models.Batch, error) {
	m.mu.RLock()
	id, ok := m.codes[code]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return m.GetBatchByID(ctx, id)
}

func (m *MemoryStore) FindLatestBatchByContract(_ context.Context, contractID string) (*models.Batch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *models.Batch
	for _, id := range m.batchOrder {
		b := m.batches[id]
		if b.ContractID == nil || *b.ContractID != contractID {
			continue
		}
		// ties on created_at go to the later insert
		if latest == nil || !b.CreatedAt.Before(latest.CreatedAt) {
			latest = b
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *MemoryStore) ListBatchesByFarmer(_ context.Context, farmerID string) ([]models.Batch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.Batch{}
	for i := len(m.batchOrder) - 1; i >= 0; i-- {
		b := m.batches[m.batchOrder[i]]
		if b.FarmerID != nil && *b.FarmerID == farmerID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *MemoryStore) UpdateBatchStatus(_ context.Context, id string, status models.BatchStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok {
		return ErrNotFound
	}
	b.CurrentStatus = status
	b.UpdatedAt = timeNow()
	return nil
}

func (m *MemoryStore) UpdateBatchLocation(_ context.Context, id, location string, lat, lng *float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok {
		return ErrNotFound
	}
	b.CurrentLocation = location
	b.LocationLat = lat
	b.LocationLng = lng
	b.UpdatedAt = timeNow()
	return nil
}

func (m *MemoryStore) GetContract(_ context.Context, id string) (*models.Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.contracts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MemoryStore) GetContractByCode(_ context.Context, code string) (*models.Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.contracts {
		if c.ContractCode == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) GetFarmer(_ context.Context, id string) (*models.Farmer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.farmers[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (m *MemoryStore) InsertEvent(_ context.Context, ev *models.TraceabilityEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.eventIdx[ev.ID]; ok {
		return ErrDuplicate
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = timeNow()
	}
	me := &memoryEvent{event: *ev, status: AnchorPending}
	m.events = append(m.events, me)
	m.eventIdx[ev.ID] = me
	return nil
}

func (m *MemoryStore) ListEventsByBatch(_ context.Context, batchID string) ([]models.TraceabilityEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.TraceabilityEvent{}
	for _, me := range m.events {
		if me.event.BatchID == batchID {
			out = append(out, me.event)
		}
	}
	// insertion order breaks ties
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) GetAndMarkEventsForAnchoring(_ context.Context, eventIDs []string, maxRetries int) (map[string]*AnchorTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tasks := make(map[string]*AnchorTask, len(eventIDs))
	for _, id := range eventIDs {
		me, ok := m.eventIdx[id]
		if !ok || me.status == AnchorAnchored || me.status == AnchorFailed {
			continue
		}
		if me.attempts >= maxRetries {
			me.status = AnchorFailed
		} else {
			me.status = AnchorAnchoring
			me.attempts++
		}
		tasks[id] = &AnchorTask{EventID: id, EventHash: me.event.EventHash, Status: me.status, Attempts: me.attempts}
	}
	return tasks, nil
}

func (m *MemoryStore) MarkAnchorsCompleted(_ context.Context, records []AnchorCompletion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		me, ok := m.eventIdx[r.EventID]
		if !ok {
			continue
		}
		me.status = AnchorAnchored
		me.event.AnchorTxHash = r.TxHash
		me.event.AnchorBlockHeight = r.BlockHeight
	}
	return nil
}

func (m *MemoryStore) MarkAnchorsFailed(_ context.Context, records []AnchorFailure) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		if me, ok := m.eventIdx[r.EventID]; ok {
			me.status = AnchorFailed
			me.lastErr = r.ErrorMessage
		}
	}
	return nil
}

func (m *MemoryStore) MarkAnchorsForRetry(_ context.Context, eventIDs []string, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range eventIDs {
		if me, ok := m.eventIdx[id]; ok && me.status == AnchorAnchoring {
			me.status = AnchorPending
			me.lastErr = errMsg
		}
	}
	return nil
}

// AnchorStatus returns the anchoring status of an event, for tests and diagnostics
func (m *MemoryStore) AnchorStatus(eventID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	me, ok := m.eventIdx[eventID]
	if !ok {
		return "", false
	}
	return me.status, true
}

func (m *MemoryStore) GetProcessingResult(_ context.Context, batchID string) (*models.ProcessingResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.results[batchID]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

func (m *MemoryStore) SaveProcessingResult(_ context.Context, r *models.ProcessingResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.UpdatedAt = timeNow()
	m.results[r.BatchID] = r.Clone()
	return nil
}

func (m *MemoryStore) InsertActivity(_ context.Context, a *models.GrowthActivity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = timeNow()
	}
	m.activities = append(m.activities, *a)
	return nil
}

func (m *MemoryStore) ListActivitiesByContract(_ context.Context, contractID, farmerID string) ([]models.GrowthActivity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.GrowthActivity{}
	for _, a := range m.activities {
		if a.ContractID != contractID {
			continue
		}
		if farmerID != "" && a.FarmerID != farmerID {
			continue
		}
		out = append(out, a)
	}
	sortActivitiesDesc(out)
	return out, nil
}

func (m *MemoryStore) ListActivitiesByFarmer(_ context.Context, farmerID string, limit int) ([]models.GrowthActivity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.GrowthActivity{}
	for _, a := range m.activities {
		if a.FarmerID == farmerID {
			out = append(out, a)
		}
	}
	sortActivitiesDesc(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortActivitiesDesc(list []models.GrowthActivity) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].ActivityDate.Equal(list[j].ActivityDate) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ActivityDate.After(list[j].ActivityDate)
	})
}

// Close is a no-op for the in-memory store
func (m *MemoryStore) Close() {
	if m.logger != nil {
		m.logger.Println("Memory store closed.")
	}
}

var _ Store = (*MemoryStore)(nil)
