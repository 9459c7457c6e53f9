package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"agrochain/config"
	"agrochain/internal/models"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const pgUniqueViolation = "23505"

// PostgresStore implements Store on a pgx connection pool
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

// NewPostgresStore connects the pool described by cfg and verifies it with a ping
func NewPostgresStore(ctx context.Context, cfg config.DatabaseConfig, logger *log.Logger) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("invalid database DSN: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConnections)
	poolCfg.MinConns = int32(cfg.MinConnections)
	if d, err := time.ParseDuration(cfg.MaxIdleTime); err == nil {
		poolCfg.MaxConnIdleTime = d
	} else {
		logger.Printf("Warning: Invalid max_idle_time '%s', keeping pool default", cfg.MaxIdleTime)
	}
	if d, err := time.ParseDuration(cfg.MaxLifetime); err == nil {
		poolCfg.MaxConnLifetime = d
	} else {
		logger.Printf("Warning: Invalid max_lifetime '%s', keeping pool default", cfg.MaxLifetime)
	}

	pool, err := pgxpool.ConnectConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	logger.Printf("Postgres pool ready (min=%d, max=%d)", cfg.MinConnections, cfg.MaxConnections)
	return &PostgresStore{pool: pool, logger: logger}, nil
}

// Migrate creates missing tables and indexes
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema migration failed: %w", err)
		}
	}
	s.logger.Println("Database schema is up to date.")
	return nil
}

// Close releases all pool connections
func (s *PostgresStore) Close() {
	s.logger.Println("Closing Postgres pool...")
	s.pool.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func translateErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

// --- batches ---

const batchColumns = `id, batch_code, crop_type, variety, total_quantity, unit, quality_grade,
	organic_certified, harvest_date, current_status, current_location, location_lat, location_lng,
	contract_id, farmer_id, created_at, updated_at`

func scanBatch(row rowScanner) (*models.Batch, error) {
	var b models.Batch
	var status string
	err := row.Scan(&b.ID, &b.BatchCode, &b.CropType, &b.Variety, &b.TotalQuantity, &b.Unit, &b.QualityGrade,
		&b.OrganicCertified, &b.HarvestDate, &status, &b.CurrentLocation, &b.LocationLat, &b.LocationLng,
		&b.ContractID, &b.FarmerID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	b.CurrentStatus = models.BatchStatus(status)
	return &b, nil
}

func (s *PostgresStore) CreateBatch(ctx context.Context, b *models.Batch) error {
	now := timeNow()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	_, err := s.pool.Exec(ctx, `INSERT INTO batches (`+batchColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		b.ID, b.BatchCode, b.CropType, b.Variety, b.TotalQuantity, b.Unit, b.QualityGrade,
		b.OrganicCertified, b.HarvestDate, string(b.CurrentStatus), b.CurrentLocation, b.LocationLat, b.LocationLng,
		b.ContractID, b.FarmerID, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert batch %s: %w", b.BatchCode, translateErr(err))
	}
	return nil
}

func (s *PostgresStore) GetBatchByID(ctx context.Context, id string) (*models.Batch, error) {
	return scanBatch(s.pool.QueryRow(ctx, `SELECT `+batchColumns+` FROM batches WHERE id = $1`, id))
}

func (s *PostgresStore) GetBatchByCode(ctx context.Context, code string) (*models.Batch, error) {
	return scanBatch(s.pool.QueryRow(ctx, `SELECT `+batchColumns+` FROM batches WHERE batch_code = $1`, code))
}

func (s *PostgresStore) FindLatestBatchByContract(ctx context.Context, contractID string) (*models.Batch, error) {
	return scanBatch(s.pool.QueryRow(ctx, `SELECT `+batchColumns+` FROM batches
		WHERE contract_id = $1 ORDER BY created_at DESC LIMIT 1`, contractID))
}

func (s *PostgresStore) ListBatchesByFarmer(ctx context.Context, farmerID string) ([]models.Batch, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+batchColumns+` FROM batches
		WHERE farmer_id = $1 ORDER BY created_at DESC`, farmerID)
	if err != nil {
		return nil, fmt.Errorf("list batches for farmer %s: %w", farmerID, err)
	}
	defer rows.Close()
	out := []models.Batch{}
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateBatchStatus(ctx context.Context, id string, status models.BatchStatus) error {
	tag, err := s.pool.Exec(ctx, `UPDATE batches SET current_status = $2, updated_at = $3 WHERE id = $1`,
		id, string(status), timeNow())
	if err != nil {
		return fmt.Errorf("update status of batch %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateBatchLocation(ctx context.Context, id, location string, lat, lng *float64) error {
	tag, err := s.pool.Exec(ctx, `UPDATE batches SET current_location = $2, location_lat = $3, location_lng = $4,
		updated_at = $5 WHERE id = $1`, id, location, lat, lng, timeNow())
	if err != nil {
		return fmt.Errorf("update location of batch %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- contracts and farmers ---

func scanContract(row rowScanner) (*models.Contract, error) {
	var c models.Contract
	if err := row.Scan(&c.ID, &c.ContractCode, &c.FarmerID, &c.BuyerName, &c.CropType, &c.Status); err != nil {
		return nil, translateErr(err)
	}
	return &c, nil
}

func (s *PostgresStore) GetContract(ctx context.Context, id string) (*models.Contract, error) {
	return scanContract(s.pool.QueryRow(ctx, `SELECT id, contract_code, farmer_id, buyer_name, crop_type, status
		FROM contracts WHERE id = $1`, id))
}

func (s *PostgresStore) GetContractByCode(ctx context.Context, code string) (*models.Contract, error) {
	return scanContract(s.pool.QueryRow(ctx, `SELECT id, contract_code, farmer_id, buyer_name, crop_type, status
		FROM contracts WHERE contract_code = $1`, code))
}

func (s *PostgresStore) GetFarmer(ctx context.Context, id string) (*models.Farmer, error) {
	var f models.Farmer
	err := s.pool.QueryRow(ctx, `SELECT id, full_name, location, phone FROM farmers WHERE id = $1`, id).
		Scan(&f.ID, &f.FullName, &f.Location, &f.Phone)
	if err != nil {
		return nil, translateErr(err)
	}
	return &f, nil
}

// --- traceability events ---

const eventColumns = `id, batch_id, contract_id, farmer_id, event_type, event_title, event_description,
	actor_id, actor_type, actor_name, location_lat, location_lng, location_address, photos, documents,
	ipfs_hash, blockchain_tx, detail_kind, details, event_hash, created_at, anchor_tx_hash, anchor_block_height`

func (s *PostgresStore) InsertEvent(ctx context.Context, ev *models.TraceabilityEvent) error {
	var (
		lat, lng   *float64
		address    string
		detailKind string
		details    *string
	)
	if ev.Location != nil {
		lat, lng, address = ev.Location.Lat, ev.Location.Lng, ev.Location.Address
	}
	if ev.Detail != nil {
		raw, err := json.Marshal(ev.Detail)
		if err != nil {
			return fmt.Errorf("marshal event details: %w", err)
		}
		detailKind = string(ev.Detail.Kind())
		str := string(raw)
		details = &str
	}
	photos, documents := ev.Photos, ev.Documents
	if photos == nil {
		photos = []string{}
	}
	if documents == nil {
		documents = []string{}
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO traceability_events (id, batch_id, contract_id, farmer_id,
		event_type, event_title, event_description, actor_id, actor_type, actor_name,
		location_lat, location_lng, location_address, photos, documents, ipfs_hash, blockchain_tx,
		detail_kind, details, event_hash, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19::jsonb,$20,$21)`,
		ev.ID, ev.BatchID, ev.ContractID, ev.FarmerID,
		string(ev.EventType), ev.Title, ev.Description, ev.Actor.ID, string(ev.Actor.Type), ev.Actor.Name,
		lat, lng, address, photos, documents, ev.IPFSHash, ev.BlockchainTx,
		detailKind, details, ev.EventHash, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert event for batch %s: %w", ev.BatchID, translateErr(err))
	}
	return nil
}

func scanEvent(row rowScanner) (*models.TraceabilityEvent, error) {
	var (
		ev                   models.TraceabilityEvent
		eventType, actorType string
		lat, lng             *float64
		address, detailKind  string
		details              []byte
		anchorHeight         int64
	)
	err := row.Scan(&ev.ID, &ev.BatchID, &ev.ContractID, &ev.FarmerID, &eventType, &ev.Title, &ev.Description,
		&ev.Actor.ID, &actorType, &ev.Actor.Name, &lat, &lng, &address, &ev.Photos, &ev.Documents,
		&ev.IPFSHash, &ev.BlockchainTx, &detailKind, &details, &ev.EventHash, &ev.CreatedAt,
		&ev.AnchorTxHash, &anchorHeight)
	if err != nil {
		return nil, translateErr(err)
	}
	ev.EventType = models.EventType(eventType)
	ev.Actor.Type = models.ActorType(actorType)
	ev.AnchorBlockHeight = uint64(anchorHeight)
	if lat != nil || lng != nil || address != "" {
		ev.Location = &models.Location{Lat: lat, Lng: lng, Address: address}
	}
	if detailKind != "" && len(details) > 0 {
		d, err := models.DecodeDetail(models.DetailKind(detailKind), details)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", ev.ID, err)
		}
		ev.Detail = d
	}
	return &ev, nil
}

func (s *PostgresStore) ListEventsByBatch(ctx context.Context, batchID string) ([]models.TraceabilityEvent, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+eventColumns+` FROM traceability_events
		WHERE batch_id = $1 ORDER BY created_at ASC, seq ASC`, batchID)
	if err != nil {
		return nil, fmt.Errorf("list events for batch %s: %w", batchID, err)
	}
	defer rows.Close()
	out := []models.TraceabilityEvent{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ev)
	}
	return out, rows.Err()
}

// --- anchoring ---

func (s *PostgresStore) GetAndMarkEventsForAnchoring(ctx context.Context, eventIDs []string, maxRetries int) (map[string]*AnchorTask, error) {
	rows, err := s.pool.Query(ctx, `UPDATE traceability_events SET
			anchor_status = CASE WHEN anchor_attempts >= $2 THEN 'FAILED' ELSE 'ANCHORING' END,
			anchor_attempts = CASE WHEN anchor_attempts >= $2 THEN anchor_attempts ELSE anchor_attempts + 1 END
		WHERE id = ANY($1) AND anchor_status IN ('PENDING', 'ANCHORING')
		RETURNING id, event_hash, anchor_status, anchor_attempts`, eventIDs, maxRetries)
	if err != nil {
		return nil, fmt.Errorf("mark events for anchoring: %w", err)
	}
	defer rows.Close()
	tasks := make(map[string]*AnchorTask, len(eventIDs))
	for rows.Next() {
		var t AnchorTask
		if err := rows.Scan(&t.EventID, &t.EventHash, &t.Status, &t.Attempts); err != nil {
			return nil, err
		}
		tasks[t.EventID] = &t
	}
	return tasks, rows.Err()
}

func (s *PostgresStore) MarkAnchorsCompleted(ctx context.Context, records []AnchorCompletion) error {
	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(`UPDATE traceability_events SET anchor_status = 'ANCHORED', anchor_tx_hash = $2,
			anchor_block_height = $3, anchor_error = '' WHERE id = $1`, r.EventID, r.TxHash, int64(r.BlockHeight))
	}
	return s.sendBatch(ctx, batch, len(records))
}

func (s *PostgresStore) MarkAnchorsFailed(ctx context.Context, records []AnchorFailure) error {
	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(`UPDATE traceability_events SET anchor_status = 'FAILED', anchor_error = $2 WHERE id = $1`,
			r.EventID, r.ErrorMessage)
	}
	return s.sendBatch(ctx, batch, len(records))
}

func (s *PostgresStore) MarkAnchorsForRetry(ctx context.Context, eventIDs []string, errMsg string) error {
	_, err := s.pool.Exec(ctx, `UPDATE traceability_events SET anchor_status = 'PENDING', anchor_error = $2
		WHERE id = ANY($1) AND anchor_status = 'ANCHORING'`, eventIDs, errMsg)
	if err != nil {
		return fmt.Errorf("mark events for retry: %w", err)
	}
	return nil
}

func (s *PostgresStore) sendBatch(ctx context.Context, batch *pgx.Batch, n int) error {
	if n == 0 {
		return nil
	}
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch statement %d failed: %w", i, err)
		}
	}
	return nil
}

// --- processing results ---

func (s *PostgresStore) GetProcessingResult(ctx context.Context, batchID string) (*models.ProcessingResult, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM processing_results WHERE batch_id = $1`, batchID).Scan(&raw)
	if err != nil {
		return nil, translateErr(err)
	}
	var r models.ProcessingResult
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode processing result of batch %s: %w", batchID, err)
	}
	return &r, nil
}

func (s *PostgresStore) SaveProcessingResult(ctx context.Context, r *models.ProcessingResult) error {
	r.UpdatedAt = timeNow()
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode processing result: %w", err)
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO processing_results (batch_id, data, updated_at)
		VALUES ($1, $2::jsonb, $3)
		ON CONFLICT (batch_id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		r.BatchID, string(raw), r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save processing result of batch %s: %w", r.BatchID, err)
	}
	return nil
}

// --- growth activities ---

const activityColumns = `id, contract_id, farmer_id, batch_id, activity_type, title, description,
	activity_date, quantity, unit, fertilizer, dispatch, photos, created_at`

func jsonOrNil(v interface{}) (*string, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(raw)
	return &s, nil
}

func (s *PostgresStore) InsertActivity(ctx context.Context, a *models.GrowthActivity) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = timeNow()
	}
	var fertilizer, dispatch *string
	var err error
	if a.Fertilizer != nil {
		if fertilizer, err = jsonOrNil(a.Fertilizer); err != nil {
			return fmt.Errorf("encode fertilizer info: %w", err)
		}
	}
	if a.Dispatch != nil {
		if dispatch, err = jsonOrNil(a.Dispatch); err != nil {
			return fmt.Errorf("encode dispatch info: %w", err)
		}
	}
	photos := a.Photos
	if photos == nil {
		photos = []string{}
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO growth_activities (`+activityColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11::jsonb,$12::jsonb,$13,$14)`,
		a.ID, a.ContractID, a.FarmerID, a.BatchID, string(a.ActivityType), a.Title, a.Description,
		a.ActivityDate, a.Quantity, a.Unit, fertilizer, dispatch, photos, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert activity: %w", translateErr(err))
	}
	return nil
}

func scanActivity(row rowScanner) (*models.GrowthActivity, error) {
	var (
		a                    models.GrowthActivity
		activityType         string
		fertilizer, dispatch []byte
	)
	err := row.Scan(&a.ID, &a.ContractID, &a.FarmerID, &a.BatchID, &activityType, &a.Title, &a.Description,
		&a.ActivityDate, &a.Quantity, &a.Unit, &fertilizer, &dispatch, &a.Photos, &a.CreatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	a.ActivityType = models.ActivityType(activityType)
	if len(fertilizer) > 0 {
		a.Fertilizer = &models.FertilizerInfo{}
		if err := json.Unmarshal(fertilizer, a.Fertilizer); err != nil {
			return nil, fmt.Errorf("decode fertilizer info of activity %s: %w", a.ID, err)
		}
	}
	if len(dispatch) > 0 {
		a.Dispatch = &models.DispatchInfo{}
		if err := json.Unmarshal(dispatch, a.Dispatch); err != nil {
			return nil, fmt.Errorf("decode dispatch info of activity %s: %w", a.ID, err)
		}
	}
	return &a, nil
}

func (s *PostgresStore) queryActivities(ctx context.Context, sql string, args ...interface{}) ([]models.GrowthActivity, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()
	out := []models.GrowthActivity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListActivitiesByContract(ctx context.Context, contractID, farmerID string) ([]models.GrowthActivity, error) {
	if farmerID == "" {
		return s.queryActivities(ctx, `SELECT `+activityColumns+` FROM growth_activities
			WHERE contract_id = $1 ORDER BY activity_date DESC, created_at DESC`, contractID)
	}
	return s.queryActivities(ctx, `SELECT `+activityColumns+` FROM growth_activities
		WHERE contract_id = $1 AND farmer_id = $2 ORDER BY activity_date DESC, created_at DESC`, contractID, farmerID)
}

func (s *PostgresStore) ListActivitiesByFarmer(ctx context.Context, farmerID string, limit int) ([]models.GrowthActivity, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.queryActivities(ctx, `SELECT `+activityColumns+` FROM growth_activities
		WHERE farmer_id = $1 ORDER BY activity_date DESC, created_at DESC LIMIT $2`, farmerID, limit)
}

var _ Store = (*PostgresStore)(nil)
