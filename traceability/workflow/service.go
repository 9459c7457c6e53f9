package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"agrochain/internal/models"
	"agrochain/storage/store"
	"agrochain/traceability/events"
	"agrochain/traceability/lifecycle"
)

// Store is the persistence the workflow needs
type Store interface {
	store.BatchStore
	store.ProcessingStore
}

// Session is an opened workflow: the batch, its current result and the step to show
type Session struct {
	Batch  *models.Batch            `json:"batch"`
	Result *models.ProcessingResult `json:"result"`
	Step   Step                     `json:"step"`
	// StepName mirrors Step for readers of the JSON
	StepName string `json:"step_name"`
}

// DispatchInput describes the distribution leg after completion
type DispatchInput struct {
	lifecycle.Common
	Transport models.TransportDetail `json:"transport"`
}

// Service runs the workflow against persistence, the status machine and the event log
type Service struct {
	store   Store
	wizard  *Wizard
	machine *lifecycle.Machine
	events  *events.Log
	minter  Minter
	logger  *log.Logger
}

// NewService creates a workflow Service. minter may be nil, in which case
// completion fails with ErrMint.
func NewService(st Store, machine *lifecycle.Machine, eventLog *events.Log, minter Minter, logger *log.Logger) *Service {
	return &Service{
		store:   st,
		wizard:  NewWizard(),
		machine: machine,
		events:  eventLog,
		minter:  minter,
		logger:  logger,
	}
}

// Wizard exposes the pure workflow rules
func (s *Service) Wizard() *Wizard {
	return s.wizard
}

func (s *Service) load(ctx context.Context, batchID string) (*models.ProcessingResult, error) {
	r, err := s.store.GetProcessingResult(ctx, batchID)
	if errors.Is(err, store.ErrNotFound) {
		return models.NewProcessingResult(batchID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load processing result for batch %s: %w", batchID, err)
	}
	return r, nil
}

func (s *Service) session(b *models.Batch, r *models.ProcessingResult) *Session {
	step := s.wizard.ResumeStep(r)
	return &Session{Batch: b, Result: r, Step: step, StepName: step.String()}
}

// Get returns the saved (or empty) result and resume step without side effects
func (s *Service) Get(ctx context.Context, batchID string) (*Session, error) {
	b, err := s.store.GetBatchByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	r, err := s.load(ctx, batchID)
	if err != nil {
		return nil, err
	}
	return s.session(b, r), nil
}

// Open starts or resumes the workflow. A batch that has not reached the
// warehouse yet is moved to at_warehouse and a warehouse_arrival event is appended.
// When saved work resumes past quality check the batch is moved to processing.
func (s *Service) Open(ctx context.Context, batchID string, actor models.Actor) (*Session, error) {
	sess, err := s.Get(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if sess.Batch.CurrentStatus.Rank() < models.StatusAtWarehouse.Rank() {
		s.arrive(ctx, sess.Batch, actor)
	}
	if sess.Step > StepQualityCheck {
		if changed, err := s.machine.Advance(ctx, batchID, models.StatusProcessing); err != nil {
			s.logger.Printf("Workflow: status update to processing failed for batch %s: %v", sess.Batch.BatchCode, err)
		} else if changed {
			sess.Batch.CurrentStatus = models.StatusProcessing
		}
	}
	return sess, nil
}

func (s *Service) arrive(ctx context.Context, b *models.Batch, actor models.Actor) {
	if err := s.machine.Transition(ctx, b.ID, models.StatusAtWarehouse); err != nil {
		s.logger.Printf("Workflow: status update to at_warehouse failed for batch %s: %v", b.BatchCode, err)
	} else {
		b.CurrentStatus = models.StatusAtWarehouse
	}
	facility := actor.Name
	if facility == "" {
		facility = "Warehouse"
	}
	s.appendBestEffort(ctx, &models.TraceabilityEvent{
		BatchID:   b.ID,
		EventType: models.EventWarehouseArrival,
		Title:     "Arrived at Warehouse",
		Actor:     actor,
		Detail:    models.StorageDetail{Facility: facility},
	})
}

// Save persists the operator's edits as they are. Completion fields are owned by
// Complete and are cleared here. Save never changes the batch status.
func (s *Service) Save(ctx context.Context, batchID string, r *models.ProcessingResult) (*Session, error) {
	if r == nil {
		return nil, &models.ValidationError{Field: "result", Message: "is required"}
	}
	b, err := s.store.GetBatchByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	saved, err := s.load(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if saved.NFTMinted {
		return nil, ErrFinalized
	}

	draft := r.Clone()
	draft.BatchID = batchID
	draft.ReadyForDistribution = false
	draft.NFTMinted = false
	draft.NFTTxHash = ""
	draft.MetadataURL = ""
	draft.ExplorerURL = ""
	draft.CompletedAt = nil
	if err := s.wizard.Save(ctx, draft, s.store); err != nil {
		return nil, err
	}

	return s.session(b, draft), nil
}

// Complete finalizes the workflow. r may be nil to complete the saved result.
// On any failure before minting succeeds nothing is written.
func (s *Service) Complete(ctx context.Context, batchID string, r *models.ProcessingResult, actor models.Actor) (*models.ProcessingResult, error) {
	b, err := s.store.GetBatchByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	saved, err := s.load(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if saved.NFTMinted {
		return nil, ErrFinalized
	}
	if r == nil {
		r = saved
	}
	r = r.Clone()
	r.BatchID = batchID

	if s.minter == nil {
		return nil, fmt.Errorf("%w: minting is not configured", ErrMint)
	}
	done, err := s.wizard.Complete(ctx, r, s.mintRequest(ctx, b, r), s.minter)
	if err != nil {
		s.logger.Printf("Workflow: completion of batch %s failed: %v", b.BatchCode, err)
		return nil, err
	}

	if err := s.store.SaveProcessingResult(ctx, done); err != nil {
		// the certificate exists on the ledger; keep its tx in the log for manual repair
		s.logger.Printf("Workflow: batch %s minted (tx %s) but result could not be saved: %v", b.BatchCode, done.NFTTxHash, err)
		return nil, fmt.Errorf("failed to save completed processing result: %w", err)
	}
	if err := s.machine.Transition(ctx, batchID, models.StatusPackaged); err != nil {
		s.logger.Printf("Workflow: status update to packaged failed for batch %s: %v", b.BatchCode, err)
	}
	s.recordCompletion(ctx, batchID, done, actor)
	s.logger.Printf("Workflow: batch %s completed, certificate tx %s", b.BatchCode, done.NFTTxHash)
	return done, nil
}

// Dispatch sends a completed batch to distribution
func (s *Service) Dispatch(ctx context.Context, batchID string, in DispatchInput) (*models.TraceabilityEvent, error) {
	b, err := s.store.GetBatchByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	r, err := s.load(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if !r.NFTMinted || !r.ReadyForDistribution {
		return nil, &GateError{Step: StepConfirmation, Message: "processing must be completed before dispatch"}
	}

	title := "Dispatched for Distribution"
	if in.Transport.Destination != "" {
		title = "Dispatched to " + in.Transport.Destination
	}
	if in.Title != "" {
		title = in.Title
	}
	ev := &models.TraceabilityEvent{
		BatchID:     batchID,
		EventType:   models.EventDistribution,
		Title:       title,
		Description: in.Description,
		Actor:       in.Actor,
		Location:    in.Location,
		Photos:      in.Photos,
		Documents:   in.Documents,
		Detail:      in.Transport,
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	if err := s.machine.Transition(ctx, batchID, models.StatusDistributed); err != nil {
		s.logger.Printf("Workflow: status update to distributed failed for batch %s: %v", b.BatchCode, err)
	}
	return s.events.AddEvent(ctx, ev)
}

func (s *Service) mintRequest(ctx context.Context, b *models.Batch, r *models.ProcessingResult) MintRequest {
	farmerName := ""
	if b.FarmerID != nil {
		if f, err := s.store.GetFarmer(ctx, *b.FarmerID); err == nil {
			farmerName = f.FullName
		} else if !errors.Is(err, store.ErrNotFound) {
			s.logger.Printf("Workflow: farmer lookup for batch %s failed: %v", b.BatchCode, err)
		}
	}

	quantity := r.Sorting.GradeA + r.Sorting.GradeB
	if quantity <= 0 {
		quantity = b.TotalQuantity
	}
	methods := []string{}
	if r.Processing.Applicable {
		methods = append(methods, r.Processing.Methods...)
	}
	certs := []string{}
	if b.OrganicCertified {
		certs = append(certs, "Organic")
	}
	if r.QualityCheck.Grade != "" {
		certs = append(certs, "Quality: "+r.QualityCheck.Grade)
	}

	return MintRequest{
		BatchCode:         b.BatchCode,
		CropType:          b.CropType,
		FarmerName:        farmerName,
		Quantity:          quantity,
		QualityGrade:      r.QualityCheck.Grade,
		ProcessingMethods: methods,
		ProductionDate:    r.ProductionDate,
		ExpiryDate:        r.ExpiryDate,
		StorageConditions: r.StorageConditions,
		IsOrganic:         b.OrganicCertified,
		Certifications:    certs,
	}
}

// recordCompletion appends one event per finished step plus the certificate
func (s *Service) recordCompletion(ctx context.Context, batchID string, r *models.ProcessingResult, actor models.Actor) {
	passed := r.QualityCheck.Passed
	s.appendBestEffort(ctx, &models.TraceabilityEvent{
		BatchID: batchID, EventType: models.EventQualityCheck, Actor: actor,
		Title:  "Quality Check Passed: " + r.QualityCheck.Grade,
		Detail: models.QualityDetail{Grade: r.QualityCheck.Grade, Passed: &passed, Notes: r.QualityCheck.Notes},
	})

	sorted := r.Sorting.GradeA + r.Sorting.GradeB
	s.appendBestEffort(ctx, &models.TraceabilityEvent{
		BatchID: batchID, EventType: models.EventSorting, Actor: actor,
		Title: "Sorting & Grading Completed",
		Description: fmt.Sprintf("Grade A: %g kg, Grade B: %g kg, Rejected: %g kg",
			r.Sorting.GradeA, r.Sorting.GradeB, r.Sorting.Rejected),
		Detail: models.QualityDetail{Grade: r.QualityCheck.Grade, Quantity: &sorted, Unit: "kg"},
	})

	if r.Processing.Applicable && r.Processing.Completed {
		s.appendBestEffort(ctx, &models.TraceabilityEvent{
			BatchID: batchID, EventType: models.EventProcessing, Actor: actor,
			Title:       "Processing Completed",
			Description: strings.Join(r.Processing.Methods, ", "),
			Detail:      models.QualityDetail{Grade: r.QualityCheck.Grade, Notes: r.Processing.Notes},
		})
	}

	count := float64(r.Packaging.PackageCount)
	s.appendBestEffort(ctx, &models.TraceabilityEvent{
		BatchID: batchID, EventType: models.EventPackaging, Actor: actor,
		Title:  fmt.Sprintf("Packaged: %d x %s", r.Packaging.PackageCount, r.Packaging.PackageType),
		Detail: models.QualityDetail{Grade: r.QualityCheck.Grade, Quantity: &count, Unit: r.Packaging.PackageType},
	})

	s.appendBestEffort(ctx, &models.TraceabilityEvent{
		BatchID: batchID, EventType: models.EventCertification, Actor: actor,
		Title:        "Certificate Minted",
		BlockchainTx: r.NFTTxHash,
		Detail: models.CertificateDetail{
			TransactionHash: r.NFTTxHash,
			MetadataURL:     r.MetadataURL,
			ExplorerURL:     r.ExplorerURL,
		},
	})
}

func (s *Service) appendBestEffort(ctx context.Context, ev *models.TraceabilityEvent) {
	if _, err := s.events.AddEvent(ctx, ev); err != nil {
		s.logger.Printf("Workflow: failed to append %s event for batch %s: %v", ev.EventType, ev.BatchID, err)
	}
}
