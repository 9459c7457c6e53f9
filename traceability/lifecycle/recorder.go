package lifecycle

import (
	"context"
	"fmt"
	"log"

	"agrochain/internal/models"
	"agrochain/traceability/events"
)

// Recorder builds typed events over the event log and moves the batch status
// alongside. The status is written first; if that write fails the failure is
// logged and the event is still appended, so status can lag the event history.
type Recorder struct {
	machine *Machine
	log     *events.Log
	logger  *log.Logger
}

// NewRecorder creates a Recorder
func NewRecorder(machine *Machine, eventLog *events.Log, logger *log.Logger) *Recorder {
	return &Recorder{machine: machine, log: eventLog, logger: logger}
}

// Common carries the envelope fields every convenience logger accepts
type Common struct {
	Actor       models.Actor     `json:"actor"`
	Title       string           `json:"event_title,omitempty"`
	Description string           `json:"event_description,omitempty"`
	Location    *models.Location `json:"location,omitempty"`
	Photos      []string         `json:"photos,omitempty"`
	Documents   []string         `json:"documents,omitempty"`
	IPFSHash    string           `json:"ipfs_hash,omitempty"`
}

func (c Common) event(batchID string, t models.EventType, defaultTitle string, d models.Detail) *models.TraceabilityEvent {
	title := c.Title
	if title == "" {
		title = defaultTitle
	}
	return &models.TraceabilityEvent{
		BatchID:     batchID,
		EventType:   t,
		Title:       title,
		Description: c.Description,
		Actor:       c.Actor,
		Location:    c.Location,
		Photos:      c.Photos,
		Documents:   c.Documents,
		IPFSHash:    c.IPFSHash,
		Detail:      d,
	}
}

// record validates ev, applies target (if any) best effort, then appends ev
func (r *Recorder) record(ctx context.Context, target models.BatchStatus, ev *models.TraceabilityEvent) (*models.TraceabilityEvent, error) {
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	if target != "" {
		if err := r.machine.Transition(ctx, ev.BatchID, target); err != nil {
			r.logger.Printf("Status update to %s failed for batch %s, appending %s event anyway: %v",
				target, ev.BatchID, ev.EventType, err)
		}
	}
	return r.log.AddEvent(ctx, ev)
}

// MilestoneInput is the optional context attached to a milestone event
type MilestoneInput struct {
	Common
	Detail models.Detail `json:"-"`
}

// ApplyMilestone sets the milestone's target status and appends its event.
// An unknown milestone name is logged and ignored: (nil, nil).
func (r *Recorder) ApplyMilestone(ctx context.Context, batchID, name string, in MilestoneInput) (*models.TraceabilityEvent, error) {
	ms, ok := LookupMilestone(name)
	if !ok {
		r.logger.Printf("Unknown milestone '%s' for batch %s, ignoring", name, batchID)
		return nil, nil
	}
	return r.record(ctx, ms.Target, in.event(batchID, ms.EventType, ms.Title, in.Detail))
}

// LogMilestone is ApplyMilestone with only an actor
func (r *Recorder) LogMilestone(ctx context.Context, batchID, name string, actor models.Actor) (*models.TraceabilityEvent, error) {
	return r.ApplyMilestone(ctx, batchID, name, MilestoneInput{Common: Common{Actor: actor}})
}

// TransportPhase selects which transport event is logged
type TransportPhase string

const (
	TransportStart      TransportPhase = "start"
	TransportCheckpoint TransportPhase = "checkpoint"
	TransportEnd        TransportPhase = "end"
)

// TransportInput describes a transport leg event
type TransportInput struct {
	Common
	Phase     TransportPhase         `json:"phase"`
	Transport models.TransportDetail `json:"transport"`
}

// LogTransport appends a transport event. Start and checkpoint move the batch to
// in_transit; the end of a leg leaves the status to whatever happens next.
func (r *Recorder) LogTransport(ctx context.Context, batchID string, in TransportInput) (*models.TraceabilityEvent, error) {
	var (
		eventType models.EventType
		title     string
		target    models.BatchStatus
	)
	switch in.Phase {
	case TransportStart, "":
		eventType, title, target = models.EventTransportStart, "Transport Started", models.StatusInTransit
		if in.Transport.Destination != "" {
			title = "Transport Started to " + in.Transport.Destination
		}
	case TransportCheckpoint:
		eventType, title, target = models.EventTransportCheckpoint, "Transport Checkpoint", models.StatusInTransit
	case TransportEnd:
		eventType, title = models.EventTransportEnd, "Transport Completed"
	default:
		return nil, &models.ValidationError{Field: "phase", Message: fmt.Sprintf("unknown transport phase '%s'", in.Phase)}
	}
	ev, err := r.record(ctx, target, in.event(batchID, eventType, title, in.Transport))
	if err != nil {
		return nil, err
	}
	r.trackLocation(ctx, batchID, in.Location, in.Transport.Destination, in.Phase == TransportEnd)
	return ev, nil
}

// StorageInput describes a storage event
type StorageInput struct {
	Common
	Storage models.StorageDetail `json:"storage"`
}

// LogStorage appends a storage event and moves the batch to stored
func (r *Recorder) LogStorage(ctx context.Context, batchID string, in StorageInput) (*models.TraceabilityEvent, error) {
	title := "Moved to Storage"
	if in.Storage.Facility != "" {
		title = "Stored at " + in.Storage.Facility
	}
	ev, err := r.record(ctx, models.StatusStored, in.event(batchID, models.EventStorage, title, in.Storage))
	if err != nil {
		return nil, err
	}
	r.trackLocation(ctx, batchID, in.Location, in.Storage.Facility, true)
	return ev, nil
}

// VerificationInput describes a field verification
type VerificationInput struct {
	Common
	Verification models.VerificationDetail `json:"verification"`
}

// LogVerification appends a verification event; the status is unchanged
func (r *Recorder) LogVerification(ctx context.Context, batchID string, in VerificationInput) (*models.TraceabilityEvent, error) {
	title := "Field Verification"
	if in.Verification.Outcome != "" {
		title = "Field Verification: " + in.Verification.Outcome
	}
	return r.record(ctx, "", in.event(batchID, models.EventVerification, title, in.Verification))
}

// DiagnosticInput describes an AI crop diagnostic result
type DiagnosticInput struct {
	Common
	Diagnostic models.DiagnosticDetail `json:"diagnostic"`
}

// LogDiagnostic appends an ai_diagnostic event; the status is unchanged
func (r *Recorder) LogDiagnostic(ctx context.Context, batchID string, in DiagnosticInput) (*models.TraceabilityEvent, error) {
	title := "AI Crop Diagnostic"
	if in.Diagnostic.Diagnosis != "" {
		title = "AI Diagnostic: " + in.Diagnostic.Diagnosis
	}
	return r.record(ctx, "", in.event(batchID, models.EventAIDiagnostic, title, in.Diagnostic))
}

// trackLocation copies the event position onto the batch, best effort
func (r *Recorder) trackLocation(ctx context.Context, batchID string, loc *models.Location, fallback string, useFallback bool) {
	name := ""
	var lat, lng *float64
	if loc != nil {
		name, lat, lng = loc.Address, loc.Lat, loc.Lng
	}
	if name == "" && useFallback {
		name = fallback
	}
	if name == "" && lat == nil && lng == nil {
		return
	}
	if err := r.machine.batches.UpdateBatchLocation(ctx, batchID, name, lat, lng); err != nil {
		r.logger.Printf("Location update failed for batch %s: %v", batchID, err)
	}
}
