package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType classifies one fact in a batch's custody history
type EventType string

const (
	EventPlanting            EventType = "planting"
	EventGrowthUpdate        EventType = "growth_update"
	EventFertilizerApplied   EventType = "fertilizer_applied"
	EventPesticideApplied    EventType = "pesticide_applied"
	EventIrrigation          EventType = "irrigation"
	EventAIDiagnostic        EventType = "ai_diagnostic"
	EventVerification        EventType = "verification"
	EventHarvest             EventType = "harvest"
	EventQualityCheck        EventType = "quality_check"
	EventStorage             EventType = "storage"
	EventTransportStart      EventType = "transport_start"
	EventTransportCheckpoint EventType = "transport_checkpoint"
	EventTransportEnd        EventType = "transport_end"
	EventWarehouseArrival    EventType = "warehouse_arrival"
	EventSorting             EventType = "sorting"
	EventProcessing          EventType = "processing"
	EventPackaging           EventType = "packaging"
	EventCertification       EventType = "certification"
	EventDistribution        EventType = "distribution"
	EventRetailArrival       EventType = "retail_arrival"
	EventSold                EventType = "sold"
)

// detailKinds lists, per event type, which detail variants may accompany it.
// A type missing from the map accepts no detail at all.
var detailKinds = map[EventType][]DetailKind{
	EventPlanting:            {KindIoT},
	EventGrowthUpdate:        {KindIoT},
	EventFertilizerApplied:   {KindIoT},
	EventPesticideApplied:    {KindIoT},
	EventIrrigation:          {KindIoT},
	EventAIDiagnostic:        {KindDiagnostic},
	EventVerification:        {KindVerification},
	EventHarvest:             {KindQuality, KindIoT},
	EventQualityCheck:        {KindQuality},
	EventStorage:             {KindStorage, KindIoT},
	EventTransportStart:      {KindTransport},
	EventTransportCheckpoint: {KindTransport, KindIoT},
	EventTransportEnd:        {KindTransport},
	EventWarehouseArrival:    {KindStorage},
	EventSorting:             {KindQuality},
	EventProcessing:          {KindQuality},
	EventPackaging:           {KindQuality},
	EventCertification:       {KindCertificate},
	EventDistribution:        {KindTransport},
	EventRetailArrival:       {KindStorage},
	EventSold:                {KindQuality},
}

// Valid reports whether t is one of the closed set of event types
func (t EventType) Valid() bool {
	_, ok := detailKinds[t]
	return ok
}

// AllEventTypes returns the event types in pipeline order
func AllEventTypes() []EventType {
	return []EventType{
		EventPlanting, EventGrowthUpdate, EventFertilizerApplied, EventPesticideApplied,
		EventIrrigation, EventAIDiagnostic, EventVerification, EventHarvest,
		EventQualityCheck, EventStorage, EventTransportStart, EventTransportCheckpoint,
		EventTransportEnd, EventWarehouseArrival, EventSorting, EventProcessing,
		EventPackaging, EventCertification, EventDistribution, EventRetailArrival, EventSold,
	}
}

// ActorType identifies the role of whoever recorded an event
type ActorType string

const (
	ActorFarmer      ActorType = "farmer"
	ActorVerifier    ActorType = "verifier"
	ActorTransporter ActorType = "transporter"
	ActorWarehouse   ActorType = "warehouse"
	ActorProcessor   ActorType = "processor"
	ActorAdmin       ActorType = "admin"
)

// Actor records who performed an event
type Actor struct {
	ID   string    `json:"actor_id,omitempty"`
	Type ActorType `json:"actor_type,omitempty"`
	Name string    `json:"actor_name,omitempty"`
}

// Location is an optional geo position attached to an event
type Location struct {
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
	Address string   `json:"address,omitempty"`
}

// TraceabilityEvent is one immutable fact in a batch's history.
// The envelope is common to all event types; Detail carries the fields that only
// matter for the event's family (transport, storage, quality...).
type TraceabilityEvent struct {
	ID           string    `json:"id"`
	BatchID      string    `json:"batch_id"`
	ContractID   *string   `json:"contract_id,omitempty"`
	FarmerID     *string   `json:"farmer_id,omitempty"`
	EventType    EventType `json:"event_type"`
	Title        string    `json:"event_title"`
	Description  string    `json:"event_description,omitempty"`
	Actor        Actor     `json:"actor"`
	Location     *Location `json:"location,omitempty"`
	Photos       []string  `json:"photos,omitempty"`
	Documents    []string  `json:"documents,omitempty"`
	IPFSHash     string    `json:"ipfs_hash,omitempty"`
	BlockchainTx string    `json:"blockchain_tx,omitempty"`
	EventHash    string    `json:"event_hash"`
	CreatedAt    time.Time `json:"created_at"`
	Detail       Detail    `json:"-"`

	// Set by the anchor engine once the hash is recorded on the ledger
	AnchorTxHash      string `json:"anchor_tx_hash,omitempty"`
	AnchorBlockHeight uint64 `json:"anchor_block_height,omitempty"`
}

// Validate checks the required envelope fields and that the detail variant is
// allowed for the event type
func (e *TraceabilityEvent) Validate() error {
	if e.BatchID == "" {
		return &ValidationError{Field: "batch_id", Message: "is required"}
	}
	if e.EventType == "" {
		return &ValidationError{Field: "event_type", Message: "is required"}
	}
	if !e.EventType.Valid() {
		return &ValidationError{Field: "event_type", Message: fmt.Sprintf("unknown event type '%s'", e.EventType)}
	}
	if e.Title == "" {
		return &ValidationError{Field: "event_title", Message: "is required"}
	}
	return ValidateDetail(e.EventType, e.Detail)
}

// ValidateDetail reports whether d may accompany an event of type t. A nil detail
// is always accepted.
func ValidateDetail(t EventType, d Detail) error {
	if d == nil {
		return nil
	}
	for _, k := range detailKinds[t] {
		if k == d.Kind() {
			return nil
		}
	}
	return &ValidationError{
		Field:   "details",
		Message: fmt.Sprintf("%s details are not allowed on %s events", d.Kind(), t),
	}
}

type eventJSON struct {
	eventAlias
	DetailKind DetailKind      `json:"detail_kind,omitempty"`
	Details    json.RawMessage `json:"details,omitempty"`
}

type eventAlias TraceabilityEvent

// MarshalJSON flattens the detail variant next to a detail_kind discriminator
func (e TraceabilityEvent) MarshalJSON() ([]byte, error) {
	out := eventJSON{eventAlias: eventAlias(e)}
	if e.Detail != nil {
		raw, err := json.Marshal(e.Detail)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s details: %w", e.Detail.Kind(), err)
		}
		out.DetailKind = e.Detail.Kind()
		out.Details = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores the detail variant named by detail_kind
func (e *TraceabilityEvent) UnmarshalJSON(data []byte) error {
	var in eventJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*e = TraceabilityEvent(in.eventAlias)
	if in.DetailKind == "" {
		return nil
	}
	d, err := DecodeDetail(in.DetailKind, in.Details)
	if err != nil {
		return err
	}
	e.Detail = d
	return nil
}
