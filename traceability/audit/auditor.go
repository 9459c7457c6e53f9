// Package audit checks a stored traceability event against its fingerprint and
// against the anchor record the engine wrote to the ledger.
package audit

import (
	"context"
	"fmt"
	"log"

	"agrochain/blockchain/types"
	"agrochain/internal/models"
	"agrochain/storage/store"
	"agrochain/traceability/hash"
)

// Ledger is the read side of the ledger client
type Ledger interface {
	FindAnchorByHash(ctx context.Context, eventHash string) (string, error)
	GetAnchorByTxHash(ctx context.Context, txHash string) (*types.AuditData, error)
}

// Report is the outcome of auditing one event
type Report struct {
	EventID   string `json:"event_id"`
	BatchID   string `json:"batch_id"`
	EventHash string `json:"event_hash"`

	// HashIntact is true when the stored fields still produce EventHash
	HashIntact bool `json:"hash_intact"`

	Anchored     bool             `json:"anchored"`
	AnchorTxHash string           `json:"anchor_tx_hash,omitempty"`
	BlockHeight  uint64           `json:"anchor_block_height,omitempty"`
	OnChain      *types.AuditData `json:"on_chain,omitempty"`
	LedgerRecord string           `json:"ledger_record,omitempty"`
	// LedgerMatch is true when the anchoring transaction carries EventHash for this batch
	LedgerMatch bool   `json:"ledger_match"`
	LedgerError string `json:"ledger_error,omitempty"`
}

// Verified reports whether the event is intact and its anchor confirmed on the ledger
func (r *Report) Verified() bool {
	return r.HashIntact && r.Anchored && r.LedgerMatch
}

// Auditor verifies events. ledger may be nil, in which case only the local
// fingerprint is checked.
type Auditor struct {
	events store.EventStore
	hasher *hash.Hasher
	ledger Ledger
	logger *log.Logger
}

// NewAuditor creates an Auditor
func NewAuditor(events store.EventStore, hasher *hash.Hasher, ledger Ledger, logger *log.Logger) *Auditor {
	return &Auditor{events: events, hasher: hasher, ledger: ledger, logger: logger}
}

// VerifyEvent audits eventID of batchID. Ledger failures are reported in the
// Report rather than returned; only a missing event or a store failure is an error.
func (a *Auditor) VerifyEvent(ctx context.Context, batchID, eventID string) (*Report, error) {
	evs, err := a.events.ListEventsByBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load events of batch %s: %w", batchID, err)
	}
	var ev *models.TraceabilityEvent
	for i := range evs {
		if evs[i].ID == eventID {
			ev = &evs[i]
			break
		}
	}
	if ev == nil {
		return nil, fmt.Errorf("event %s of batch %s: %w", eventID, batchID, store.ErrNotFound)
	}

	report := &Report{
		EventID:      ev.ID,
		BatchID:      ev.BatchID,
		EventHash:    ev.EventHash,
		HashIntact:   a.hasher.Hash(hash.InputFromEvent(ev), ev.CreatedAt) == ev.EventHash,
		Anchored:     ev.AnchorTxHash != "",
		AnchorTxHash: ev.AnchorTxHash,
		BlockHeight:  ev.AnchorBlockHeight,
	}
	if !report.HashIntact {
		a.logger.Printf("Audit: event %s of batch %s no longer matches its fingerprint", ev.ID, ev.BatchID)
	}
	if a.ledger == nil {
		report.LedgerError = "ledger client not configured"
		return report, nil
	}

	record, err := a.ledger.FindAnchorByHash(ctx, ev.EventHash)
	if err != nil {
		report.LedgerError = err.Error()
		return report, nil
	}
	report.LedgerRecord = record

	if !report.Anchored {
		return report, nil
	}
	onChain, err := a.ledger.GetAnchorByTxHash(ctx, ev.AnchorTxHash)
	if err != nil {
		report.LedgerError = err.Error()
		return report, nil
	}
	report.OnChain = onChain
	report.LedgerMatch = onChain.EventHash == ev.EventHash && onChain.BatchID == ev.BatchID
	return report, nil
}
