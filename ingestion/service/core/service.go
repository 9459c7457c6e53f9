package service

import (
	"log"

	"agrochain/config"
	"agrochain/internal/messaging/producer"
	"agrochain/storage/store"
	"agrochain/traceability/activity"
	"agrochain/traceability/audit"
	"agrochain/traceability/batches"
	"agrochain/traceability/events"
	"agrochain/traceability/hash"
	"agrochain/traceability/lifecycle"
	"agrochain/traceability/workflow"
)

// Options tunes the components the Service wires together
type Options struct {
	HashMode             hash.Mode
	ActivityDefaultLimit int
	BatchProcessor       config.BatchProcessorConfig
	// Ledger backs event audits; nil limits audits to the local fingerprint
	Ledger audit.Ledger
}

// Service is the composition of the traceability core behind the ingestion APIs
type Service struct {
	Batches    *batches.Service
	Events     *events.Log
	Machine    *lifecycle.Machine
	Recorder   *lifecycle.Recorder
	Workflow   *workflow.Service
	Activities *activity.Logger
	Audit      *audit.Auditor

	store          store.Store
	logger         *log.Logger
	batchProcessor *BatchProcessor
}

// NewService wires every component over st. p may be nil to disable event
// publication; minter may be nil to disable workflow completion.
func NewService(st store.Store, p producer.Producer, minter workflow.Minter, opts Options, l *log.Logger) *Service {
	eventLog := events.NewLog(st, st, hash.New(opts.HashMode), l)
	machine := lifecycle.NewMachine(st, l)

	s := &Service{
		Batches:    batches.NewService(st, l),
		Events:     eventLog,
		Machine:    machine,
		Recorder:   lifecycle.NewRecorder(machine, eventLog, l),
		Workflow:   workflow.NewService(st, machine, eventLog, minter, l),
		Activities: activity.NewLogger(st, opts.ActivityDefaultLimit, l),
		Audit:      audit.NewAuditor(st, eventLog.Hasher(), opts.Ledger, l),
		store:      st,
		logger:     l,
	}

	if p != nil {
		s.batchProcessor = NewBatchProcessor(opts.BatchProcessor, p, l)
		eventLog.SetPublisher(s.batchProcessor)
	} else {
		l.Println("Service: event publication disabled (no producer configured)")
	}
	if !eventLog.Hasher().Tamperproof() {
		l.Println("Service: WARNING event hashes use placeholder mode and are not tamper-proof")
	}
	return s
}

// Close flushes pending event publications
func (s *Service) Close() {
	if s.batchProcessor != nil {
		s.batchProcessor.Close()
	}
}
