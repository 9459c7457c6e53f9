// Package workflow implements the five-step warehouse processing workflow:
// quality check, sorting, processing, packaging and final confirmation.
//
// Wizard holds the pure rules (resume step, gates, completion). Service runs
// them against the store, the status machine and the event log.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agrochain/internal/models"
)

// Step indexes the five workflow screens
type Step int

const (
	StepQualityCheck Step = iota
	StepSorting
	StepProcessing
	StepPackaging
	StepConfirmation
)

var stepNames = [...]string{"quality_check", "sorting", "processing", "packaging", "confirmation"}

func (s Step) String() string {
	if s < 0 || int(s) >= len(stepNames) {
		return fmt.Sprintf("step(%d)", int(s))
	}
	return stepNames[s]
}

// QualityGrades are the grades an operator can assign at the quality check
var QualityGrades = []string{"Premium", "Grade A", "Grade B", "Standard"}

// ProcessingMethods is the fixed list offered at the processing step
var ProcessingMethods = []string{
	"Washing",
	"Sorting by Size",
	"Peeling",
	"Cutting",
	"Drying",
	"Sun Drying",
	"Freezing",
	"Blanching",
	"Pulping",
	"Juicing",
	"Fermentation",
	"Roasting",
	"Milling",
	"Waxing",
	"Vacuum Sealing",
}

// PackageTypes are the package kinds offered at the packaging step
var PackageTypes = []string{"Crate", "Box", "Carton", "Bag", "Sack", "Tray", "Bulk Container"}

var (
	// ErrGate is wrapped by every completion gate failure
	ErrGate = errors.New("workflow gate not satisfied")
	// ErrMint is wrapped by every minting collaborator failure
	ErrMint = errors.New("certificate minting failed")
	// ErrFinalized is returned when a minted result is changed again
	ErrFinalized = errors.New("processing already completed")
)

// GateError names the unmet gate
type GateError struct {
	Step    Step
	Message string
}

func (e *GateError) Error() string {
	return fmt.Sprintf("%s: %s", e.Step, e.Message)
}

func (e *GateError) Unwrap() error { return ErrGate }

// MintRequest is what the minting collaborator receives for a finalized batch
type MintRequest struct {
	BatchCode         string   `json:"batchCode"`
	CropType          string   `json:"cropType"`
	FarmerName        string   `json:"farmerName"`
	Quantity          float64  `json:"quantity"`
	QualityGrade      string   `json:"qualityGrade"`
	ProcessingMethods []string `json:"processingMethods"`
	ProductionDate    string   `json:"productionDate"`
	ExpiryDate        string   `json:"expiryDate"`
	StorageConditions string   `json:"storageConditions"`
	IsOrganic         bool     `json:"isOrganic"`
	Certifications    []string `json:"certifications"`
}

// MintResult is the collaborator's answer
type MintResult struct {
	Success         bool   `json:"success"`
	TransactionHash string `json:"transactionHash,omitempty"`
	MetadataURL     string `json:"metadataUrl,omitempty"`
	ExplorerURL     string `json:"explorerUrl,omitempty"`
	Error           string `json:"error,omitempty"`
}

// Minter records a certificate for a finalized batch. It may be slow and may fail.
type Minter interface {
	Mint(ctx context.Context, req MintRequest) (*MintResult, error)
}

// Saver persists a processing result
type Saver interface {
	SaveProcessingResult(ctx context.Context, r *models.ProcessingResult) error
}

// Wizard holds the workflow rules
type Wizard struct {
	now func() time.Time
}

// NewWizard creates a Wizard
func NewWizard() *Wizard {
	return &Wizard{now: time.Now}
}

// ResumeStep derives the furthest step a saved result can continue from. It only
// reads the sub-record flags.
func (w *Wizard) ResumeStep(r *models.ProcessingResult) Step {
	switch {
	case r == nil:
		return StepQualityCheck
	case r.Packaging.Completed:
		return StepConfirmation
	case r.Processing.Completed || !r.Processing.Applicable:
		return StepPackaging
	case r.Sorting.Completed:
		return StepProcessing
	case r.QualityCheck.Passed:
		return StepSorting
	default:
		return StepQualityCheck
	}
}

// Validate checks the completion gates: quality passed, sorting completed and
// packaging completed. Processing never gates.
func (w *Wizard) Validate(r *models.ProcessingResult) error {
	if r == nil {
		return &GateError{Step: StepQualityCheck, Message: "no processing data"}
	}
	if !r.QualityCheck.Passed {
		return &GateError{Step: StepQualityCheck, Message: "quality check must pass before completion"}
	}
	if !r.Sorting.Completed {
		return &GateError{Step: StepSorting, Message: "sorting must be completed before completion"}
	}
	if !r.Packaging.Completed {
		return &GateError{Step: StepPackaging, Message: "packaging must be completed before completion"}
	}
	return nil
}

// Complete validates r, mints, and returns a finalized copy. r itself is never
// modified, so a failed completion leaves the caller's state as it was.
func (w *Wizard) Complete(ctx context.Context, r *models.ProcessingResult, req MintRequest, minter Minter) (*models.ProcessingResult, error) {
	if err := w.Validate(r); err != nil {
		return nil, err
	}
	if r.NFTMinted {
		return nil, ErrFinalized
	}

	res, err := minter.Mint(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMint, err)
	}
	if res == nil || !res.Success {
		reason := "minting service reported failure"
		if res != nil && res.Error != "" {
			reason = res.Error
		}
		return nil, fmt.Errorf("%w: %s", ErrMint, reason)
	}

	done := r.Clone()
	now := w.now().UTC()
	done.ReadyForDistribution = true
	done.NFTMinted = true
	done.NFTTxHash = res.TransactionHash
	done.MetadataURL = res.MetadataURL
	done.ExplorerURL = res.ExplorerURL
	done.CompletedAt = &now
	return done, nil
}

// Save persists r verbatim: no gates, no status change, no minting
func (w *Wizard) Save(ctx context.Context, r *models.ProcessingResult, saver Saver) error {
	if r == nil {
		return &models.ValidationError{Field: "result", Message: "is required"}
	}
	if err := saver.SaveProcessingResult(ctx, r); err != nil {
		return fmt.Errorf("failed to save processing result for batch %s: %w", r.BatchID, err)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// ValidGrade reports whether g is one of QualityGrades
func ValidGrade(g string) bool { return contains(QualityGrades, g) }

// ValidMethod reports whether m is one of ProcessingMethods
func ValidMethod(m string) bool { return contains(ProcessingMethods, m) }

// ValidPackageType reports whether p is one of PackageTypes
func ValidPackageType(p string) bool { return contains(PackageTypes, p) }
