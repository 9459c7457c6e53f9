package models

import "time"

// QualityCheck is step 0 of the warehouse workflow
type QualityCheck struct {
	Passed bool   `json:"passed"`
	Grade  string `json:"grade"`
	Notes  string `json:"notes,omitempty"`
}

// Sorting is step 1; quantities are in kilograms
type Sorting struct {
	Completed bool    `json:"completed"`
	GradeA    float64 `json:"gradeA"`
	GradeB    float64 `json:"gradeB"`
	Rejected  float64 `json:"rejected"`
}

// Processing is step 2 and only gates completion when Applicable
type Processing struct {
	Applicable bool     `json:"applicable"`
	Completed  bool     `json:"completed"`
	Methods    []string `json:"methods"`
	Duration   string   `json:"duration,omitempty"`
	Notes      string   `json:"notes,omitempty"`
}

// Packaging is step 3
type Packaging struct {
	Completed     bool   `json:"completed"`
	PackageType   string `json:"packageType"`
	PackageCount  int    `json:"packageCount"`
	LabelsPrinted bool   `json:"labelsPrinted"`
}

// ProcessingResult is the accumulated state of one batch's warehouse workflow.
// No step cursor is stored: the step to resume at is derived
// from the sub-record flags.
type ProcessingResult struct {
	BatchID              string       `json:"batchId"`
	QualityCheck         QualityCheck `json:"qualityCheck"`
	Sorting              Sorting      `json:"sorting"`
	Processing           Processing   `json:"processing"`
	Packaging            Packaging    `json:"packaging"`
	ProductionDate       string       `json:"productionDate,omitempty"`
	ExpiryDate           string       `json:"expiryDate,omitempty"`
	StorageConditions    string       `json:"storageConditions,omitempty"`
	ReadyForDistribution bool         `json:"readyForDistribution"`
	NFTMinted            bool         `json:"nftMinted"`
	NFTTxHash            string       `json:"nftTxHash,omitempty"`
	MetadataURL          string       `json:"metadataUrl,omitempty"`
	ExplorerURL          string       `json:"explorerUrl,omitempty"`
	CompletedAt          *time.Time   `json:"completedAt,omitempty"`
	UpdatedAt            time.Time    `json:"updatedAt"`
}

// NewProcessingResult returns the empty state a workflow starts from
func NewProcessingResult(batchID string) *ProcessingResult {
	return &ProcessingResult{
		BatchID:    batchID,
		Processing: Processing{Applicable: true, Methods: []string{}},
	}
}

// Clone returns a deep copy so callers can stage changes without touching the original
func (r *ProcessingResult) Clone() *ProcessingResult {
	c := *r
	if r.Processing.Methods != nil {
		c.Processing.Methods = append([]string(nil), r.Processing.Methods...)
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
