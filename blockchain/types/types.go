package types

// AnchorEntry is one event hash sent to the ledger in a batch anchoring call
type AnchorEntry struct {
	EventHash string `json:"event_hash"`
	EventID   string `json:"event_id"`
	BatchID   string `json:"batch_id"`
	EventType string `json:"event_type"`
	Timestamp string `json:"timestamp"`
}

// AnchorProcessingStatus is the per-entry outcome reported by the anchor contract
type AnchorProcessingStatus string

const (
	StatusSuccess          AnchorProcessingStatus = "Success"
	StatusSkippedDuplicate AnchorProcessingStatus = "SkippedDuplicate"
	StatusErrorValidation  AnchorProcessingStatus = "ErrorValidation"
	StatusErrorStateCheck  AnchorProcessingStatus = "ErrorStateCheck"
	StatusErrorPutState    AnchorProcessingStatus = "ErrorPutState"
)

// Anchored reports whether the hash is on the ledger after the call
func (s AnchorProcessingStatus) Anchored() bool {
	return s == StatusSuccess || s == StatusSkippedDuplicate
}

// AnchorStatusInfo is one element of the batch result array
type AnchorStatusInfo struct {
	EventHash string                 `json:"event_hash"`
	Status    AnchorProcessingStatus `json:"status"`
	Message   string                 `json:"message"`
}

// BatchProof holds the results common to the entire batch transaction
type BatchProof struct {
	TransactionID string
	BlockHeight   uint64
}

// CertificateRequest describes the finalized batch a certificate is minted for
type CertificateRequest struct {
	BatchCode         string   `json:"batch_code"`
	CropType          string   `json:"crop_type"`
	FarmerName        string   `json:"farmer_name"`
	Quantity          float64  `json:"quantity"`
	QualityGrade      string   `json:"quality_grade"`
	ProcessingMethods []string `json:"processing_methods"`
	ProductionDate    string   `json:"production_date"`
	ExpiryDate        string   `json:"expiry_date"`
	StorageConditions string   `json:"storage_conditions"`
	IsOrganic         bool     `json:"is_organic"`
	Certifications    []string `json:"certifications"`
	MetadataURL       string   `json:"metadata_url"`
}

// CertificateReceipt is the on-chain credential of a minted certificate
type CertificateReceipt struct {
	TransactionID string
	BlockHeight   uint64
	TokenID       string
}

// AuditData is the anchoring record parsed from on-chain contract events
type AuditData struct {
	EventHash string
	BatchID   string
	Timestamp string
}
