package models

import "time"

// BatchStatus is the current position of a batch in the supply pipeline
type BatchStatus string

const (
	StatusGrowing     BatchStatus = "growing"
	StatusHarvested   BatchStatus = "harvested"
	StatusStored      BatchStatus = "stored"
	StatusInTransit   BatchStatus = "in_transit"
	StatusAtWarehouse BatchStatus = "at_warehouse"
	StatusProcessing  BatchStatus = "processing"
	StatusPackaged    BatchStatus = "packaged"
	StatusDistributed BatchStatus = "distributed"
	StatusAtRetail    BatchStatus = "at_retail"
	StatusSold        BatchStatus = "sold"
)

// statusOrder is the forward path in normal operation
var statusOrder = []BatchStatus{
	StatusGrowing,
	StatusHarvested,
	StatusStored,
	StatusInTransit,
	StatusAtWarehouse,
	StatusProcessing,
	StatusPackaged,
	StatusDistributed,
	StatusAtRetail,
	StatusSold,
}

// Rank returns the position of the status on the forward path, or -1 if unknown.
// Transitions are never checked against it; it only orders statuses for display
// and for "move forward if behind" decisions.
func (s BatchStatus) Rank() int {
	for i, st := range statusOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is one of the known statuses
func (s BatchStatus) Valid() bool {
	return s.Rank() >= 0
}

// Batch is one tracked production unit
type Batch struct {
	ID               string      `json:"id"`
	BatchCode        string      `json:"batch_code"`
	CropType         string      `json:"crop_type"`
	Variety          string      `json:"variety,omitempty"`
	TotalQuantity    float64     `json:"total_quantity"`
	Unit             string      `json:"unit"`
	QualityGrade     string      `json:"quality_grade,omitempty"`
	OrganicCertified bool        `json:"organic_certified"`
	HarvestDate      *time.Time  `json:"harvest_date,omitempty"`
	CurrentStatus    BatchStatus `json:"current_status"`
	CurrentLocation  string      `json:"current_location,omitempty"`
	LocationLat      *float64    `json:"location_lat,omitempty"`
	LocationLng      *float64    `json:"location_lng,omitempty"`
	ContractID       *string     `json:"contract_id,omitempty"`
	FarmerID         *string     `json:"farmer_id,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// Contract is the read-only summary of a farming contract a batch may belong to
type Contract struct {
	ID           string `json:"id"`
	ContractCode string `json:"contract_code"`
	FarmerID     string `json:"farmer_id,omitempty"`
	BuyerName    string `json:"buyer_name,omitempty"`
	CropType     string `json:"crop_type,omitempty"`
	Status       string `json:"status,omitempty"`
}

// Farmer is the read-only public profile of a producer
type Farmer struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Location string `json:"location,omitempty"`
	Phone    string `json:"phone,omitempty"`
}
