package models

import "time"

// ActivityType is the kind of field work a farmer reports
type ActivityType string

const (
	ActivityPlanting   ActivityType = "planting"
	ActivityWeeding    ActivityType = "weeding"
	ActivityFertilizer ActivityType = "fertilizer"
	ActivityPesticide  ActivityType = "pesticide"
	ActivityIrrigation ActivityType = "irrigation"
	ActivityPruning    ActivityType = "pruning"
	ActivityHarvesting ActivityType = "harvesting"
	ActivityDispatch   ActivityType = "dispatch"
	ActivityOther      ActivityType = "other"
)

// Valid reports whether t is a known activity type
func (t ActivityType) Valid() bool {
	switch t {
	case ActivityPlanting, ActivityWeeding, ActivityFertilizer, ActivityPesticide,
		ActivityIrrigation, ActivityPruning, ActivityHarvesting, ActivityDispatch, ActivityOther:
		return true
	}
	return false
}

// FertilizerInfo is set on fertilizer activities
type FertilizerInfo struct {
	Brand string `json:"brand,omitempty"`
	NPK   string `json:"npk,omitempty"`
}

// DispatchInfo is set on dispatch activities
type DispatchInfo struct {
	Vehicle     string `json:"vehicle,omitempty"`
	Driver      string `json:"driver,omitempty"`
	DriverPhone string `json:"driver_phone,omitempty"`
	Origin      string `json:"origin,omitempty"`
	Destination string `json:"destination,omitempty"`
}

// GrowthActivity is a farmer-logged record of field work scoped to a contract
type GrowthActivity struct {
	ID           string          `json:"id"`
	ContractID   string          `json:"contract_id"`
	FarmerID     string          `json:"farmer_id"`
	BatchID      *string         `json:"batch_id,omitempty"`
	ActivityType ActivityType    `json:"activity_type"`
	Title        string          `json:"title"`
	Description  string          `json:"description,omitempty"`
	ActivityDate time.Time       `json:"activity_date"`
	Quantity     *float64        `json:"quantity,omitempty"`
	Unit         string          `json:"unit,omitempty"`
	Fertilizer   *FertilizerInfo `json:"fertilizer,omitempty"`
	Dispatch     *DispatchInfo   `json:"dispatch,omitempty"`
	Photos       []string        `json:"photos,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}
