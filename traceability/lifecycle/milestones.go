package lifecycle

import "agrochain/internal/models"

// Milestone maps a named domain action to the event it records and the status it sets
type Milestone struct {
	Name      string             `json:"name"`
	EventType models.EventType   `json:"event_type"`
	Title     string             `json:"event_title"`
	Target    models.BatchStatus `json:"target_status"`
}

// Warehouse statuses (at_warehouse, processing, packaged, distributed) are set by
// the processing workflow and have no milestone.
var milestones = []Milestone{
	{"Planting Complete", models.EventPlanting, "Planting Complete", models.StatusGrowing},
	{"Growth Update", models.EventGrowthUpdate, "Growth Update", models.StatusGrowing},
	{"Fertilizer Applied", models.EventFertilizerApplied, "Fertilizer Applied", models.StatusGrowing},
	{"Pest Control", models.EventPesticideApplied, "Pest Control Applied", models.StatusGrowing},
	{"Irrigation Done", models.EventIrrigation, "Irrigation Completed", models.StatusGrowing},
	{"Crop Verified", models.EventVerification, "Crop Verified", models.StatusGrowing},
	{"Harvest Complete", models.EventHarvest, "Harvest Complete", models.StatusHarvested},
	{"Quality Inspected", models.EventQualityCheck, "Quality Inspection", models.StatusHarvested},
	{"Moved to Storage", models.EventStorage, "Moved to Storage", models.StatusStored},
	{"Transport Started", models.EventTransportStart, "Transport Started", models.StatusInTransit},
	{"Transport Checkpoint", models.EventTransportCheckpoint, "Transport Checkpoint", models.StatusInTransit},
	{"Arrived at Retail", models.EventRetailArrival, "Arrived at Retail", models.StatusAtRetail},
	{"Sold", models.EventSold, "Sold to Consumer", models.StatusSold},
}

var milestoneIndex = func() map[string]Milestone {
	m := make(map[string]Milestone, len(milestones))
	for _, ms := range milestones {
		m[ms.Name] = ms
	}
	return m
}()

// LookupMilestone finds a milestone by its exact name
func LookupMilestone(name string) (Milestone, bool) {
	ms, ok := milestoneIndex[name]
	return ms, ok
}

// Milestones returns the table in pipeline order
func Milestones() []Milestone {
	out := make([]Milestone, len(milestones))
	copy(out, milestones)
	return out
}
