// Package activity is the farmer growth activity log. Activities are scoped to a
// contract, carry no hash and never change a batch status.
package activity

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"agrochain/internal/models"
	"agrochain/storage/store"

	"github.com/google/uuid"
)

// Logger records and lists growth activities
type Logger struct {
	store        store.ActivityStore
	logger       *log.Logger
	defaultLimit int
	now          func() time.Time
}

// NewLogger creates a Logger; defaultLimit applies when a farmer listing asks for none
func NewLogger(st store.ActivityStore, defaultLimit int, logger *log.Logger) *Logger {
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	return &Logger{store: st, logger: logger, defaultLimit: defaultLimit, now: time.Now}
}

// LogActivity inserts a as given after checking its required fields
func (l *Logger) LogActivity(ctx context.Context, a *models.GrowthActivity) (*models.GrowthActivity, error) {
	if a == nil {
		return nil, &models.ValidationError{Field: "activity", Message: "is required"}
	}
	switch {
	case a.ContractID == "":
		return nil, &models.ValidationError{Field: "contract_id", Message: "is required"}
	case a.FarmerID == "":
		return nil, &models.ValidationError{Field: "farmer_id", Message: "is required"}
	case !a.ActivityType.Valid():
		return nil, &models.ValidationError{Field: "activity_type", Message: fmt.Sprintf("unknown activity type '%s'", a.ActivityType)}
	case strings.TrimSpace(a.Title) == "":
		return nil, &models.ValidationError{Field: "title", Message: "is required"}
	}

	stored := *a
	stored.ID = uuid.NewString()
	stored.CreatedAt = l.now().UTC()
	if stored.ActivityDate.IsZero() {
		stored.ActivityDate = stored.CreatedAt
	}
	if err := l.store.InsertActivity(ctx, &stored); err != nil {
		return nil, fmt.Errorf("failed to log %s activity: %w", stored.ActivityType, err)
	}
	return &stored, nil
}

// GetActivitiesForContract lists a contract's activities newest first; farmerID filters when set
func (l *Logger) GetActivitiesForContract(ctx context.Context, contractID, farmerID string) ([]models.GrowthActivity, error) {
	return l.store.ListActivitiesByContract(ctx, contractID, farmerID)
}

// GetActivitiesForFarmer lists a farmer's latest activities across contracts
func (l *Logger) GetActivitiesForFarmer(ctx context.Context, farmerID string, limit int) ([]models.GrowthActivity, error) {
	if limit <= 0 {
		limit = l.defaultLimit
	}
	return l.store.ListActivitiesByFarmer(ctx, farmerID, limit)
}

// DispatchInput is a dispatch described by its transport fields
type DispatchInput struct {
	ContractID   string              `json:"contract_id"`
	FarmerID     string              `json:"farmer_id"`
	BatchID      *string             `json:"batch_id,omitempty"`
	Dispatch     models.DispatchInfo `json:"dispatch"`
	Quantity     *float64            `json:"quantity,omitempty"`
	Unit         string              `json:"unit,omitempty"`
	ActivityDate time.Time           `json:"activity_date"`
	Notes        string              `json:"notes,omitempty"`
	Photos       []string            `json:"photos,omitempty"`
}

// LogDispatch logs a dispatch activity with title and description built from the transport fields
func (l *Logger) LogDispatch(ctx context.Context, in DispatchInput) (*models.GrowthActivity, error) {
	dispatch := in.Dispatch
	return l.LogActivity(ctx, &models.GrowthActivity{
		ContractID:   in.ContractID,
		FarmerID:     in.FarmerID,
		BatchID:      in.BatchID,
		ActivityType: models.ActivityDispatch,
		Title:        DispatchTitle(dispatch, in.Quantity, in.Unit),
		Description:  DispatchDescription(dispatch, in.Notes),
		ActivityDate: in.ActivityDate,
		Quantity:     in.Quantity,
		Unit:         in.Unit,
		Dispatch:     &dispatch,
		Photos:       in.Photos,
	})
}

// DispatchTitle renders e.g. "Dispatched 500 kg to Central Market"
func DispatchTitle(d models.DispatchInfo, quantity *float64, unit string) string {
	title := "Dispatched"
	if quantity != nil && *quantity > 0 {
		title += fmt.Sprintf(" %g %s", *quantity, unit)
		title = strings.TrimSpace(title)
	} else {
		title = "Produce Dispatched"
	}
	if d.Destination != "" {
		title += " to " + d.Destination
	}
	return title
}

// DispatchDescription joins the route, vehicle and driver into one line
func DispatchDescription(d models.DispatchInfo, notes string) string {
	var parts []string
	switch {
	case d.Origin != "" && d.Destination != "":
		parts = append(parts, fmt.Sprintf("Route: %s to %s", d.Origin, d.Destination))
	case d.Origin != "":
		parts = append(parts, "From: "+d.Origin)
	case d.Destination != "":
		parts = append(parts, "To: "+d.Destination)
	}
	if d.Vehicle != "" {
		parts = append(parts, "Vehicle: "+d.Vehicle)
	}
	if d.Driver != "" {
		driver := "Driver: " + d.Driver
		if d.DriverPhone != "" {
			driver += " (" + d.DriverPhone + ")"
		}
		parts = append(parts, driver)
	}
	if notes != "" {
		parts = append(parts, notes)
	}
	return strings.Join(parts, ". ")
}
