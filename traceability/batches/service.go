package batches

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"agrochain/internal/models"
	"agrochain/storage/store"

	"github.com/google/uuid"
)

const maxCodeAttempts = 5

// CreateInput carries the attributes of a new batch. BatchCode is normally left
// empty and generated; an explicit code is stored verbatim.
type CreateInput struct {
	BatchCode        string     `json:"batch_code,omitempty"`
	CropType         string     `json:"crop_type"`
	Variety          string     `json:"variety,omitempty"`
	TotalQuantity    float64    `json:"total_quantity"`
	Unit             string     `json:"unit,omitempty"`
	QualityGrade     string     `json:"quality_grade,omitempty"`
	OrganicCertified bool       `json:"organic_certified"`
	HarvestDate      *time.Time `json:"harvest_date,omitempty"`
	CurrentLocation  string     `json:"current_location,omitempty"`
	LocationLat      *float64   `json:"location_lat,omitempty"`
	LocationLng      *float64   `json:"location_lng,omitempty"`
	ContractID       *string    `json:"contract_id,omitempty"`
	FarmerID         *string    `json:"farmer_id,omitempty"`
}

// Service is the batch entity store
type Service struct {
	store   store.BatchStore
	logger  *log.Logger
	newCode func() (string, error)
}

// NewService creates a batch Service over st
func NewService(st store.BatchStore, logger *log.Logger) *Service {
	return &Service{store: st, logger: logger, newCode: GenerateCode}
}

// Create inserts a new batch in the growing status
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Batch, error) {
	if strings.TrimSpace(in.CropType) == "" {
		return nil, &models.ValidationError{Field: "crop_type", Message: "is required"}
	}
	if in.TotalQuantity < 0 {
		return nil, &models.ValidationError{Field: "total_quantity", Message: "cannot be negative"}
	}
	unit := in.Unit
	if unit == "" {
		unit = "kg"
	}

	b := &models.Batch{
		ID:               uuid.NewString(),
		BatchCode:        in.BatchCode,
		CropType:         in.CropType,
		Variety:          in.Variety,
		TotalQuantity:    in.TotalQuantity,
		Unit:             unit,
		QualityGrade:     in.QualityGrade,
		OrganicCertified: in.OrganicCertified,
		HarvestDate:      in.HarvestDate,
		CurrentStatus:    models.StatusGrowing,
		CurrentLocation:  in.CurrentLocation,
		LocationLat:      in.LocationLat,
		LocationLng:      in.LocationLng,
		ContractID:       in.ContractID,
		FarmerID:         in.FarmerID,
	}

	if b.BatchCode != "" {
		if err := s.store.CreateBatch(ctx, b); err != nil {
			return nil, fmt.Errorf("failed to create batch %s: %w", b.BatchCode, err)
		}
		s.logger.Printf("Batch created: %s (%s)", b.BatchCode, b.ID)
		return b, nil
	}

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, err
		}
		b.BatchCode = code
		err = s.store.CreateBatch(ctx, b)
		if err == nil {
			s.logger.Printf("Batch created: %s (%s)", b.BatchCode, b.ID)
			return b, nil
		}
		if !errors.Is(err, store.ErrDuplicate) {
			return nil, fmt.Errorf("failed to create batch: %w", err)
		}
		s.logger.Printf("Batch code %s already taken (attempt %d/%d)", code, attempt, maxCodeAttempts)
	}
	return nil, fmt.Errorf("failed to allocate a unique batch code after %d attempts: %w", maxCodeAttempts, store.ErrDuplicate)
}

// Get fetches a batch by id
func (s *Service) Get(ctx context.Context, id string) (*models.Batch, error) {
	return s.store.GetBatchByID(ctx, id)
}

// GetByCode fetches a batch by its batch code
func (s *Service) GetByCode(ctx context.Context, code string) (*models.Batch, error) {
	return s.store.GetBatchByCode(ctx, code)
}

// Find accepts either a batch id or a batch code
func (s *Service) Find(ctx context.Context, key string) (*models.Batch, error) {
	b, err := s.store.GetBatchByCode(ctx, key)
	if err == nil || !errors.Is(err, store.ErrNotFound) {
		return b, err
	}
	return s.store.GetBatchByID(ctx, key)
}

// ListByFarmer returns a farmer's batches, newest first
func (s *Service) ListByFarmer(ctx context.Context, farmerID string) ([]models.Batch, error) {
	return s.store.ListBatchesByFarmer(ctx, farmerID)
}

// UpdateStatus sets the batch status. Any known status is accepted from any other.
func (s *Service) UpdateStatus(ctx context.Context, id string, status models.BatchStatus) error {
	if !status.Valid() {
		return &models.ValidationError{Field: "status", Message: fmt.Sprintf("unknown status '%s'", status)}
	}
	return s.store.UpdateBatchStatus(ctx, id, status)
}

// UpdateLocation sets the batch's current location
func (s *Service) UpdateLocation(ctx context.Context, id, location string, lat, lng *float64) error {
	return s.store.UpdateBatchLocation(ctx, id, location, lat, lng)
}
