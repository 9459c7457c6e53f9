package events

import (
	"context"
	"errors"

	"agrochain/internal/models"
	"agrochain/storage/store"
)

// Resolver maps an external key (from a QR code) to a batch. A miss is (nil, nil).
type Resolver interface {
	Name() string
	Resolve(ctx context.Context, key string) (*models.Batch, error)
}

// DefaultResolvers returns the lookup order: batch code, contract id, contract code
func DefaultResolvers(batches store.BatchStore) []Resolver {
	return []Resolver{
		BatchCodeResolver{Batches: batches},
		ContractIDResolver{Batches: batches},
		ContractCodeResolver{Batches: batches},
	}
}

func notFoundAsMiss(b *models.Batch, err error) (*models.Batch, error) {
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return b, err
}

// BatchCodeResolver matches the key against batch_code exactly
type BatchCodeResolver struct {
	Batches store.BatchStore
}

func (BatchCodeResolver) Name() string { return "batch_code" }

func (r BatchCodeResolver) Resolve(ctx context.Context, key string) (*models.Batch, error) {
	return notFoundAsMiss(r.Batches.GetBatchByCode(ctx, key))
}

// ContractIDResolver treats the key as a contract id and picks its newest batch
type ContractIDResolver struct {
	Batches store.BatchStore
}

func (ContractIDResolver) Name() string { return "contract_id" }

func (r ContractIDResolver) Resolve(ctx context.Context, key string) (*models.Batch, error) {
	return notFoundAsMiss(r.Batches.FindLatestBatchByContract(ctx, key))
}

// ContractCodeResolver treats the key as a legacy contract code
type ContractCodeResolver struct {
	Batches store.BatchStore
}

func (ContractCodeResolver) Name() string { return "contract_code" }

func (r ContractCodeResolver) Resolve(ctx context.Context, key string) (*models.Batch, error) {
	c, err := r.Batches.GetContractByCode(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return notFoundAsMiss(r.Batches.FindLatestBatchByContract(ctx, c.ID))
}
