package blockchain

import (
	"context"

	"agrochain/blockchain/types"
)

// BlockchainClient is the ledger collaborator used for event anchoring and certificate minting
type BlockchainClient interface {
	// SubmitAnchorsBatch records a batch of event hashes in a single transaction
	SubmitAnchorsBatch(ctx context.Context, entries []types.AnchorEntry) (*types.BatchProof, []types.AnchorStatusInfo, error)

	// MintCertificate records a certificate for a finalized batch
	MintCertificate(ctx context.Context, req types.CertificateRequest) (*types.CertificateReceipt, error)

	// FindAnchorByHash returns the stored anchor record for an event hash
	FindAnchorByHash(ctx context.Context, eventHash string) (string, error)

	// GetAnchorByTxHash audits an anchoring transaction from its contract event
	GetAnchorByTxHash(ctx context.Context, txHash string) (*types.AuditData, error)

	Close() error

	// Config returns the chain-specific configuration
	Config() any
}
