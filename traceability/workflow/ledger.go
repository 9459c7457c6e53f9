package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"agrochain/blockchain/types"
)

// CertificateLedger is the part of the ledger client minting needs
type CertificateLedger interface {
	MintCertificate(ctx context.Context, req types.CertificateRequest) (*types.CertificateReceipt, error)
}

// LedgerMinter mints certificates through the ledger client
type LedgerMinter struct {
	ledger          CertificateLedger
	metadataBaseURL string
	explorerBaseURL string
	timeout         time.Duration
}

// NewLedgerMinter creates a LedgerMinter. Metadata and explorer URLs are the base
// URLs joined with the batch code and the transaction id respectively.
func NewLedgerMinter(ledger CertificateLedger, metadataBaseURL, explorerBaseURL string, timeout time.Duration) *LedgerMinter {
	return &LedgerMinter{
		ledger:          ledger,
		metadataBaseURL: strings.TrimRight(metadataBaseURL, "/"),
		explorerBaseURL: strings.TrimRight(explorerBaseURL, "/"),
		timeout:         timeout,
	}
}

func (m *LedgerMinter) Mint(ctx context.Context, req MintRequest) (*MintResult, error) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	metadataURL := ""
	if m.metadataBaseURL != "" {
		metadataURL = m.metadataBaseURL + "/" + req.BatchCode
	}
	receipt, err := m.ledger.MintCertificate(ctx, types.CertificateRequest{
		BatchCode:         req.BatchCode,
		CropType:          req.CropType,
		FarmerName:        req.FarmerName,
		Quantity:          req.Quantity,
		QualityGrade:      req.QualityGrade,
		ProcessingMethods: req.ProcessingMethods,
		ProductionDate:    req.ProductionDate,
		ExpiryDate:        req.ExpiryDate,
		StorageConditions: req.StorageConditions,
		IsOrganic:         req.IsOrganic,
		Certifications:    req.Certifications,
		MetadataURL:       metadataURL,
	})
	if err != nil {
		return &MintResult{Success: false, Error: err.Error()}, fmt.Errorf("ledger mint for %s: %w", req.BatchCode, err)
	}

	res := &MintResult{Success: true, TransactionHash: receipt.TransactionID, MetadataURL: metadataURL}
	if m.explorerBaseURL != "" {
		res.ExplorerURL = m.explorerBaseURL + "/" + receipt.TransactionID
	}
	return res, nil
}

var _ Minter = (*LedgerMinter)(nil)
