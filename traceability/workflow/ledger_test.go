package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"agrochain/blockchain/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCertificateLedger struct {
	got         types.CertificateRequest
	hadDeadline bool
	err         error
}

func (f *fakeCertificateLedger) MintCertificate(ctx context.Context, req types.CertificateRequest) (*types.CertificateReceipt, error) {
	f.got = req
	_, f.hadDeadline = ctx.Deadline()
	if f.err != nil {
		return nil, f.err
	}
	return &types.CertificateReceipt{TransactionID: "tx-42", BlockHeight: 7}, nil
}

func TestLedgerMinterBuildsURLs(t *testing.T) {
	ledger := &fakeCertificateLedger{}
	m := NewLedgerMinter(ledger, "https://meta.example/certs/", "https://explorer.example/tx/", 5*time.Second)

	res, err := m.Mint(context.Background(), MintRequest{BatchCode: "B-M0001", CropType: "Mango", IsOrganic: true})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "tx-42", res.TransactionHash)
	assert.Equal(t, "https://meta.example/certs/B-M0001", res.MetadataURL)
	assert.Equal(t, "https://explorer.example/tx/tx-42", res.ExplorerURL)

	assert.Equal(t, "B-M0001", ledger.got.BatchCode)
	assert.Equal(t, "Mango", ledger.got.CropType)
	assert.True(t, ledger.got.IsOrganic)
	assert.Equal(t, res.MetadataURL, ledger.got.MetadataURL)
	assert.True(t, ledger.hadDeadline)
}

func TestLedgerMinterWithoutBaseURLs(t *testing.T) {
	ledger := &fakeCertificateLedger{}
	res, err := NewLedgerMinter(ledger, "", "", 0).Mint(context.Background(), MintRequest{BatchCode: "B-1"})
	require.NoError(t, err)
	assert.Empty(t, res.MetadataURL)
	assert.Empty(t, res.ExplorerURL)
	assert.False(t, ledger.hadDeadline)
}

func TestLedgerMinterFailure(t *testing.T) {
	ledger := &fakeCertificateLedger{err: errors.New("endorsement rejected")}
	res, err := NewLedgerMinter(ledger, "", "", 0).Mint(context.Background(), MintRequest{BatchCode: "B-1"})
	require.Error(t, err)
	require.NotNil(t, res)
	assert.False(t, res.Success)
	assert.Equal(t, "endorsement rejected", res.Error)

	// through the wizard the failure surfaces as ErrMint
	_, err = NewWizard().Complete(context.Background(), readyResult(), MintRequest{BatchCode: "B-1"}, NewLedgerMinter(ledger, "", "", 0))
	assert.ErrorIs(t, err, ErrMint)
}
