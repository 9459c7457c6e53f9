package chainmaker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"agrochain/blockchain/types"
	"agrochain/config"

	"chainmaker.org/chainmaker/pb-go/v2/common"
	sdk "chainmaker.org/chainmaker/sdk-go/v2"
)

// Client wraps the ChainMaker SDK client
type Client struct {
	sdkClient *sdk.ChainClient
	cfg       *config.BlockchainConfig
	cmCfg     *ChainMakerConfig
	logger    *log.Logger
}

// NewChainMakerClient builds the SDK client from the combined configuration
func NewChainMakerClient(cfg *config.BlockchainConfig, logger *log.Logger) (*Client, error) {
	logger.Println("Initializing ChainMaker SDK client...")

	cmCfg, ok := cfg.ChainSpecific.(*ChainMakerConfig)
	if !ok {
		return nil, fmt.Errorf("invalid ChainMaker configuration type")
	}
	if err := cmCfg.Validate(); err != nil {
		return nil, err
	}

	clientOptions := []sdk.ChainClientOption{
		sdk.WithChainClientOrgId(cmCfg.OrgID),
		sdk.WithChainClientChainId(cmCfg.ChainID),
		sdk.WithUserKeyFilePath(cmCfg.UserKeyPath),
		sdk.WithUserCrtFilePath(cmCfg.UserCertPath),
		sdk.WithUserSignKeyFilePath(cmCfg.UserSignKeyPath),
		sdk.WithUserSignCrtFilePath(cmCfg.UserSignCertPath),
	}
	for _, nodeCfg := range cmCfg.Nodes {
		sdkNodeConfig := sdk.NewNodeConfig(
			sdk.WithNodeAddr(nodeCfg.Address),
			sdk.WithNodeConnCnt(nodeCfg.ConnCount),
			sdk.WithNodeUseTLS(nodeCfg.UseTLS),
			sdk.WithNodeCAPaths(nodeCfg.CaPaths),
			sdk.WithNodeTLSHostName(nodeCfg.TLSHostName),
		)
		clientOptions = append(clientOptions, sdk.AddChainClientNodeConfig(sdkNodeConfig))
	}
	if cfg.RetryLimit > 0 {
		clientOptions = append(clientOptions, sdk.WithRetryLimit(cfg.RetryLimit))
	}
	if cfg.RetryInterval > 0 {
		clientOptions = append(clientOptions, sdk.WithRetryInterval(cfg.RetryInterval))
	}

	client, err := sdk.NewChainClient(clientOptions...)
	if err != nil {
		logger.Printf("Failed to build ChainMaker SDK client: %v\n", err)
		return nil, err
	}
	if err := client.EnableCertHash(); err != nil {
		logger.Printf("Warning: Failed to enable cert hash: %v\n", err)
	}

	logger.Printf("ChainMaker SDK client initialized (chain=%s, contract=%s).", cmCfg.ChainID, cmCfg.ContractName)
	return &Client{sdkClient: client, cfg: cfg, cmCfg: cmCfg, logger: logger}, nil
}

// Config returns the ChainMaker-specific configuration
func (c *Client) Config() any {
	return c.cmCfg
}

// Close stops the SDK client
func (c *Client) Close() error {
	c.logger.Println("Closing ChainMaker SDK client...")
	if err := c.sdkClient.Stop(); err != nil {
		c.logger.Printf("Error stopping ChainMaker SDK client: %v", err)
		return fmt.Errorf("failed to stop ChainMaker SDK client: %w", err)
	}
	return nil
}

func (c *Client) invoke(ctx context.Context, method string, kvs []*common.KeyValuePair) (*common.TxResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := c.sdkClient.InvokeContract(c.cmCfg.ContractName, method, "", kvs, int64(c.cfg.TimeoutSeconds), true)
	if err != nil {
		return nil, fmt.Errorf("SDK invoke of '%s' failed: %w", method, err)
	}
	if resp.Code != common.TxStatusCode_SUCCESS {
		return nil, fmt.Errorf("contract method '%s' failed: %s (code: %d)", method, resp.Message, resp.Code)
	}
	if resp.ContractResult == nil {
		return nil, fmt.Errorf("contract method '%s' returned nil result (tx: %s)", method, resp.TxId)
	}
	return resp, nil
}

// SubmitAnchorsBatch anchors a batch of event hashes in a single transaction
func (c *Client) SubmitAnchorsBatch(ctx context.Context, entries []types.AnchorEntry) (*types.BatchProof, []types.AnchorStatusInfo, error) {
	if len(entries) == 0 {
		return nil, nil, fmt.Errorf("anchor batch cannot be empty")
	}

	anchorsJson, err := json.Marshal(entries)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal anchor entries to JSON: %w", err)
	}
	kvs := []*common.KeyValuePair{{Key: c.cmCfg.ParamKeyAnchorsJson, Value: anchorsJson}}

	resp, err := c.invoke(ctx, c.cmCfg.SubmitAnchorsBatchMethodName, kvs)
	if err != nil {
		return nil, nil, err
	}

	resultJson := resp.ContractResult.Result
	if len(resultJson) == 0 {
		return nil, nil, fmt.Errorf("anchor batch returned empty result bytes (tx: %s)", resp.TxId)
	}
	var results []types.AnchorStatusInfo
	if err := json.Unmarshal(resultJson, &results); err != nil {
		c.logger.Printf("Failed to unmarshal anchor results (TxID: %s). Raw result: %s", resp.TxId, string(resultJson))
		return nil, nil, fmt.Errorf("failed to unmarshal anchor batch results: %w", err)
	}

	return &types.BatchProof{TransactionID: resp.TxId, BlockHeight: resp.TxBlockHeight}, results, nil
}

// MintCertificate invokes the certificate method; the contract returns the token id
func (c *Client) MintCertificate(ctx context.Context, req types.CertificateRequest) (*types.CertificateReceipt, error) {
	if req.BatchCode == "" {
		return nil, fmt.Errorf("certificate batch code cannot be empty")
	}
	certJson, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal certificate request: %w", err)
	}
	kvs := []*common.KeyValuePair{{Key: c.cmCfg.ParamKeyCertificateJson, Value: certJson}}

	resp, err := c.invoke(ctx, c.cmCfg.MintCertificateMethodName, kvs)
	if err != nil {
		return nil, err
	}
	c.logger.Printf("Certificate for batch %s minted. TxID: %s, Block: %d", req.BatchCode, resp.TxId, resp.TxBlockHeight)
	return &types.CertificateReceipt{
		TransactionID: resp.TxId,
		BlockHeight:   resp.TxBlockHeight,
		TokenID:       string(resp.ContractResult.Result),
	}, nil
}

// FindAnchorByHash queries the contract for the anchor record of an event hash
func (c *Client) FindAnchorByHash(ctx context.Context, eventHash string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	kvs := []*common.KeyValuePair{{Key: c.cmCfg.ParamKeyEventHash, Value: []byte(eventHash)}}
	resp, err := c.sdkClient.QueryContract(c.cmCfg.ContractName, c.cmCfg.FindAnchorByHashMethodName, kvs, int64(c.cfg.TimeoutSeconds))
	if err != nil {
		return "", fmt.Errorf("SDK query failed: %w", err)
	}
	if resp.Code != common.TxStatusCode_SUCCESS {
		return "", fmt.Errorf("contract query failed: %s (code: %d)", resp.Message, resp.Code)
	}
	if resp.ContractResult == nil {
		return "", nil
	}
	return string(resp.ContractResult.Result), nil
}

// GetAnchorByTxHash reads the anchoring contract event out of a transaction
func (c *Client) GetAnchorByTxHash(ctx context.Context, txHash string) (*types.AuditData, error) {
	if txHash == "" {
		return nil, fmt.Errorf("transaction hash cannot be empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	txInfo, err := c.sdkClient.GetTxByTxId(txHash)
	if err != nil {
		return nil, fmt.Errorf("SDK get transaction failed: %w", err)
	}
	if txInfo == nil || txInfo.Transaction == nil || txInfo.Transaction.Result == nil || txInfo.Transaction.Result.ContractResult == nil {
		return nil, fmt.Errorf("transaction data is incomplete or nil for tx: %s", txHash)
	}
	if txInfo.Transaction.Result.Code != common.TxStatusCode_SUCCESS {
		return nil, fmt.Errorf("transaction execution failed: %s", txInfo.Transaction.Result.Message)
	}
	for _, event := range txInfo.Transaction.Result.ContractResult.ContractEvent {
		if event.Topic != c.cmCfg.AnchorEventTopic {
			continue
		}
		// event data: [event_hash, batch_id, timestamp]
		if len(event.EventData) != 3 {
			return nil, fmt.Errorf("malformed event data: expected 3 fields, got %d", len(event.EventData))
		}
		return &types.AuditData{EventHash: event.EventData[0], BatchID: event.EventData[1], Timestamp: event.EventData[2]}, nil
	}
	return nil, fmt.Errorf("event '%s' not found in transaction %s", c.cmCfg.AnchorEventTopic, txHash)
}
