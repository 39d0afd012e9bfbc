package tron

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// FullNode is a minimal client for the TRON full-node HTTP API (/wallet/*).
// Addresses are exchanged in base58 (visible=true).
type FullNode struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewFullNode creates a client for the node at baseURL
func NewFullNode(baseURL, apiKey string, httpClient *http.Client) *FullNode {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &FullNode{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// ContractCall describes a smart contract invocation
type ContractCall struct {
	OwnerAddress     string `json:"owner_address"`
	ContractAddress  string `json:"contract_address"`
	FunctionSelector string `json:"function_selector"`
	Parameter        string `json:"parameter"`
	FeeLimit         int64  `json:"fee_limit,omitempty"`
	CallValue        int64  `json:"call_value"`
	Visible          bool   `json:"visible"`
}

type callResult struct {
	Result  bool   `json:"result"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (r callResult) err() error {
	if r.Result {
		return nil
	}
	return fmt.Errorf("%s: %s", r.Code, decodeMessage(r.Message))
}

// Transaction is an unsigned or signed TRON transaction as returned by the node
type Transaction struct {
	TxID       string          `json:"txID"`
	RawData    json.RawMessage `json:"raw_data"`
	RawDataHex string          `json:"raw_data_hex"`
	Visible    bool            `json:"visible"`
	Signature  []string        `json:"signature,omitempty"`
}

// TransactionInfo is the execution result of a confirmed transaction
type TransactionInfo struct {
	ID          string `json:"id"`
	BlockNumber uint64 `json:"blockNumber"`
	Receipt     struct {
		Result string `json:"result"`
	} `json:"receipt"`
}

// Succeeded reports whether the contract execution succeeded
func (i TransactionInfo) Succeeded() bool {
	return i.Receipt.Result == "SUCCESS"
}

// TriggerConstantContract runs a read-only call and returns the first result word
func (n *FullNode) TriggerConstantContract(ctx context.Context, call ContractCall) ([]byte, error) {
	var resp struct {
		ConstantResult []string   `json:"constant_result"`
		Result         callResult `json:"result"`
	}
	if err := n.post(ctx, "/wallet/triggerconstantcontract", call, &resp); err != nil {
		return nil, err
	}
	if err := resp.Result.err(); err != nil {
		return nil, fmt.Errorf("constant call %s failed: %w", call.FunctionSelector, err)
	}
	if len(resp.ConstantResult) == 0 {
		return nil, fmt.Errorf("constant call %s returned no result", call.FunctionSelector)
	}
	return hex.DecodeString(resp.ConstantResult[0])
}

// TriggerSmartContract builds an unsigned contract transaction
func (n *FullNode) TriggerSmartContract(ctx context.Context, call ContractCall) (*Transaction, error) {
	var resp struct {
		Result      callResult   `json:"result"`
		Transaction *Transaction `json:"transaction"`
	}
	if err := n.post(ctx, "/wallet/triggersmartcontract", call, &resp); err != nil {
		return nil, err
	}
	if err := resp.Result.err(); err != nil {
		return nil, fmt.Errorf("trigger %s failed: %w", call.FunctionSelector, err)
	}
	if resp.Transaction == nil || resp.Transaction.TxID == "" {
		return nil, fmt.Errorf("trigger %s returned no transaction", call.FunctionSelector)
	}
	return resp.Transaction, nil
}

// BroadcastTransaction submits a signed transaction
func (n *FullNode) BroadcastTransaction(ctx context.Context, tx *Transaction) error {
	var resp callResult
	if err := n.post(ctx, "/wallet/broadcasttransaction", tx, &resp); err != nil {
		return err
	}
	if err := resp.err(); err != nil {
		return fmt.Errorf("broadcast %s failed: %w", tx.TxID, err)
	}
	return nil
}

// GetTransactionInfoByID returns the execution info of a transaction, or nil while unconfirmed
func (n *FullNode) GetTransactionInfoByID(ctx context.Context, txID string) (*TransactionInfo, error) {
	var info TransactionInfo
	if err := n.post(ctx, "/wallet/gettransactioninfobyid", map[string]string{"value": txID}, &info); err != nil {
		return nil, err
	}
	if info.ID == "" {
		return nil, nil
	}
	return &info, nil
}

func (n *FullNode) post(ctx context.Context, path string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if n.apiKey != "" {
		req.Header.Set("TRON-PRO-API-KEY", n.apiKey)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode, string(respBody))
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// decodeMessage turns the node's hex-encoded error messages into text
func decodeMessage(message string) string {
	if decoded, err := hex.DecodeString(message); err == nil && len(decoded) > 0 {
		return string(decoded)
	}
	return message
}
