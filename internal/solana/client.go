package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// LamportsPerSOL converts the chain's integer base unit to SOL.
const LamportsPerSOL = 1_000_000_000

// Client is a read-only JSON-RPC client for a Solana cluster. It implements
// only the two calls the backend consumes: getTransaction (jsonParsed) and
// getBalance.
type Client struct {
	url        string
	httpClient *http.Client
}

func NewClient(url string) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// GetParsedTransaction fetches a confirmed transaction by signature using the
// jsonParsed encoding. Returns (nil, nil) when the cluster does not know the
// signature, which callers must treat as "not confirmed yet".
func (c *Client) GetParsedTransaction(ctx context.Context, signature string) (*ParsedTransaction, error) {
	params := []any{
		signature,
		map[string]any{
			"encoding":                       "jsonParsed",
			"commitment":                     "confirmed",
			"maxSupportedTransactionVersion": 0,
		},
	}
	raw, err := c.call(ctx, "getTransaction", params)
	if err != nil {
		return nil, err
	}
	if isJSONNull(raw) {
		return nil, nil
	}
	var tx ParsedTransaction
	if err := json.Unmarshal(raw, &tx); err != nil {
		return nil, fmt.Errorf("decode getTransaction result: %w", err)
	}
	return &tx, nil
}

// GetBalance returns the confirmed balance of an account in lamports.
func (c *Client) GetBalance(ctx context.Context, address string) (uint64, error) {
	params := []any{
		address,
		map[string]any{"commitment": "confirmed"},
	}
	raw, err := c.call(ctx, "getBalance", params)
	if err != nil {
		return 0, err
	}
	var result struct {
		Value uint64 `json:"value"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return 0, fmt.Errorf("decode getBalance result: %w", err)
	}
	return result.Value, nil
}

func (c *Client) call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status %d", method, resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("%s: %w", method, rpcResp.Error)
	}
	return rpcResp.Result, nil
}

func isJSONNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
