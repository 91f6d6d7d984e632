package clicker_client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"

	"github.com/mcdev12/clicker/go/clients"
)

// Caller performs exactly one remote call and returns the raw result payload.
// Implementations never retry.
type Caller interface {
	Call(ctx context.Context, op Operation, params any) (json.RawMessage, error)
}

// RPCRequest is the JSON-RPC 2.0 request envelope.
type RPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      int             `json:"id"`
}

// RPCResponse is the JSON-RPC 2.0 response envelope.
type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// JSONRPCCaller posts JSON-RPC envelopes to one route per operation.
type JSONRPCCaller struct {
	*clients.BaseClient
}

func NewJSONRPCCaller(baseURL string) *JSONRPCCaller {
	caller := &JSONRPCCaller{
		BaseClient: clients.NewBaseClient(baseURL),
	}
	caller.SetHeader("Content-Type", "application/json")
	return caller
}

func (c *JSONRPCCaller) Call(ctx context.Context, op Operation, params any) (json.RawMessage, error) {
	rawParams, err := json.Marshal(params)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("encode params: %w", err)}
	}

	body, err := json.Marshal(RPCRequest{
		JSONRPC: "2.0",
		Method:  "call",
		Params:  rawParams,
		ID:      rand.Intn(1000000),
	})
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
	}

	respBody, err := c.Post(ctx, op.Path(), bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}

	var resp RPCResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	if resp.Error != nil {
		return nil, &RemoteError{Op: op, Message: resp.Error.Message}
	}
	if len(resp.Result) == 0 || bytes.Equal(resp.Result, []byte("null")) {
		return nil, &TransportError{Op: op, Err: errors.New("response carried no result")}
	}

	return resp.Result, nil
}
