package clicker_client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcdev12/clicker/go/clients"
)

const (
	TransportJSONRPC = "jsonrpc"
	TransportConnect = "connect"
)

// Client exposes the game server operations as typed calls over a Caller.
type Client struct {
	caller Caller
}

func NewClient(caller Caller) *Client {
	return &Client{caller: caller}
}

// NewClickerClient builds a client for baseURL over the named transport.
func NewClickerClient(baseURL, transport string, timeout time.Duration) (*Client, error) {
	switch transport {
	case TransportJSONRPC, "":
		caller := NewJSONRPCCaller(baseURL)
		caller.SetTimeout(timeout)
		return NewClient(caller), nil
	case TransportConnect:
		base := clients.NewBaseClient(baseURL)
		base.SetTimeout(timeout)
		return NewClient(NewConnectCaller(base.HTTPClient(), base.BaseURL())), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", transport)
	}
}

func (c *Client) GetStats(ctx context.Context, subjectID string) (*StatsResult, error) {
	var res StatsResult
	if err := c.call(ctx, OpGetStats, SubjectParams{SubjectID: subjectID}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Click(ctx context.Context, subjectID string, unitAmount int, requestID string) (*ClickResult, error) {
	var res ClickResult
	params := ClickParams{SubjectID: subjectID, UnitAmount: unitAmount, RequestID: requestID}
	if err := c.call(ctx, OpClick, params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) BuyBot(ctx context.Context, subjectID string) (*BuyBotResult, error) {
	var res BuyBotResult
	if err := c.call(ctx, OpBuyBot, SubjectParams{SubjectID: subjectID}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) UpgradeMultiplier(ctx context.Context, subjectID string) (*UpgradeMultiplierResult, error) {
	var res UpgradeMultiplierResult
	if err := c.call(ctx, OpUpgradeMultiplier, SubjectParams{SubjectID: subjectID}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) UpgradeBots(ctx context.Context, subjectID string) (*UpgradeBotsResult, error) {
	var res UpgradeBotsResult
	if err := c.call(ctx, OpUpgradeBots, SubjectParams{SubjectID: subjectID}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// call performs one remote call and turns a success=false payload into a RemoteError.
func (c *Client) call(ctx context.Context, op Operation, params any, out result) error {
	raw, err := c.caller.Call(ctx, op, params)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode result: %w, raw result: %s", err, string(raw))}
	}

	env := out.envelope()
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = "request rejected"
		}
		return &RemoteError{Op: op, Message: msg}
	}
	return nil
}
