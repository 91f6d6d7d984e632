package clicker_client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"
)

// maxExactInt is the largest magnitude a float64 holds without rounding.
const maxExactInt = 1 << 53

// ErrInexactNumber is returned when a number would be rounded by the
// float64 values a Struct carries.
var ErrInexactNumber = errors.New("number cannot be carried exactly")

// ConnectCaller issues the same operations as Connect unary calls carrying
// google.protobuf.Struct messages.
type ConnectCaller struct {
	procedures map[Operation]*connect.Client[structpb.Struct, structpb.Struct]
}

func NewConnectCaller(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ConnectCaller {
	procedures := make(map[Operation]*connect.Client[structpb.Struct, structpb.Struct], len(Operations))
	for _, op := range Operations {
		procedures[op] = connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+op.Procedure(), opts...)
	}
	return &ConnectCaller{procedures: procedures}
}

func (c *ConnectCaller) Call(ctx context.Context, op Operation, params any) (json.RawMessage, error) {
	client, ok := c.procedures[op]
	if !ok {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("unknown operation %q", op)}
	}

	msg, err := ToStruct(params)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("encode params: %w", err)}
	}

	resp, err := client.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		switch connect.CodeOf(err) {
		case connect.CodeFailedPrecondition, connect.CodeInvalidArgument, connect.CodeNotFound:
			var connectErr *connect.Error
			if errors.As(err, &connectErr) {
				return nil, &RemoteError{Op: op, Message: connectErr.Message()}
			}
		}
		return nil, &TransportError{Op: op, Err: err}
	}

	fields := resp.Msg.AsMap()
	if err := checkExact(fields); err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return raw, nil
}

// ToStruct converts any JSON-encodable value into a Struct message. Integers
// beyond 2^53 are refused with ErrInexactNumber rather than rounded.
func ToStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	converted, err := exactNumbers(fields)
	if err != nil {
		return nil, err
	}
	return structpb.NewStruct(converted.(map[string]any))
}

func exactNumbers(v any) (any, error) {
	switch v := v.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			if n > maxExactInt || n < -maxExactInt {
				return nil, fmt.Errorf("%s: %w", v, ErrInexactNumber)
			}
			return float64(n), nil
		}
		f, err := v.Float64()
		if err != nil || math.Abs(f) > maxExactInt {
			return nil, fmt.Errorf("%s: %w", v, ErrInexactNumber)
		}
		return f, nil
	case map[string]any:
		for k, elem := range v {
			converted, err := exactNumbers(elem)
			if err != nil {
				return nil, err
			}
			v[k] = converted
		}
		return v, nil
	case []any:
		for i, elem := range v {
			converted, err := exactNumbers(elem)
			if err != nil {
				return nil, err
			}
			v[i] = converted
		}
		return v, nil
	default:
		return v, nil
	}
}

// checkExact rejects decoded Struct numbers that may already have been
// rounded on the way in.
func checkExact(v any) error {
	switch v := v.(type) {
	case float64:
		if math.Abs(v) > maxExactInt {
			return fmt.Errorf("%g: %w", v, ErrInexactNumber)
		}
	case map[string]any:
		for _, elem := range v {
			if err := checkExact(elem); err != nil {
				return err
			}
		}
	case []any:
		for _, elem := range v {
			if err := checkExact(elem); err != nil {
				return err
			}
		}
	}
	return nil
}
