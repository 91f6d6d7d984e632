package game

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"github.com/mcdev12/clicker/go/clients/clicker_client"
	"github.com/mcdev12/clicker/go/internal/models"
	"github.com/rs/zerolog/log"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	rpcParseError     = -32700
	rpcInvalidParams  = -32602
	rpcInternalError  = -32603
	maxRPCRequestBody = 1 << 20
)

// GameApp defines what the service layer needs from the game application
type GameApp interface {
	ListSubjects(ctx context.Context) ([]models.Subject, error)
	GetStats(ctx context.Context, subjectID string) (*clicker_client.StatsResult, error)
	Click(ctx context.Context, subjectID string, unitAmount int, requestID string) (*clicker_client.ClickResult, error)
	BuyBot(ctx context.Context, subjectID string) (*clicker_client.BuyBotResult, error)
	UpgradeMultiplier(ctx context.Context, subjectID string) (*clicker_client.UpgradeMultiplierResult, error)
	UpgradeBots(ctx context.Context, subjectID string) (*clicker_client.UpgradeBotsResult, error)
}

// Service exposes the game over JSON-RPC and Connect.
type Service struct {
	app GameApp
}

func NewService(app GameApp) *Service {
	return &Service{app: app}
}

// invoke decodes raw params for op and runs it.
func (s *Service) invoke(ctx context.Context, op clicker_client.Operation, raw []byte) (any, error) {
	if op == clicker_client.OpClick {
		var params clicker_client.ClickParams
		if err := decodeParams(raw, &params); err != nil {
			return nil, err
		}
		return s.app.Click(ctx, params.SubjectID, params.UnitAmount, params.RequestID)
	}

	var params clicker_client.SubjectParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	switch op {
	case clicker_client.OpGetStats:
		return s.app.GetStats(ctx, params.SubjectID)
	case clicker_client.OpBuyBot:
		return s.app.BuyBot(ctx, params.SubjectID)
	case clicker_client.OpUpgradeMultiplier:
		return s.app.UpgradeMultiplier(ctx, params.SubjectID)
	case clicker_client.OpUpgradeBots:
		return s.app.UpgradeBots(ctx, params.SubjectID)
	default:
		return nil, errUnknownOperation
	}
}

var (
	errUnknownOperation = errors.New("unknown operation")
	errInvalidParams    = errors.New("invalid params")
)

func decodeParams(raw []byte, out any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errInvalidParams
	}
	return nil
}

// ServeHTTP handles POST {PathPrefix}{operation} with a JSON-RPC envelope.
// Rule violations come back as a success=false result, as clients expect.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	op := clicker_client.Operation(strings.TrimPrefix(r.URL.Path, clicker_client.PathPrefix))

	var req clicker_client.RPCRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRPCRequestBody)).Decode(&req); err != nil {
		writeRPC(w, clicker_client.RPCResponse{
			JSONRPC: "2.0",
			Error:   &clicker_client.RPCError{Code: rpcParseError, Message: "parse error"},
		})
		return
	}

	resp := clicker_client.RPCResponse{JSONRPC: "2.0", ID: req.ID}
	result, err := s.invoke(r.Context(), op, req.Params)
	switch {
	case errors.Is(err, errUnknownOperation):
		http.NotFound(w, r)
		return
	case errors.Is(err, errInvalidParams):
		resp.Error = &clicker_client.RPCError{Code: rpcInvalidParams, Message: err.Error()}
	case err != nil && IsRejection(err):
		result = clicker_client.Failure(err.Error())
	case err != nil:
		log.Error().Err(err).Str("op", string(op)).Msg("rpc call failed")
		resp.Error = &clicker_client.RPCError{Code: rpcInternalError, Message: err.Error()}
	}

	if resp.Error == nil {
		raw, err := json.Marshal(result)
		if err != nil {
			resp.Error = &clicker_client.RPCError{Code: rpcInternalError, Message: err.Error()}
		} else {
			resp.Result = raw
		}
	}
	writeRPC(w, resp)
}

func writeRPC(w http.ResponseWriter, resp clicker_client.RPCResponse) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error().Err(err).Msg("failed to write rpc response")
	}
}

// ConnectHandlers returns one Connect unary handler per operation, keyed by
// procedure path.
func (s *Service) ConnectHandlers(opts ...connect.HandlerOption) map[string]http.Handler {
	handlers := make(map[string]http.Handler, len(clicker_client.Operations))
	for _, op := range clicker_client.Operations {
		op := op
		handlers[op.Procedure()] = connect.NewUnaryHandler(
			op.Procedure(),
			func(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
				return s.handleConnect(ctx, op, req.Msg)
			},
			opts...,
		)
	}
	return handlers
}

func (s *Service) handleConnect(ctx context.Context, op clicker_client.Operation, msg *structpb.Struct) (*connect.Response[structpb.Struct], error) {
	raw, err := json.Marshal(msg.AsMap())
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	result, err := s.invoke(ctx, op, raw)
	if err != nil {
		return nil, connectError(err)
	}

	out, err := clicker_client.ToStruct(result)
	if errors.Is(err, clicker_client.ErrInexactNumber) {
		return nil, connect.NewError(connect.CodeOutOfRange, err)
	}
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(out), nil
}

func connectError(err error) error {
	var insufficient *InsufficientBalanceError
	switch {
	case errors.As(err, &insufficient):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, ErrSubjectNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, ErrNoSubject), errors.Is(err, ErrTooManyUnits),
		errors.Is(err, ErrInvalidUnits), errors.Is(err, errInvalidParams):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, errUnknownOperation):
		return connect.NewError(connect.CodeUnimplemented, err)
	default:
		log.Error().Err(err).Msg("connect call failed")
		return connect.NewError(connect.CodeInternal, err)
	}
}

// SubjectSummary is one row of the subject listing.
type SubjectSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Balance int64  `json:"balance"`
}

// HandleListSubjects serves GET /subjects.
func (s *Service) HandleListSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := s.app.ListSubjects(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list subjects")
		http.Error(w, "failed to list subjects", http.StatusInternalServerError)
		return
	}

	out := make([]SubjectSummary, 0, len(subjects))
	for _, subject := range subjects {
		out = append(out, SubjectSummary{ID: subject.ID, Name: subject.Name, Balance: subject.Balance})
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		log.Error().Err(err).Msg("failed to write subject list")
	}
}
