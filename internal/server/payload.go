package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/magefree/solitaire-server-go/internal/game"
	"github.com/magefree/solitaire-server-go/internal/game/pile"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Request field names shared by the gRPC and WebSocket surfaces.
const (
	fieldSessionID   = "session_id"
	fieldDrawMode    = "draw_mode"
	fieldSeed        = "seed"
	fieldSource      = "source"
	fieldSourceIndex = "source_index"
	fieldCardIndex   = "card_index"
	fieldTarget      = "target"
	fieldTargetIndex = "target_index"
	fieldWait        = "wait"
	fieldIndex       = "index"
	fieldCursor      = "cursor"
	fieldCount       = "count"
)

func field(req *structpb.Struct, name string) (*structpb.Value, bool) {
	v, ok := req.GetFields()[name]
	if !ok || v == nil {
		return nil, false
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, false
	}
	return v, true
}

func stringField(req *structpb.Struct, name string) string {
	v, ok := field(req, name)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v.GetStringValue())
}

func intField(req *structpb.Struct, name string, def int) (int, error) {
	v, ok := field(req, name)
	if !ok {
		return def, nil
	}
	num, isNum := v.GetKind().(*structpb.Value_NumberValue)
	if !isNum {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be a number", name)
	}
	n := num.NumberValue
	if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be an integer", name)
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return 0, status.Errorf(codes.InvalidArgument, "%s is out of range", name)
	}
	return int(n), nil
}

func boolField(req *structpb.Struct, name string) bool {
	v, ok := field(req, name)
	if !ok {
		return false
	}
	return v.GetBoolValue()
}

func parseRef(req *structpb.Struct, kindField, indexField string) (pile.Ref, error) {
	name := strings.ToLower(stringField(req, kindField))
	if name == "" {
		return pile.Ref{}, status.Errorf(codes.InvalidArgument, "%s is required", kindField)
	}
	kind, err := pile.ParseKind(name)
	if err != nil {
		return pile.Ref{}, status.Errorf(codes.InvalidArgument, "%s: %v", kindField, err)
	}
	index, err := intField(req, indexField, 0)
	if err != nil {
		return pile.Ref{}, err
	}
	return pile.Ref{Kind: kind, Index: index}, nil
}

// parseDragStart reads the source pile and card index of a drag or move. A missing card index
// selects the top card.
func parseDragStart(req *structpb.Struct) (pile.Ref, int, error) {
	source, err := parseRef(req, fieldSource, fieldSourceIndex)
	if err != nil {
		return pile.Ref{}, 0, err
	}
	index, err := intField(req, fieldCardIndex, game.TopIndex)
	if err != nil {
		return pile.Ref{}, 0, err
	}
	return source, index, nil
}

func parseMove(req *structpb.Struct) (game.Move, error) {
	source, index, err := parseDragStart(req)
	if err != nil {
		return game.Move{}, err
	}
	target, err := parseRef(req, fieldTarget, fieldTargetIndex)
	if err != nil {
		return game.Move{}, err
	}
	return game.Move{Source: source, Index: index, Target: target}, nil
}

// parseTarget reads a drop target. A missing target kind is a drop outside every pile.
func parseTarget(req *structpb.Struct) (game.Target, error) {
	index, err := intField(req, fieldTargetIndex, 0)
	if err != nil {
		return game.Target{}, err
	}
	target, err := game.ParseTarget(stringField(req, fieldTarget), index)
	if err != nil {
		return game.Target{}, status.Error(codes.InvalidArgument, err.Error())
	}
	return target, nil
}

// encode converts v into the generic JSON shape structpb accepts.
func encode(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return out, nil
}

func newResponse(fields map[string]any) (*structpb.Struct, error) {
	for k, v := range fields {
		switch v.(type) {
		case game.StateView, *game.StateView, game.DragView, map[string]any:
			encoded, err := encode(v)
			if err != nil {
				return nil, status.Error(codes.Internal, err.Error())
			}
			fields[k] = encoded
		}
	}
	resp, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to build response: %v", err)
	}
	return resp, nil
}

// rejectedFields describes a refused move. Rejections are an expected outcome, so they are
// reported in the response body rather than as a gRPC error.
func rejectedFields(err error) (map[string]any, bool) {
	var rejected *game.RejectedError
	if !errors.As(err, &rejected) {
		return nil, false
	}
	return map[string]any{
		"success": false,
		"error":   game.ErrMoveRejected.Error(),
		"reason":  rejected.Result.Reason,
	}, true
}

// statusFromError maps domain errors to gRPC status codes.
func statusFromError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, game.ErrSessionNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, game.ErrTooManySessions):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, game.ErrInvalidDrawMode), errors.Is(err, game.ErrInvalidReplayStep):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, game.ErrNoActiveGame),
		errors.Is(err, game.ErrNoModeSelected),
		errors.Is(err, game.ErrNoDrag),
		errors.Is(err, game.ErrHintPending),
		errors.Is(err, game.ErrMoveRejected):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
