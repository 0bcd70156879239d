package server

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/magefree/solitaire-server-go/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestChainUnaryInterceptorsOrder(t *testing.T) {
	var calls []string
	record := func(name string) grpc.UnaryServerInterceptor {
		return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
			calls = append(calls, name+":before")
			resp, err := handler(ctx, req)
			calls = append(calls, name+":after")
			return resp, err
		}
	}

	chain := ChainUnaryInterceptors(record("outer"), record("inner"))
	resp, err := chain(context.Background(), "req", &grpc.UnaryServerInfo{FullMethod: "/test"},
		func(ctx context.Context, req any) (any, error) {
			calls = append(calls, "handler")
			return "resp", nil
		})

	require.NoError(t, err)
	assert.Equal(t, "resp", resp)
	assert.Equal(t, []string{"outer:before", "inner:before", "handler", "inner:after", "outer:after"}, calls)
}

func TestRecoveryInterceptor(t *testing.T) {
	interceptor := RecoveryInterceptor(zaptest.NewLogger(t))
	resp, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: FullMethod(MethodDraw)},
		func(ctx context.Context, req any) (any, error) {
			panic("boom")
		})

	assert.Nil(t, resp)
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestLoggingInterceptorPassesThrough(t *testing.T) {
	interceptor := LoggingInterceptor(zaptest.NewLogger(t))
	want := status.Error(codes.NotFound, "missing")
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: FullMethod(MethodGetState)},
		func(ctx context.Context, req any) (any, error) {
			return nil, want
		})
	assert.Equal(t, want, err)
}

func TestSessionValidationInterceptor(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	manager := game.NewManager(game.ManagerOptions{
		Session: game.SessionOptions{Now: func() time.Time { return now }},
	}, zap.NewNop())
	sess, err := manager.Create(context.Background(), "test")
	require.NoError(t, err)

	interceptor := SessionValidationInterceptor(manager)
	var seen *game.Session
	handler := func(ctx context.Context, req any) (any, error) {
		seen, _ = sessionFromContext(ctx)
		return "ok", nil
	}
	req, err := structpb.NewStruct(map[string]any{"session_id": sess.ID})
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = interceptor(context.Background(), req, &grpc.UnaryServerInfo{FullMethod: FullMethod(MethodDraw)}, handler)
	require.NoError(t, err)
	assert.Same(t, sess, seen)
	assert.Equal(t, now, sess.LastActivity(), "validation renews the lease")

	seen = nil
	_, err = interceptor(context.Background(), &structpb.Struct{}, &grpc.UnaryServerInfo{FullMethod: FullMethod(MethodCreateSession)}, handler)
	require.NoError(t, err)
	assert.Nil(t, seen, "sessionless methods skip validation")

	_, err = interceptor(context.Background(), &structpb.Struct{}, &grpc.UnaryServerInfo{FullMethod: FullMethod(MethodDraw)}, handler)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	missing, _ := structpb.NewStruct(map[string]any{"session_id": "missing"})
	_, err = interceptor(context.Background(), missing, &grpc.UnaryServerInfo{FullMethod: FullMethod(MethodDraw)}, handler)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestPayloadFields(t *testing.T) {
	req, err := structpb.NewStruct(map[string]any{
		"source":       "Tableau",
		"source_index": 2,
		"target":       "foundation",
		"target_index": 1,
		"half":         1.5,
		"wait":         true,
		"none":         nil,
		"huge":         1e300,
		"max":          float64(math.MaxInt32),
	})
	require.NoError(t, err)

	move, err := parseMove(req)
	require.NoError(t, err)
	assert.Equal(t, game.TopIndex, move.Index, "missing card index selects the top card")
	assert.Equal(t, "tableau-2", move.Source.String())
	assert.Equal(t, "foundation-1", move.Target.String())

	_, err = intField(req, "half", 0)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	_, err = intField(req, "huge", 0)
	assert.Equal(t, codes.InvalidArgument, status.Code(err), "values beyond int32 are rejected")
	n, err := intField(req, "max", 0)
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt32, n)
	n, err = intField(req, "none", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.True(t, boolField(req, "wait"))
	assert.False(t, boolField(req, "missing"))

	target, err := parseTarget(&structpb.Struct{})
	require.NoError(t, err)
	assert.True(t, target.IsNone())
}

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{game.ErrSessionNotFound, codes.NotFound},
		{game.ErrTooManySessions, codes.ResourceExhausted},
		{game.ErrInvalidDrawMode, codes.InvalidArgument},
		{game.ErrInvalidReplayStep, codes.InvalidArgument},
		{game.ErrNoActiveGame, codes.FailedPrecondition},
		{game.ErrNoModeSelected, codes.FailedPrecondition},
		{game.ErrNoDrag, codes.FailedPrecondition},
		{game.ErrHintPending, codes.FailedPrecondition},
		{status.Error(codes.OutOfRange, "x"), codes.OutOfRange},
		{assert.AnError, codes.Internal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, status.Code(statusFromError(tt.err)), "%v", tt.err)
	}
	assert.NoError(t, statusFromError(nil))
}
