package server

import (
	"context"
	"time"

	"github.com/magefree/solitaire-server-go/internal/game"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type sessionKey struct{}

func withSession(ctx context.Context, sess *game.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

func sessionFromContext(ctx context.Context) (*game.Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(*game.Session)
	return sess, ok && sess != nil
}

// sessionlessMethods do not require a session_id.
var sessionlessMethods = map[string]bool{
	FullMethod(MethodCreateSession):  true,
	FullMethod(MethodGetServerState): true,
}

// ChainUnaryInterceptors combines interceptors; the first one is the outermost.
func ChainUnaryInterceptors(interceptors ...grpc.UnaryServerInterceptor) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		chained := handler
		for i := len(interceptors) - 1; i >= 0; i-- {
			interceptor := interceptors[i]
			next := chained
			chained = func(ctx context.Context, req any) (any, error) {
				return interceptor(ctx, req, info, next)
			}
		}
		return chained(ctx, req)
	}
}

// RecoveryInterceptor turns handler panics into codes.Internal.
func RecoveryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic in gRPC handler",
					zap.String("method", info.FullMethod),
					zap.Any("panic", r),
					zap.Stack("stack"),
				)
				resp = nil
				err = status.Error(codes.Internal, "internal server error")
			}
		}()
		return handler(ctx, req)
	}
}

// LoggingInterceptor logs every call with its status code and latency.
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("duration", time.Since(start)),
			zap.String("host", extractHostFromContext(ctx)),
		}
		switch status.Code(err) {
		case codes.OK:
			logger.Debug("gRPC call", fields...)
		case codes.Internal, codes.Unknown:
			logger.Error("gRPC call failed", append(fields, zap.Error(err))...)
		default:
			logger.Info("gRPC call rejected", append(fields, zap.Error(err))...)
		}
		return resp, err
	}
}

// SessionValidationInterceptor resolves the session_id of every session-bound call, renews its
// lease and stores the session in the context.
func SessionValidationInterceptor(manager *game.Manager) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if sessionlessMethods[info.FullMethod] {
			return handler(ctx, req)
		}
		in, ok := req.(*structpb.Struct)
		if !ok {
			return handler(ctx, req)
		}
		id := stringField(in, fieldSessionID)
		if id == "" {
			return nil, status.Error(codes.InvalidArgument, "session_id is required")
		}
		sess, ok := manager.Get(id)
		if !ok {
			return nil, status.Errorf(codes.NotFound, "session %s not found", id)
		}
		sess.Touch()
		return handler(withSession(ctx, sess), req)
	}
}
