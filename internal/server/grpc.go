package server

import (
	"context"
	"net"
	"runtime"
	"time"

	"github.com/magefree/solitaire-server-go/internal/game"
	"github.com/magefree/solitaire-server-go/internal/hint"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// solitaireServer implements the Solitaire gRPC service
type solitaireServer struct {
	logger        *zap.Logger
	serverVersion string

	manager *game.Manager
	hints   *hint.Service
}

// NewSolitaireServer creates the gRPC service. A nil hint service answers every hint request
// with the disabled fallback.
func NewSolitaireServer(manager *game.Manager, hints *hint.Service, serverVersion string, logger *zap.Logger) *solitaireServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if hints == nil {
		hints = hint.NewService(nil, 0, logger)
	}
	return &solitaireServer{
		logger:        logger,
		serverVersion: serverVersion,
		manager:       manager,
		hints:         hints,
	}
}

// session returns the session resolved by SessionValidationInterceptor, or looks it up when
// the server is called without the interceptor chain.
func (s *solitaireServer) session(ctx context.Context, req *structpb.Struct) (*game.Session, error) {
	if sess, ok := sessionFromContext(ctx); ok {
		return sess, nil
	}
	id := stringField(req, fieldSessionID)
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id is required")
	}
	sess, ok := s.manager.Get(id)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "session %s not found", id)
	}
	return sess, nil
}

func stateResponse(sess *game.Session, fields map[string]any) (*structpb.Struct, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	if _, ok := fields["success"]; !ok {
		fields["success"] = true
	}
	fields["state"] = sess.View()
	return newResponse(fields)
}

// ==================== Session Methods ====================

// CreateSession opens a session in mode selection
func (s *solitaireServer) CreateSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	host := extractHostFromContext(ctx)

	sess, err := s.manager.Create(ctx, host)
	if err != nil {
		s.logger.Warn("create session failed", zap.String("host", host), zap.Error(err))
		return nil, statusFromError(err)
	}

	return stateResponse(sess, map[string]any{"session_id": sess.ID})
}

// CloseSession ends a session
func (s *solitaireServer) CloseSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	s.manager.Remove(sess.ID)
	return newResponse(map[string]any{"success": true})
}

// Ping keeps a session alive
func (s *solitaireServer) Ping(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	sess.Touch()
	return newResponse(map[string]any{"success": true})
}

// ==================== Game Lifecycle Methods ====================

// StartGame deals a new game in the requested draw mode
func (s *solitaireServer) StartGame(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	n, err := intField(req, fieldDrawMode, 0)
	if err != nil {
		return nil, err
	}
	mode, err := game.ParseDrawMode(n)
	if err != nil {
		return nil, statusFromError(err)
	}

	if seed := stringField(req, fieldSeed); seed != "" {
		err = sess.StartSeeded(ctx, mode, seed)
	} else {
		err = sess.Start(ctx, mode)
	}
	if err != nil {
		return nil, statusFromError(err)
	}
	return stateResponse(sess, nil)
}

// PlayAgain deals a new game in the current draw mode
func (s *solitaireServer) PlayAgain(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := sess.PlayAgain(ctx); err != nil {
		return nil, statusFromError(err)
	}
	return stateResponse(sess, nil)
}

// NewGame returns the session to mode selection
func (s *solitaireServer) NewGame(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := sess.NewGame(ctx); err != nil {
		return nil, statusFromError(err)
	}
	return stateResponse(sess, nil)
}

// GetState returns the current view of a session
func (s *solitaireServer) GetState(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	return stateResponse(sess, nil)
}

// ==================== Play Methods ====================

// Draw turns cards from the stock, or recycles the waste when the stock is empty
func (s *solitaireServer) Draw(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	action, err := sess.Draw(ctx)
	if err != nil {
		return nil, statusFromError(err)
	}
	return stateResponse(sess, map[string]any{"action": action.String()})
}

// Move applies a move given by source, card index and target
func (s *solitaireServer) Move(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	move, err := parseMove(req)
	if err != nil {
		return nil, err
	}
	outcome, err := sess.Move(ctx, move)
	return s.outcomeResponse(sess, outcome, err)
}

// Undo restores the position before the last action
func (s *solitaireServer) Undo(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	undone, err := sess.Undo(ctx)
	if err != nil {
		return nil, statusFromError(err)
	}
	return stateResponse(sess, map[string]any{"undone": undone})
}

func (s *solitaireServer) outcomeResponse(sess *game.Session, outcome game.Outcome, err error) (*structpb.Struct, error) {
	if fields, ok := rejectedFields(err); ok {
		s.logger.Debug("move rejected", zap.String("session_id", sess.ID), zap.Error(err))
		return stateResponse(sess, fields)
	}
	if err != nil {
		return nil, statusFromError(err)
	}
	return stateResponse(sess, map[string]any{
		"points":   outcome.Points,
		"revealed": outcome.Revealed,
		"won":      outcome.Won,
		"cards":    len(outcome.Cards),
	})
}

// ==================== Drag Methods ====================

// BeginDrag picks up a run of cards
func (s *solitaireServer) BeginDrag(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	source, index, err := parseDragStart(req)
	if err != nil {
		return nil, err
	}
	if _, err := sess.BeginDrag(source, index); err != nil {
		if fields, ok := rejectedFields(err); ok {
			return stateResponse(sess, fields)
		}
		return nil, statusFromError(err)
	}
	return stateResponse(sess, nil)
}

// Drop releases the current drag on the resolved target
func (s *solitaireServer) Drop(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	target, err := parseTarget(req)
	if err != nil {
		return nil, err
	}
	outcome, err := sess.Drop(ctx, target)
	return s.outcomeResponse(sess, outcome, err)
}

// CancelDrag discards the current drag
func (s *solitaireServer) CancelDrag(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	sess.CancelDrag()
	return stateResponse(sess, nil)
}

// ==================== Hint & Replay Methods ====================

// RequestHint asks the hint oracle for a suggestion. By default the answer is delivered
// asynchronously through the session notifications; with wait set the call blocks for it.
func (s *solitaireServer) RequestHint(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}

	if boolField(req, fieldWait) {
		text, delivered, err := s.hints.Request(ctx, sess)
		if err != nil {
			return nil, statusFromError(err)
		}
		return stateResponse(sess, map[string]any{"hint": text, "delivered": delivered})
	}

	if err := s.hints.RequestAsync(context.WithoutCancel(ctx), sess); err != nil {
		return nil, statusFromError(err)
	}
	return stateResponse(sess, map[string]any{"pending": true})
}

// GetReplay returns the recorded positions of the current game. With index set, the
// position at that index is included as frame. With cursor set (start, next, previous or
// skip with count), the game's playback cursor moves and the frame it lands on is included.
func (s *solitaireServer) GetReplay(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(ctx, req)
	if err != nil {
		return nil, err
	}
	replay := sess.Replay()
	if replay == nil {
		return nil, statusFromError(game.ErrNoActiveGame)
	}

	fields := map[string]any{
		"success": true,
		"game_id": replay.GameID,
		"size":    replay.Size(),
	}
	if _, ok := field(req, fieldCursor); ok {
		step, err := game.ParseReplayStep(stringField(req, fieldCursor))
		if err != nil {
			return nil, statusFromError(err)
		}
		count, err := intField(req, fieldCount, 1)
		if err != nil {
			return nil, err
		}
		index, state, moved := replay.Step(step, count)
		fields["cursor"] = index
		fields["moved"] = moved
		if moved {
			fields["index"] = index
			fields["frame"] = game.NewBoardView(state, int(sess.Mode()))
		}
		return newResponse(fields)
	}
	if _, ok := field(req, fieldIndex); ok {
		index, err := intField(req, fieldIndex, 0)
		if err != nil {
			return nil, err
		}
		state := replay.GetStateAt(index)
		if state == nil {
			return nil, status.Errorf(codes.OutOfRange, "replay index %d out of range", index)
		}
		fields["index"] = index
		fields["frame"] = game.NewBoardView(state, int(sess.Mode()))
	}
	return newResponse(fields)
}

// ==================== Server Info Methods ====================

// GetServerState returns server state information
func (s *solitaireServer) GetServerState(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return newResponse(map[string]any{
		"active_sessions":   s.manager.ActiveCount(),
		"active_games":      s.manager.PlayingCount(),
		"number_of_threads": runtime.NumGoroutine(),
		"server_version":    s.serverVersion,
		"server_time":       timestamppb.Now().AsTime().Format(time.RFC3339Nano),
		"hints_enabled":     s.hints.Enabled(),
	})
}

func extractHostFromContext(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != net.Addr(nil) {
		if host, _, err := net.SplitHostPort(p.Addr.String()); err == nil {
			return host
		}
		return p.Addr.String()
	}
	return "unknown"
}
