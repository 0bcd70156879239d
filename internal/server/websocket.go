package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/magefree/solitaire-server-go/internal/config"
	"github.com/magefree/solitaire-server-go/internal/game"
	"github.com/magefree/solitaire-server-go/internal/hint"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBuffer     = 256
	eventBuffer    = 1024
)

// Client message types.
const (
	MsgCreateSession = "create_session"
	MsgJoinSession   = "join_session"
	MsgCloseSession  = "close_session"
	MsgStartGame     = "start_game"
	MsgPlayAgain     = "play_again"
	MsgNewGame       = "new_game"
	MsgGetState      = "get_state"
	MsgDraw          = "draw"
	MsgMove          = "move"
	MsgUndo          = "undo"
	MsgBeginDrag     = "begin_drag"
	MsgDrop          = "drop"
	MsgCancelDrag    = "cancel_drag"
	MsgHint          = "hint"
)

// Server message types.
const (
	MsgSession       = "session"
	MsgGameState     = "game_state"
	MsgModeSelect    = "mode_select"
	MsgWin           = "win"
	MsgHintAnswer    = "hint"
	MsgSessionClosed = "session_closed"
	MsgError         = "error"
)

var notificationTypes = map[string]string{
	game.NotifyGameState:  MsgGameState,
	game.NotifyModeSelect: MsgModeSelect,
	game.NotifyWin:        MsgWin,
	game.NotifyHint:       MsgHintAnswer,
	game.NotifyClosed:     MsgSessionClosed,
}

// WSMessage is a client request.
type WSMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// WSEvent is a server push.
type WSEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// WSClient is one WebSocket connection. It follows at most one session at a time.
type WSClient struct {
	conn *websocket.Conn
	send chan []byte
	host string

	// session is only touched by the connection's read goroutine.
	session *game.Session
}

type hubOp int

const (
	opRegister hubOp = iota
	opUnregister
	opBind
	opReply
	opNotify
)

type hubEvent struct {
	op           hubOp
	client       *WSClient
	sessionID    string
	payload      []byte
	notification game.Notification
}

// Hub routes session notifications to the connections following each session. Every
// operation goes through a single channel so a client sees replies and pushes in the order
// they were produced.
type Hub struct {
	events chan hubEvent
	done   chan struct{}
	logger *zap.Logger

	// owned by run
	clients  map[*WSClient]string
	sessions map[string]map[*WSClient]bool
}

// NewHub creates a hub; call Run to start routing.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		events:   make(chan hubEvent, eventBuffer),
		done:     make(chan struct{}),
		logger:   logger,
		clients:  make(map[*WSClient]string),
		sessions: make(map[string]map[*WSClient]bool),
	}
}

// Run routes events until ctx is cancelled, then closes every connection's send queue.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
			}
			h.clients = map[*WSClient]string{}
			h.sessions = map[string]map[*WSClient]bool{}
			return
		case ev := <-h.events:
			h.handle(ev)
		}
	}
}

func (h *Hub) handle(ev hubEvent) {
	switch ev.op {
	case opRegister:
		h.clients[ev.client] = ""
		h.logger.Debug("websocket client registered", zap.String("host", ev.client.host))

	case opUnregister:
		if _, ok := h.clients[ev.client]; ok {
			h.unbind(ev.client)
			delete(h.clients, ev.client)
			close(ev.client.send)
			h.logger.Debug("websocket client unregistered", zap.String("host", ev.client.host))
		}

	case opBind:
		if _, ok := h.clients[ev.client]; !ok {
			return
		}
		h.unbind(ev.client)
		h.clients[ev.client] = ev.sessionID
		if h.sessions[ev.sessionID] == nil {
			h.sessions[ev.sessionID] = make(map[*WSClient]bool)
		}
		h.sessions[ev.sessionID][ev.client] = true

	case opReply:
		if _, ok := h.clients[ev.client]; ok {
			h.deliver(ev.client, ev.payload)
		}

	case opNotify:
		followers := h.sessions[ev.notification.SessionID]
		if len(followers) == 0 {
			return
		}
		payload, err := encodeNotification(ev.notification)
		if err != nil {
			h.logger.Error("failed to encode notification", zap.String("type", ev.notification.Type), zap.Error(err))
			return
		}
		for client := range followers {
			h.deliver(client, payload)
		}
		if ev.notification.Type == game.NotifyClosed {
			for client := range followers {
				if _, ok := h.clients[client]; ok {
					h.clients[client] = ""
				}
			}
			delete(h.sessions, ev.notification.SessionID)
		}
	}
}

func (h *Hub) unbind(client *WSClient) {
	id := h.clients[client]
	if id == "" {
		return
	}
	delete(h.sessions[id], client)
	if len(h.sessions[id]) == 0 {
		delete(h.sessions, id)
	}
	h.clients[client] = ""
}

// deliver queues payload on client, dropping a connection that cannot keep up.
func (h *Hub) deliver(client *WSClient, payload []byte) {
	select {
	case client.send <- payload:
	default:
		h.logger.Warn("websocket client too slow, disconnecting", zap.String("host", client.host))
		h.unbind(client)
		delete(h.clients, client)
		close(client.send)
	}
}

func (h *Hub) submit(ev hubEvent) bool {
	select {
	case h.events <- ev:
		return true
	case <-h.done:
		return false
	}
}

// Notify is a game.NotificationHandler. It never blocks: when the hub is saturated the
// notification is dropped and logged.
func (h *Hub) Notify(notification game.Notification) {
	select {
	case h.events <- hubEvent{op: opNotify, notification: notification}:
	case <-h.done:
	default:
		h.logger.Warn("notification queue full, dropping notification",
			zap.String("session_id", notification.SessionID),
			zap.String("type", notification.Type),
		)
	}
}

func encodeNotification(n game.Notification) ([]byte, error) {
	data := map[string]any{}
	for k, v := range n.Data {
		data[k] = v
	}
	if n.View != nil {
		data["state"] = n.View
	}
	kind, ok := notificationTypes[n.Type]
	if !ok {
		kind = strings.ToLower(n.Type)
	}
	return json.Marshal(WSEvent{Type: kind, SessionID: n.SessionID, Data: data})
}

// WebSocketServer serves the renderer channel.
type WebSocketServer struct {
	cfg      config.WebSocketConfig
	manager  *game.Manager
	hints    *hint.Service
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWebSocketServer creates the server and subscribes its hub to manager notifications.
func NewWebSocketServer(cfg config.WebSocketConfig, manager *game.Manager, hints *hint.Service, logger *zap.Logger) *WebSocketServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if hints == nil {
		hints = hint.NewService(nil, 0, logger)
	}
	if cfg.Path == "" {
		cfg.Path = "/ws"
	}
	hub := NewHub(logger)
	manager.SetNotificationHandler(hub.Notify)

	return &WebSocketServer{
		cfg:     cfg,
		manager: manager,
		hints:   hints,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger,
	}
}

// Hub returns the notification hub; it must be running for clients to receive anything.
func (s *WebSocketServer) Hub() *Hub {
	return s.hub
}

// Handler returns the HTTP handler serving the WebSocket endpoint.
func (s *WebSocketServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.Path, s.serveWS)
	return mux
}

// Run serves until ctx is cancelled.
func (s *WebSocketServer) Run(ctx context.Context) error {
	go s.hub.Run(ctx)

	srv := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("starting WebSocket server",
		zap.String("address", s.cfg.Address),
		zap.String("path", s.cfg.Path),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StartWebSocketServer builds a WebSocketServer and runs it until ctx is cancelled.
func StartWebSocketServer(ctx context.Context, cfg config.WebSocketConfig, manager *game.Manager, hints *hint.Service, logger *zap.Logger) error {
	return NewWebSocketServer(cfg, manager, hints, logger).Run(ctx)
}

func (s *WebSocketServer) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		host = h
	}
	client := &WSClient{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		host: host,
	}
	if !s.hub.submit(hubEvent{op: opRegister, client: client}) {
		conn.Close()
		return
	}

	go client.writePump()
	go s.readPump(r.Context(), client)
}

func (s *WebSocketServer) readPump(ctx context.Context, c *WSClient) {
	defer func() {
		s.hub.submit(hubEvent{op: opUnregister, client: c})
		c.conn.Close()
	}()
	ctx = context.WithoutCancel(ctx)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket read failed", zap.String("host", c.host), zap.Error(err))
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			s.replyError(c, "", "malformed message")
			continue
		}
		s.serveMessage(ctx, c, msg)
	}
}

// serveMessage runs handleMessage and turns a panic into an error reply, the way
// RecoveryInterceptor does for gRPC calls.
func (s *WebSocketServer) serveMessage(ctx context.Context, c *WSClient, msg WSMessage) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in websocket handler",
				zap.String("type", msg.Type),
				zap.String("host", c.host),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			s.replyError(c, msg.SessionID, "internal server error")
		}
	}()
	s.handleMessage(ctx, c, msg)
}

func (c *WSClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *WebSocketServer) reply(c *WSClient, event WSEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("failed to encode websocket reply", zap.String("type", event.Type), zap.Error(err))
		return
	}
	s.hub.submit(hubEvent{op: opReply, client: c, payload: payload})
}

func (s *WebSocketServer) replyError(c *WSClient, sessionID, message string) {
	s.reply(c, WSEvent{Type: MsgError, SessionID: sessionID, Data: map[string]any{"message": message}})
}

func (s *WebSocketServer) replyState(c *WSClient, sess *game.Session, extra map[string]any) {
	data := map[string]any{"state": sess.View()}
	for k, v := range extra {
		data[k] = v
	}
	s.reply(c, WSEvent{Type: MsgGameState, SessionID: sess.ID, Data: data})
}

func (s *WebSocketServer) bind(c *WSClient, sess *game.Session) {
	c.session = sess
	s.hub.submit(hubEvent{op: opBind, client: c, sessionID: sess.ID})
	s.reply(c, WSEvent{Type: MsgSession, SessionID: sess.ID, Data: map[string]any{"state": sess.View()}})
}

// handleMessage runs one client request. State changes reach the client through the session's
// notifications; only requests that change nothing visible are answered directly.
func (s *WebSocketServer) handleMessage(ctx context.Context, c *WSClient, msg WSMessage) {
	switch msg.Type {
	case MsgCreateSession:
		sess, err := s.manager.Create(ctx, c.host)
		if err != nil {
			s.replyError(c, "", err.Error())
			return
		}
		s.bind(c, sess)
		return

	case MsgJoinSession:
		sess, ok := s.manager.Get(msg.SessionID)
		if !ok {
			s.replyError(c, msg.SessionID, game.ErrSessionNotFound.Error())
			return
		}
		sess.Touch()
		s.bind(c, sess)
		return
	}

	sess := c.session
	if sess == nil {
		s.replyError(c, "", "no session; send create_session or join_session first")
		return
	}
	sess.Touch()

	req, err := requestData(msg.Data)
	if err != nil {
		s.replyError(c, sess.ID, "malformed data")
		return
	}

	if err := s.dispatch(ctx, c, sess, msg.Type, req); err != nil {
		if _, ok := rejectedFields(err); ok {
			return
		}
		s.replyError(c, sess.ID, status.Convert(statusFromError(err)).Message())
	}
}

func (s *WebSocketServer) dispatch(ctx context.Context, c *WSClient, sess *game.Session, kind string, req *structpb.Struct) error {
	switch kind {
	case MsgCloseSession:
		c.session = nil
		s.manager.Remove(sess.ID)
		return nil

	case MsgStartGame:
		n, err := intField(req, fieldDrawMode, 0)
		if err != nil {
			return err
		}
		mode, err := game.ParseDrawMode(n)
		if err != nil {
			return err
		}
		if seed := stringField(req, fieldSeed); seed != "" {
			return sess.StartSeeded(ctx, mode, seed)
		}
		return sess.Start(ctx, mode)

	case MsgPlayAgain:
		return sess.PlayAgain(ctx)

	case MsgNewGame:
		return sess.NewGame(ctx)

	case MsgGetState:
		s.replyState(c, sess, nil)
		return nil

	case MsgDraw:
		_, err := sess.Draw(ctx)
		return err

	case MsgMove:
		move, err := parseMove(req)
		if err != nil {
			return err
		}
		_, err = sess.Move(ctx, move)
		return err

	case MsgUndo:
		_, err := sess.Undo(ctx)
		return err

	case MsgBeginDrag:
		source, index, err := parseDragStart(req)
		if err != nil {
			return err
		}
		if _, err := sess.BeginDrag(source, index); err != nil {
			if fields, ok := rejectedFields(err); ok {
				s.replyState(c, sess, map[string]any{"rejected": fields["reason"]})
			}
			return err
		}
		s.replyState(c, sess, nil)
		return nil

	case MsgDrop:
		target, err := parseTarget(req)
		if err != nil {
			return err
		}
		_, err = sess.Drop(ctx, target)
		return err

	case MsgCancelDrag:
		sess.CancelDrag()
		s.replyState(c, sess, nil)
		return nil

	case MsgHint:
		return s.hints.RequestAsync(ctx, sess)

	default:
		return status.Errorf(codes.InvalidArgument, "unknown message type %q", kind)
	}
}

func requestData(raw json.RawMessage) (*structpb.Struct, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return &structpb.Struct{Fields: map[string]*structpb.Value{}}, nil
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return structpb.NewStruct(data)
}
