package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomchat-server/internal/broadcast"
	"github.com/vovakirdan/roomchat-server/internal/config"
	"github.com/vovakirdan/roomchat-server/internal/core"
	"github.com/vovakirdan/roomchat-server/internal/proto"
)

// errLeft ends a connection after the user left the room on purpose.
var errLeft = errors.New("left room")

// WSHandler upgrades HTTP connections and bridges them to the chat router.
type WSHandler struct {
	registry *core.Registry
	router   *core.Router
	hub      *broadcast.Hub
	log      *zerolog.Logger

	maxMessageBytes int64
	acceptOptions   *websocket.AcceptOptions

	// base is cancelled by Drain and ends every live session.
	base       context.Context
	cancelBase context.CancelFunc

	mu       sync.Mutex
	draining bool
	sessions sync.WaitGroup
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(registry *core.Registry, router *core.Router, hub *broadcast.Hub, cfg *config.Config, logger *zerolog.Logger) *WSHandler {
	base, cancel := context.WithCancel(context.Background())
	return &WSHandler{
		registry:        registry,
		router:          router,
		hub:             hub,
		log:             logger,
		maxMessageBytes: cfg.MaxMessageBytes,
		acceptOptions:   acceptOptions(cfg.AllowedOrigins),
		base:            base,
		cancelBase:      cancel,
	}
}

// session is the per-connection state. Fields other than out are owned by the read loop
// until both loops have returned.
type session struct {
	id       string
	code     string
	username string
	sub      *broadcast.Subscription

	// out carries replies and the subscription to the write loop in order.
	out chan outItem
}

type outItem struct {
	msg *proto.Outbound
	sub *broadcast.Subscription
}

// ServeHTTP handles GET /ws/{roomCode}.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	code := normalizeRoomCode(r.PathValue("roomCode"))
	if !h.registry.RoomExists(code) {
		writeJSONError(w, http.StatusNotFound, "Room not found")
		return
	}
	if !h.track() {
		writeJSONError(w, http.StatusServiceUnavailable, "Server shutting down")
		return
	}
	defer h.sessions.Done()

	h.serve(r.Context(), w, r, code)
}

// Drain refuses new sessions, ends the live ones and waits for them to release their
// membership, or for ctx to expire.
func (h *WSHandler) Drain(ctx context.Context) error {
	h.mu.Lock()
	h.draining = true
	h.mu.Unlock()
	h.cancelBase()

	done := make(chan struct{})
	go func() {
		h.sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain ws sessions: %w", ctx.Err())
	}
}

func (h *WSHandler) track() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.draining {
		return false
	}
	h.sessions.Add(1)
	return true
}

func (h *WSHandler) serve(ctx context.Context, w http.ResponseWriter, r *http.Request, code string) {
	conn, err := websocket.Accept(w, r, h.acceptOptions)
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	if h.maxMessageBytes > 0 {
		conn.SetReadLimit(h.maxMessageBytes)
	}

	s := &session{
		id:   uuid.NewString(),
		code: code,
		out:  make(chan outItem, 8),
	}
	logger := h.log.With().Str("session_id", s.id).Str("room_code", code).Logger()
	logger.Debug().Msg("ws connected")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopAfter := context.AfterFunc(h.base, cancel)
	defer stopAfter()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, s, &logger)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, s, &logger)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	h.leave(s, &logger)

	status := websocket.StatusNormalClosure
	reason := "closing"
	if errors.Is(err, errLeft) {
		err = nil
		reason = "left room"
	}
	if h.base.Err() != nil {
		err = nil
		status = websocket.StatusGoingAway
		reason = "server shutting down"
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if cs := websocket.CloseStatus(err); cs != -1 {
			status = cs
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = closeReason(err)
			logger.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
	logger.Debug().Msg("ws disconnected")
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, s *session, logger *zerolog.Logger) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		switch inbound.Type {
		case proto.InboundTypeJoin:
			var join proto.JoinData
			if err := json.Unmarshal(inbound.Data, &join); err != nil {
				h.reply(ctx, s, outboundError(core.ErrCodeInvalidMessage, "malformed join payload"))
				continue
			}
			h.join(ctx, s, strings.TrimSpace(join.Username), logger)

		case proto.InboundTypeMsg:
			var msg proto.MsgData
			if err := json.Unmarshal(inbound.Data, &msg); err != nil {
				h.reply(ctx, s, outboundError(core.ErrCodeInvalidMessage, "malformed msg payload"))
				continue
			}
			h.send(ctx, s, msg.Content)

		case proto.InboundTypeLeave:
			if s.username == "" {
				h.reply(ctx, s, outboundError(core.ErrCodeNotJoined, "join the room first"))
				continue
			}
			return errLeft

		default:
			logger.Debug().Str("type", inbound.Type).Msg("unknown inbound type")
			h.reply(ctx, s, outboundError(core.ErrCodeInvalidMessage, "unknown message type"))
		}
	}
}

func (h *WSHandler) join(ctx context.Context, s *session, username string, logger *zerolog.Logger) {
	if s.username != "" {
		h.reply(ctx, s, outboundError(core.ErrCodeAlreadyJoined, "already joined"))
		return
	}
	if username == "" {
		h.reply(ctx, s, outboundError(core.ErrCodeBadRequest, "username is required"))
		return
	}

	room, err := h.registry.GetRoom(s.code)
	if err != nil {
		h.reply(ctx, s, outboundCoreError(err))
		return
	}

	var sub *broadcast.Subscription
	_, history, err := h.router.Join(s.code, username, s.id, func() {
		sub = h.hub.Subscribe(core.Topic(s.code))
	})
	if err != nil {
		h.reply(ctx, s, outboundCoreError(err))
		return
	}
	s.username = username
	s.sub = sub
	logger.Info().Str("username", username).Msg("user joined room")

	h.reply(ctx, s, outboundJoined(room, username, s.id))
	h.reply(ctx, s, outboundHistory(s.code, history))
	select {
	case s.out <- outItem{sub: sub}:
	case <-ctx.Done():
	}
}

func (h *WSHandler) send(ctx context.Context, s *session, content string) {
	if s.username == "" {
		h.reply(ctx, s, outboundError(core.ErrCodeNotJoined, "join the room first"))
		return
	}
	if strings.TrimSpace(content) == "" {
		h.reply(ctx, s, outboundError(core.ErrCodeBadRequest, "content is required"))
		return
	}

	msg := core.NewChatMessage(s.username, content, core.MessageChat, time.Now())
	if _, ok := h.router.SendMessage(s.code, msg); !ok {
		h.reply(ctx, s, outboundError(core.ErrCodeRoomNotFound, "room not found"))
	}
}

// leave releases the session's membership and subscription. It runs once, after both
// loops have stopped.
func (h *WSHandler) leave(s *session, logger *zerolog.Logger) {
	if s.sub != nil {
		s.sub.Close()
	}
	if s.username != "" {
		h.router.RemoveUser(s.code, s.username)
		logger.Info().Str("username", s.username).Msg("user left room")
	}
}

func (h *WSHandler) reply(ctx context.Context, s *session, msg proto.Outbound) {
	select {
	case s.out <- outItem{msg: &msg}:
	case <-ctx.Done():
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, s *session, logger *zerolog.Logger) error {
	var events <-chan core.ChatMessage

	for {
		select {
		case item := <-s.out:
			if item.sub != nil {
				events = item.sub.Events()
				continue
			}
			if err := wsjson.Write(ctx, conn, item.msg); err != nil {
				logger.Error().Err(err).Msg("write ws reply")
				return err
			}
		case msg, ok := <-events:
			if !ok {
				// Broadcaster shut down.
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundMessage(s.code, msg)); err != nil {
				logger.Error().Err(err).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// acceptOptions turns configured browser origins into websocket origin patterns.
func acceptOptions(origins []string) *websocket.AcceptOptions {
	opts := &websocket.AcceptOptions{}
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "*" {
			opts.InsecureSkipVerify = true
			return opts
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			o = u.Host
		}
		if o != "" {
			opts.OriginPatterns = append(opts.OriginPatterns, o)
		}
	}
	return opts
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: msg})
}

// closeReason keeps the close frame within the 123 byte limit.
func closeReason(err error) string {
	reason := err.Error()
	if len(reason) > 120 {
		reason = reason[:120]
	}
	return reason
}
