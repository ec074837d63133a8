package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/lpusphere/sphere-server/internal/auth"
	"github.com/lpusphere/sphere-server/internal/core"
	"github.com/lpusphere/sphere-server/internal/proto"
	"github.com/lpusphere/sphere-server/internal/unread"
)

// WSHandler upgrades HTTP connections and bridges them to a session in the
// registry. Every frame is handled on the connection's read loop; fan-out
// events arrive on the client's event channel and leave on the write loop.
type WSHandler struct {
	authService *auth.Service
	registry    *core.Registry
	dispatcher  *core.Dispatcher
	unread      *unread.Tracker
	rateLimit   int
	log         *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(
	authService *auth.Service,
	registry *core.Registry,
	dispatcher *core.Dispatcher,
	tracker *unread.Tracker,
	rateLimit int,
	logger *zerolog.Logger,
) stdhttp.Handler {
	return &WSHandler{
		authService: authService,
		registry:    registry,
		dispatcher:  dispatcher,
		unread:      tracker,
		rateLimit:   rateLimit,
		log:         logger,
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	// Tokens are verified before the upgrade so a bad credential costs a
	// plain 401 instead of a socket.
	identity, err := h.authenticate(r)
	if err != nil {
		h.log.Debug().Err(err).Msg("ws auth rejected")
		stdhttp.Error(w, "invalid token", stdhttp.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	client := core.NewClient()
	defer h.registry.Leave(client)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	limiter := newRateLimiter(h.rateLimit)
	limiter.startReset(ctx.Done())

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client, identity, limiter)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("reg_no", identity.RegNo).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// authenticate extracts and validates the JWT from the Authorization header
// or, for browser clients that cannot set headers on upgrade, the token
// query parameter.
func (h *WSHandler) authenticate(r *stdhttp.Request) (core.Identity, error) {
	token := ""
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			return core.Identity{}, errors.New("invalid authorization header format")
		}
		token = parts[1]
	} else {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		return core.Identity{}, errors.New("missing token")
	}

	claims, err := h.authService.ValidateToken(token)
	if err != nil {
		return core.Identity{}, err
	}
	return core.Identity{
		RegNo: claims.RegNo,
		Name:  claims.Name,
		Role:  claims.Role,
	}, nil
}

func (h *WSHandler) readLoop(
	ctx context.Context,
	conn *websocket.Conn,
	client *core.Client,
	identity core.Identity,
	limiter *rateLimiter,
) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		frame, err := h.handleInbound(ctx, client, identity, limiter, inbound)
		if err != nil {
			h.log.Warn().Err(err).Str("session_id", client.ID).Msg("failed to handle inbound")
			return err
		}
		if frame != nil {
			if writeErr := wsjson.Write(ctx, conn, *frame); writeErr != nil {
				return writeErr
			}
		}
	}
}

// handleInbound processes one client frame. A non-nil return is an error
// frame to send back on this connection; a nil, nil return means the frame
// was handled and fan-out (if any) travels through the event channels.
func (h *WSHandler) handleInbound(
	ctx context.Context,
	client *core.Client,
	identity core.Identity,
	limiter *rateLimiter,
	inbound proto.Inbound,
) (*proto.Outbound, error) {
	switch inbound.Type {
	case proto.InboundTypeJoinPersonal:
		// The payload regNo is ignored; the binding always uses the
		// authenticated identity.
		h.registry.JoinPersonal(client, identity.RegNo)
		return nil, nil

	case proto.InboundTypeJoinRoom:
		var data proto.JoinRoomData
		if err := json.Unmarshal(inbound.Data, &data); err != nil || data.ClassID == "" {
			return badFrame("classId required"), nil
		}
		if h.registry.JoinRoom(client, data.ClassID) {
			// First join of this room on this session: the member is now
			// looking at the history, so their counter resets.
			if err := h.unread.Clear(ctx, identity.RegNo, data.ClassID); err != nil {
				h.log.Error().Err(err).
					Str("reg_no", identity.RegNo).
					Str("class_id", data.ClassID).
					Msg("failed to clear unread counter")
			}
		}
		return nil, nil

	case proto.InboundTypeSendMessage:
		var data proto.SendMessageData
		if err := json.Unmarshal(inbound.Data, &data); err != nil || data.ClassID == "" {
			return badFrame("classId required"), nil
		}
		if !limiter.allow() {
			return badFrame("rate limit exceeded"), nil
		}
		if _, err := h.dispatcher.Dispatch(ctx, identity, data.ClassID, data.Text); err != nil {
			frame := errorFrame(err)
			return &frame, nil
		}
		return nil, nil

	default:
		return badFrame("unknown frame type"), nil
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("session_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func badFrame(msg string) *proto.Outbound {
	return &proto.Outbound{
		Type:  proto.OutboundTypeError,
		Error: &proto.Error{Code: core.ErrCodeBadRequest, Msg: msg},
	}
}
