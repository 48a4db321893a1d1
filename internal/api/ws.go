package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/devroom-hq/devroom/internal/api/middleware"
	"github.com/devroom-hq/devroom/internal/room"
	"github.com/devroom-hq/devroom/internal/store"
	"github.com/devroom-hq/devroom/internal/token"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxInboundSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Browsers connect from arbitrary editor origins; auth happens via
	// the bearer token, not the Origin header.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SocketHandler admits authenticated members into project rooms over
// websocket.
type SocketHandler struct {
	db     store.DataStore
	redis  *store.RedisStore
	tokens *token.Manager
	rooms  *room.Registry
	logger zerolog.Logger
}

// NewSocketHandler creates the websocket endpoint handler.
func NewSocketHandler(db store.DataStore, redis *store.RedisStore, tokens *token.Manager, rooms *room.Registry, logger zerolog.Logger) *SocketHandler {
	return &SocketHandler{db: db, redis: redis, tokens: tokens, rooms: rooms, logger: logger}
}

// inboundFrame is the only frame shape members send.
type inboundFrame struct {
	Message string `json:"message"`
}

// Serve runs staged admission and, if every stage passes, upgrades the
// connection and joins the member to the project's room. The stages are
// checked in order: room id shape, room existence, then credential. A
// request failing an earlier stage never reveals the outcome of a later
// one.
// GET /socket?projectId=&token=
func (h *SocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(r.URL.Query().Get("projectId"))
	if err != nil {
		http.Error(w, room.ErrInvalidRoomID.Error(), http.StatusBadRequest)
		return
	}

	project, err := h.db.GetProject(r.Context(), projectID)
	if err != nil {
		h.logger.Error().Err(err).Msg("project lookup failed during admission")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if project == nil {
		http.Error(w, room.ErrRoomNotFound.Error(), http.StatusNotFound)
		return
	}

	tok := middleware.BearerToken(r)
	if tok == "" {
		http.Error(w, room.ErrUnauthenticated.Error(), http.StatusUnauthorized)
		return
	}
	if h.redis != nil && h.redis.IsTokenBlacklisted(r.Context(), tok) {
		http.Error(w, room.ErrUnauthenticated.Error(), http.StatusUnauthorized)
		return
	}
	claims, err := h.tokens.Verify(tok)
	if err != nil {
		http.Error(w, room.ErrUnauthenticated.Error(), http.StatusUnauthorized)
		return
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		http.Error(w, room.ErrUnauthenticated.Error(), http.StatusUnauthorized)
		return
	}
	if !project.HasUser(userID) {
		http.Error(w, "not a member of this project", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the response.
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	member := h.rooms.Join(projectID.String(), claims.UserID, claims.Email)

	go h.writePump(conn, member)
	h.readPump(conn, member)
}

// readPump decodes inbound frames and feeds them to the room until the
// connection drops. Leaving the room here closes the member's event
// channel, which ends the write pump.
func (h *SocketHandler) readPump(conn *websocket.Conn, member *room.Member) {
	defer func() {
		h.rooms.Leave(member)
		conn.Close()
	}()

	conn.SetReadLimit(maxInboundSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var frame inboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn().Err(err).
					Str("user_id", member.UserID).
					Msg("websocket read error")
			}
			return
		}
		if frame.Message == "" {
			continue
		}
		member.Room().HandleInbound(member, frame.Message)
	}
}

// writePump streams room events to the connection and keeps it alive
// with pings. It exits when the member's event channel closes or a write
// fails.
func (h *SocketHandler) writePump(conn *websocket.Conn, member *room.Member) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case event, ok := <-member.Events():
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
