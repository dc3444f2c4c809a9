package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sheinhtuttunlwin/cactus-web-game/internal/config"
	"github.com/sheinhtuttunlwin/cactus-web-game/internal/game"
	"github.com/sheinhtuttunlwin/cactus-web-game/internal/room"
)

// Server accepts websocket connections and routes their events into the
// room manager.
type Server struct {
	cfg      config.ServerConfig
	rooms    *room.Manager
	hub      *Hub
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// New creates a websocket server in front of the room manager.
func New(cfg config.ServerConfig, rooms *room.Manager, log *zap.Logger) *Server {
	s := &Server{
		cfg:   cfg,
		rooms: rooms,
		log:   log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.hub = newHub(rooms, log)
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	go s.hub.run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.WSPath, s.handleWS)

	srv := &http.Server{Addr: s.cfg.Address, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("server shutdown", zap.Error(err))
		}
	}()

	s.log.Info("websocket server listening",
		zap.String("address", s.cfg.Address),
		zap.String("path", s.cfg.WSPath),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("upgrade failed", zap.Error(err))
		return
	}
	client := &Client{
		server: s,
		conn:   conn,
		send:   make(chan []byte, 256),
		log:    s.log.With(zap.String("remote", conn.RemoteAddr().String())),
	}
	select {
	case s.hub.register <- client:
	case <-s.hub.done:
		conn.Close()
		return
	}
	go client.writePump()
	go client.readPump()
}

// Hub tracks live connections so disconnects release their seats and
// shutdown can close every socket.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	rooms      *room.Manager
	log        *zap.Logger
}

func newHub(rooms *room.Manager, log *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		rooms:      rooms,
		log:        log,
	}
}

// drop hands a finished connection back to the hub. Once the hub has shut
// down nobody services the channel, so a pump exiting afterwards gives up
// instead of blocking.
func (h *Hub) drop(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.log.Debug("client registered", zap.Int("clients", len(h.clients)))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				// The seat must be released before the channel closes: a
				// room broadcast, timer callbacks included, can still reach
				// Send until DropSession returns.
				h.rooms.DropSession(client)
				close(client.send)
				h.log.Debug("client unregistered", zap.Int("clients", len(h.clients)))
			}

		case <-ctx.Done():
			close(h.done)
			for client := range h.clients {
				client.conn.Close()
			}
			return
		}
	}
}

// Client is one websocket connection. It implements room.Session.
type Client struct {
	server *Server
	conn   *websocket.Conn
	send   chan []byte
	log    *zap.Logger
}

// Send enqueues a named event for the connection. It never blocks; a frame
// is dropped if the connection cannot keep up.
func (c *Client) Send(event string, data any) bool {
	b, err := json.Marshal(OutboundMessage{Event: event, Data: data})
	if err != nil {
		c.log.Error("marshal outbound", zap.String("event", event), zap.Error(err))
		return false
	}
	select {
	case c.send <- b:
		return true
	default:
		c.log.Warn("send buffer full, dropping frame", zap.String("event", event))
		return false
	}
}

func (c *Client) readPump() {
	defer func() {
		c.server.hub.drop(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(c.server.cfg.ReadLimit)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg InboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Warn("bad frame", zap.Error(err))
			continue
		}
		c.server.route(c, msg)
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

// route dispatches one inbound event. Malformed payloads and events from
// connections without a seat are dropped; the engine's own validation
// handles everything else.
func (s *Server) route(c *Client, msg InboundMessage) {
	switch msg.Event {
	case "join_room":
		var p JoinRoomPayload
		if !decode(c, msg.Data, &p) || p.RoomID == "" {
			return
		}
		rm := s.rooms.Ensure(p.RoomID)
		seat, err := rm.Join(p.PlayerName, c)
		if err != nil {
			c.Send("error", ErrorPayload{Message: "Room full"})
			return
		}
		c.Send("room_update", room.RoomUpdate{RoomID: p.RoomID, PlayerID: seat})
		rm.SendStateTo(seat)

	case "start_match":
		var p StartMatchPayload
		rm, seat := s.resolve(c, msg.Data, &p, func() string { return p.RoomID })
		if seat == game.NoSeat {
			return
		}
		rm.StartMatch(room.MatchSettings{NumberOfRounds: p.NumberOfRounds})

	case "deal_initial", "reset_round":
		var p RoomPayload
		rm, seat := s.resolve(c, msg.Data, &p, func() string { return p.RoomID })
		if seat == game.NoSeat {
			return
		}
		rm.ResetRound()

	case "draw_card":
		var p RoomPayload
		rm, seat := s.resolve(c, msg.Data, &p, func() string { return p.RoomID })
		if seat == game.NoSeat {
			return
		}
		rm.Engine().Draw(seat)

	case "discard_pending":
		var p RoomPayload
		rm, seat := s.resolve(c, msg.Data, &p, func() string { return p.RoomID })
		if seat == game.NoSeat {
			return
		}
		rm.Engine().DiscardPending(seat)

	case "swap_with_hand":
		var p CardIndexPayload
		rm, seat := s.resolve(c, msg.Data, &p, func() string { return p.RoomID })
		if seat == game.NoSeat {
			return
		}
		rm.Engine().SwapWithHand(seat, p.CardIndex)

	case "swap_with_discard":
		var p CardIndexPayload
		rm, seat := s.resolve(c, msg.Data, &p, func() string { return p.RoomID })
		if seat == game.NoSeat {
			return
		}
		rm.Engine().SwapWithDiscard(seat, p.CardIndex)

	case "toggle_swap_discard":
		var p RoomPayload
		rm, seat := s.resolve(c, msg.Data, &p, func() string { return p.RoomID })
		if seat == game.NoSeat {
			return
		}
		rm.Engine().ToggleSwapWithDiscard(seat)

	case "stack":
		var p StackPayload
		rm, seat := s.resolve(c, msg.Data, &p, func() string { return p.RoomID })
		if seat == game.NoSeat {
			return
		}
		if err := rm.Engine().Stack(seat, p.CardIndex); err != nil {
			c.Send("stack_error", ErrorPayload{Message: err.Error()})
		}

	case "activate_power":
		var p ActivatePowerPayload
		rm, seat := s.resolve(c, msg.Data, &p, func() string { return p.RoomID })
		if seat == game.NoSeat {
			return
		}
		switch game.PowerKind(p.Type) {
		case game.PowerSelfPeek:
			rm.Engine().ActivateSelfPeek(seat, p.CardID)
		case game.PowerOpponentPeek:
			rm.Engine().ActivateOpponentPeek(seat, p.TargetPlayerID, p.CardID)
		}

	case "close_reveal":
		var p CloseRevealPayload
		rm, seat := s.resolve(c, msg.Data, &p, func() string { return p.RoomID })
		if seat == game.NoSeat {
			return
		}
		rm.Engine().CloseReveal(p.PlayerID)

	case "swap_any_select":
		var p SwapAnySelectPayload
		rm, seat := s.resolve(c, msg.Data, &p, func() string { return p.RoomID })
		if seat == game.NoSeat {
			return
		}
		rm.Engine().SwapAnySelect(p.PlayerID, p.CardIndex, p.CardID)

	case "call_cactus":
		var p RoomPayload
		rm, seat := s.resolve(c, msg.Data, &p, func() string { return p.RoomID })
		if seat == game.NoSeat {
			return
		}
		rm.Engine().CallCactus(seat)

	default:
		c.log.Warn("unknown event", zap.String("event", msg.Event))
		c.Send("error", ErrorPayload{Message: "unknown event"})
	}
}

// resolve decodes the payload and maps the connection to its seat in the
// named room. Returns NoSeat when the room is unknown or the connection
// holds no seat there.
func (s *Server) resolve(c *Client, data json.RawMessage, payload any, roomID func() string) (*room.Room, int) {
	if !decode(c, data, payload) {
		return nil, game.NoSeat
	}
	rm := s.rooms.Get(roomID())
	if rm == nil {
		return nil, game.NoSeat
	}
	return rm, rm.SeatOf(c)
}

func decode(c *Client, data json.RawMessage, v any) bool {
	if len(data) == 0 {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		c.log.Warn("bad payload", zap.Error(err))
		return false
	}
	return true
}
