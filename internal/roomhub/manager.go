package roomhub

import (
	"context"
	"time"

	"truthordare/backend/internal/game"
	"truthordare/backend/internal/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	defaultCommandTimeout = 5 * time.Second
	defaultChatRate       = rate.Limit(2)
	defaultChatBurst      = 5
	// listRoomsAttempts bounds how often a listing is refetched because
	// registry events arrived while it was being read.
	listRoomsAttempts = 3
)

// BusEvent is a store event as it came off pub/sub.
type BusEvent struct {
	// Registry is set for events from the registry channel, unset for
	// events from a room's own channel.
	Registry bool
	Event    models.RoomEvent
}

// outcome carries the result of a command back into the hub goroutine,
// which alone touches sessions.
type outcome struct {
	clientID string
	apply    func(s *Session) []models.ServerMessage
}

// ManagerService is the hub: it owns every connected client and its session,
// runs commands against the RoomService and fans store events out.
type ManagerService struct {
	Clients  map[string]Client
	sessions map[string]*Session
	limiters map[string]*rate.Limiter
	// rooms mirrors the registry for lobby pushes. registrySeq counts the
	// registry events applied to it.
	rooms       map[string]models.Room
	registrySeq uint64

	RegisterCh   chan Client
	UnregisterCh chan Client
	IncomingCh   chan Envelope
	PubSubCh     chan BusEvent
	outcomeCh    chan outcome
	done         chan struct{}

	Rooms *RoomService
	Log   logrus.FieldLogger

	ChatRate       rate.Limit
	ChatBurst      int
	CommandTimeout time.Duration
}

func NewManagerService(rooms *RoomService, log logrus.FieldLogger) *ManagerService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ManagerService{
		Clients:        make(map[string]Client),
		sessions:       make(map[string]*Session),
		limiters:       make(map[string]*rate.Limiter),
		rooms:          make(map[string]models.Room),
		RegisterCh:     make(chan Client),
		UnregisterCh:   make(chan Client),
		IncomingCh:     make(chan Envelope, 64),
		PubSubCh:       make(chan BusEvent, 256),
		outcomeCh:      make(chan outcome, 64),
		done:           make(chan struct{}),
		Rooms:          rooms,
		Log:            log,
		ChatRate:       defaultChatRate,
		ChatBurst:      defaultChatBurst,
		CommandTimeout: defaultCommandTimeout,
	}
}

// Done is closed once Run has returned. Senders on RegisterCh,
// UnregisterCh and IncomingCh select on it so they never block on a
// stopped hub.
func (m *ManagerService) Done() <-chan struct{} {
	return m.done
}

// Run is the hub loop. It returns when ctx is cancelled, after closing
// every client.
func (m *ManagerService) Run(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case <-ctx.Done():
			for id, c := range m.Clients {
				m.forget(id)
				c.Close()
			}
			return
		case c := <-m.RegisterCh:
			m.register(c)
		case c := <-m.UnregisterCh:
			if _, ok := m.Clients[c.GetClientID()]; ok {
				m.forget(c.GetClientID())
				c.Close()
				m.Log.WithField("client_id", c.GetClientID()).Debug("Client unregistered")
			}
		case env := <-m.IncomingCh:
			m.dispatch(ctx, env)
		case ev := <-m.PubSubCh:
			m.handleBusEvent(ev)
		case out := <-m.outcomeCh:
			m.handleOutcome(out)
		}
	}
}

func (m *ManagerService) register(c Client) {
	id := c.GetClientID()
	m.Clients[id] = c
	m.sessions[id] = NewSession(c.GetUserID())
	m.limiters[id] = rate.NewLimiter(m.ChatRate, m.ChatBurst)
	m.Log.WithFields(logrus.Fields{"client_id": id, "identity": c.GetUserID()}).Debug("Client registered")
}

func (m *ManagerService) forget(clientID string) {
	delete(m.Clients, clientID)
	delete(m.sessions, clientID)
	delete(m.limiters, clientID)
}

// send pushes msg without blocking the hub. A client that cannot keep up is dropped.
func (m *ManagerService) send(clientID string, msgs ...models.ServerMessage) {
	c, ok := m.Clients[clientID]
	if !ok {
		return
	}
	for _, msg := range msgs {
		select {
		case c.GetSendChannel() <- msg:
		default:
			m.Log.WithField("client_id", clientID).Warn("Client send buffer full, dropping client")
			m.forget(clientID)
			c.Close()
			return
		}
	}
}

func (m *ManagerService) dispatch(ctx context.Context, env Envelope) {
	clientID := env.Client.GetClientID()
	session, ok := m.sessions[clientID]
	if !ok {
		return
	}
	cmd := env.Command
	cmd.SenderID = env.Client.GetUserID()

	log := m.Log.WithFields(logrus.Fields{"client_id": clientID, "identity": cmd.SenderID, "cmd": cmd.Type})

	if cmd.Type == models.CmdChat || cmd.Type == models.CmdTyping {
		if !m.limiters[clientID].Allow() {
			if cmd.Type == models.CmdChat {
				m.send(clientID, errorMessage(cmd.RoomID, game.CodeValidation, "slow down"))
			}
			return
		}
	}

	switch cmd.Type {
	case models.CmdListRooms:
		session.Lobby = true
		m.listRooms(ctx, clientID, log, 1)

	case models.CmdCreateRoom:
		if session.Seated() {
			m.send(clientID, seated(session.RoomID))
			return
		}
		session.moving = true
		m.async(ctx, clientID, func(ctx context.Context) func(*Session) []models.ServerMessage {
			room, err := m.Rooms.CreateRoom(ctx, cmd.Name, cmd.IsPrivate, cmd.Password, cmd.SenderID)
			if err != nil {
				return settle(failed(log, "", err))
			}
			return settle(func(s *Session) []models.ServerMessage {
				s.Enter(room)
				return []models.ServerMessage{roomMessage(room), notice(room.ID, models.NoticeCreated, s.Identity)}
			})
		})

	case models.CmdDeleteRoom:
		roomID := cmd.RoomID
		if roomID == "" {
			roomID = session.RoomID
		}
		m.async(ctx, clientID, func(ctx context.Context) func(*Session) []models.ServerMessage {
			if err := m.Rooms.DeleteRoom(ctx, roomID, cmd.SenderID); err != nil {
				return failed(log, roomID, err)
			}
			// everyone, the owner included, hears about it from the store
			return nil
		})

	default:
		if cmd.RoomID == "" {
			cmd.RoomID = session.RoomID
		}
		gc, err := RoomCommand(cmd)
		if err != nil {
			m.send(clientID, errorMessage(cmd.RoomID, game.Code(err), err.Error()))
			return
		}
		moving := false
		if cmd.Type == models.CmdJoin && session.RoomID != cmd.RoomID {
			// one seat per connection: a second room would keep a ghost seat in the first
			if session.Seated() {
				m.send(clientID, seated(cmd.RoomID))
				return
			}
			moving = true
		}

		var restore *models.Room
		if cmd.Type == models.CmdLeave && session.RoomID == cmd.RoomID && session.Room != nil {
			// Detach first so the echo of our own leave is not taken for a kick.
			prev := *session.Room
			restore = &prev
			session.Leave()
			moving = true
		}
		if moving {
			session.moving = true
		}

		m.async(ctx, clientID, func(ctx context.Context) func(*Session) []models.ServerMessage {
			apply := m.execute(ctx, log, cmd, gc, restore)
			if moving {
				return settle(apply)
			}
			return apply
		})
	}
}

// execute runs a room command and returns its continuation. restore is the
// snapshot a leave detached from, re-entered if the leave is refused.
func (m *ManagerService) execute(ctx context.Context, log logrus.FieldLogger, cmd models.ClientCommand, gc game.Command, restore *models.Room) func(*Session) []models.ServerMessage {
	res, err := m.Rooms.Execute(ctx, cmd.RoomID, gc)
	if err != nil {
		fail := failed(log, cmd.RoomID, err)
		if restore == nil {
			return fail
		}
		notFound := game.Code(err) == game.CodeNotFound
		return func(s *Session) []models.ServerMessage {
			if s.RoomID != "" {
				return fail(s)
			}
			if notFound {
				return append(fail(s), notice(cmd.RoomID, models.NoticeRoomDeleted, ""))
			}
			s.Enter(*restore)
			return fail(s)
		}
	}
	return func(s *Session) []models.ServerMessage {
		return afterCommand(s, cmd, res)
	}
}

// settle marks the move finished before apply runs.
func settle(apply func(*Session) []models.ServerMessage) func(*Session) []models.ServerMessage {
	return func(s *Session) []models.ServerMessage {
		s.moving = false
		return apply(s)
	}
}

// afterCommand updates the initiator's session with the committed document.
// Each version reaches a client once: either here or through Observe.
func afterCommand(s *Session, cmd models.ClientCommand, res game.Result) []models.ServerMessage {
	var out []models.ServerMessage
	switch cmd.Type {
	case models.CmdLeave:
		if s.RoomID == cmd.RoomID {
			s.Leave()
		}
		return []models.ServerMessage{notice(cmd.RoomID, models.NoticeLeft, s.Identity)}
	case models.CmdJoin:
		out = append(out, notice(cmd.RoomID, models.NoticeJoined, s.Identity))
	default:
		if s.RoomID != cmd.RoomID {
			// acted on a room we are not watching; nothing to refresh
			return nil
		}
	}

	if res.Deleted || !res.Room.HasPlayer(s.Identity) {
		return out
	}
	if s.Enter(res.Room) {
		out = append(out, roomMessage(res.Room))
		if res.Winner != "" {
			out = append(out, notice(res.Room.ID, models.NoticeWinner, res.Winner))
		}
	}
	return out
}

func failed(log logrus.FieldLogger, roomID string, err error) func(*Session) []models.ServerMessage {
	code := game.Code(err)
	entry := log.WithError(err).WithField("room_id", roomID)
	if code == game.CodeStore || code == game.CodeInternal {
		entry.Error("Command failed")
	} else {
		entry.Debug("Command rejected")
	}
	return func(s *Session) []models.ServerMessage {
		out := []models.ServerMessage{errorMessage(roomID, code, err.Error())}
		if code != game.CodeNotFound || roomID == "" {
			return out
		}
		if s.RoomID == roomID {
			// the room is gone; do not keep the session bound to it
			s.Leave()
			out = append(out, notice(roomID, models.NoticeRoomDeleted, ""))
		}
		return out
	}
}

// seated rejects joining or creating a room while the session holds a seat elsewhere.
func seated(roomID string) models.ServerMessage {
	err := &game.ValidationError{Reason: "leave your current room first"}
	return errorMessage(roomID, game.CodeValidation, err.Error())
}

// listRooms fetches the registry and replaces the hub's mirror with it. A
// fetch that raced registry events is retried so the mirror never goes back
// to an older listing.
func (m *ManagerService) listRooms(ctx context.Context, clientID string, log logrus.FieldLogger, attempt int) {
	since := m.registrySeq
	m.async(ctx, clientID, func(cctx context.Context) func(*Session) []models.ServerMessage {
		rooms, err := m.Rooms.ListRooms(cctx)
		if err != nil {
			return failed(log, "", err)
		}
		return func(s *Session) []models.ServerMessage {
			if m.registrySeq != since {
				if attempt < listRoomsAttempts {
					m.listRooms(ctx, clientID, log, attempt+1)
					return nil
				}
				rooms = mergeRooms(m.rooms, rooms)
			}
			m.rooms = rooms
			m.observeRegistry(rooms)
			return []models.ServerMessage{roomsMessage(copyRooms(rooms))}
		}
	})
}

// async runs work off the hub goroutine and hands its continuation back.
func (m *ManagerService) async(ctx context.Context, clientID string, work func(context.Context) func(*Session) []models.ServerMessage) {
	go func() {
		cctx, cancel := context.WithTimeout(ctx, m.CommandTimeout)
		defer cancel()
		apply := work(cctx)
		if apply == nil {
			return
		}
		select {
		case m.outcomeCh <- outcome{clientID: clientID, apply: apply}:
		case <-ctx.Done():
		}
	}()
}

func (m *ManagerService) handleOutcome(out outcome) {
	s, ok := m.sessions[out.clientID]
	if !ok {
		return
	}
	m.send(out.clientID, out.apply(s)...)
}

func (m *ManagerService) handleBusEvent(ev BusEvent) {
	if ev.Registry {
		m.registrySeq++
		switch ev.Event.Type {
		case models.EventRoomDeleted:
			delete(m.rooms, ev.Event.RoomID)
		case models.EventRoomUpdated:
			if ev.Event.Room != nil {
				m.rooms[ev.Event.RoomID] = *ev.Event.Room
			}
		}
		listing := roomsMessage(copyRooms(m.rooms))
		for id, s := range m.sessions {
			if s.Lobby && s.RoomID == "" {
				m.send(id, listing)
			}
		}
		return
	}

	for id, s := range m.sessions {
		if msgs := s.Observe(ev.Event); len(msgs) > 0 {
			m.send(id, msgs...)
		}
	}
}

func (m *ManagerService) observeRegistry(rooms map[string]models.Room) {
	for id, s := range m.sessions {
		if msgs := s.ObserveRegistry(rooms); len(msgs) > 0 {
			m.send(id, msgs...)
		}
	}
}

// mergeRooms overlays fetched on cached, keeping whichever copy of a room
// has the higher version.
func mergeRooms(cached, fetched map[string]models.Room) map[string]models.Room {
	out := copyRooms(cached)
	for id, r := range fetched {
		if c, ok := out[id]; !ok || r.Version > c.Version {
			out[id] = r
		}
	}
	return out
}

func copyRooms(rooms map[string]models.Room) map[string]models.Room {
	out := make(map[string]models.Room, len(rooms))
	for id, r := range rooms {
		out[id] = r
	}
	return out
}
