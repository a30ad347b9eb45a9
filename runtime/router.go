package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"chatx/domain"
	"chatx/domain/event"
	apperrors "chatx/errors"
	"chatx/metrics"
	"chatx/repositories"

	"github.com/samber/lo"
)

// SessionState tracks where one connection sits in its lifecycle.
// DISCONNECTED is terminal; nothing transitions out of it.
type SessionState string

const (
	StateConnecting   SessionState = "CONNECTING"
	StateConnected    SessionState = "CONNECTED"
	StateDisconnected SessionState = "DISCONNECTED"
)

// Session is the request-scoped view of one live connection. The transport
// delivers events for a single connection sequentially, so the state field
// needs no locking.
type Session struct {
	ConnectionID string
	UserID       string
	state        SessionState
}

func NewSession(connectionID string) *Session {
	return &Session{ConnectionID: connectionID, state: StateConnecting}
}

func (s *Session) State() SessionState { return s.state }

// Router dispatches inbound transport events to the registry, resolver,
// dispatcher, and message log based on the envelope discriminator.
type Router struct {
	log        *slog.Logger
	registry   *Registry
	resolver   *Resolver
	dispatcher *Dispatcher
	users      repositories.IUserRepository
	rooms      repositories.IRoomRepository
	messages   repositories.IMessageRepository
}

func NewRouter(log *slog.Logger, registry *Registry, resolver *Resolver, dispatcher *Dispatcher,
	users repositories.IUserRepository, rooms repositories.IRoomRepository,
	messages repositories.IMessageRepository) *Router {
	return &Router{
		log:        log,
		registry:   registry,
		resolver:   resolver,
		dispatcher: dispatcher,
		users:      users,
		rooms:      rooms,
		messages:   messages,
	}
}

// HandleConnect moves the session CONNECTING -> CONNECTED and registers the
// user as online under this connection handle.
func (r *Router) HandleConnect(s *Session, userID string) error {
	if s.state != StateConnecting {
		return fmt.Errorf("%w: connect in state %s", apperrors.ErrInvalidState, s.state)
	}
	user, err := r.registry.Connect(userID, s.ConnectionID)
	if err != nil {
		return err
	}
	s.UserID = user.ID
	s.state = StateConnected
	return nil
}

// HandleDisconnect moves the session to its terminal state and marks the
// user offline. Disconnecting twice is a no-op success.
func (r *Router) HandleDisconnect(s *Session) error {
	if s.state == StateDisconnected {
		return nil
	}
	s.state = StateDisconnected
	_, err := r.registry.Disconnect(s.ConnectionID)
	return err
}

// HandleEvent decodes an inbound application frame and routes it. Unknown
// discriminators are a request-level BadRequest and do not transition the
// session; any event on a DISCONNECTED session is an InvalidState error.
func (r *Router) HandleEvent(ctx context.Context, s *Session, raw []byte) (event.DispatchReport, error) {
	if s.state == StateDisconnected {
		return event.DispatchReport{}, fmt.Errorf("%w: event on disconnected session", apperrors.ErrInvalidState)
	}
	if s.state != StateConnected {
		return event.DispatchReport{}, fmt.Errorf("%w: event before connect completed", apperrors.ErrInvalidState)
	}

	env, err := event.Decode(raw)
	if err != nil {
		return event.DispatchReport{}, err
	}

	switch env.Type {
	case event.TypeInit:
		return r.handleInit(ctx, s)
	default:
		return r.handleNewMessage(ctx, s, env)
	}
}

// handleInit answers the requesting connection, and only it, with the
// canonical user record and the resolved chat list. A resolution failure
// degrades to an empty list with an error flag instead of blocking the
// connection.
func (r *Router) handleInit(ctx context.Context, s *Session) (event.DispatchReport, error) {
	user, err := r.users.GetUser(s.UserID)
	if err != nil {
		return event.DispatchReport{}, err
	}

	var chatList []domain.ChatListEntry
	var resolveErr string
	if len(user.ChatRooms) > 0 {
		chatList, err = r.resolver.ResolveChatList(user.ID, user.ChatRooms)
		if err != nil {
			r.log.Error("chat list resolution failed", "user_id", user.ID, "error", err)
			chatList = nil
			resolveErr = "chat list unavailable"
		}
	}

	reply, err := event.NewInitReply(s.ConnectionID, &user, chatList, resolveErr)
	if err != nil {
		return event.DispatchReport{}, err
	}
	return r.dispatcher.Dispatch(ctx, []string{s.ConnectionID}, reply)
}

// handleNewMessage resolves the recipients' connection handles from the
// message's declared room, fans the message out, and only then appends it
// to the message log. The sender's own connection is excluded from the
// target list; the sending client renders locally.
func (r *Router) handleNewMessage(ctx context.Context, s *Session, env event.Envelope) (event.DispatchReport, error) {
	msg, err := env.NewMessagePayload()
	if err != nil {
		return event.DispatchReport{}, err
	}
	if msg.RoomID == "" || msg.Text == "" {
		return event.DispatchReport{}, fmt.Errorf("%w: message requires a room id and text", apperrors.ErrBadRequest)
	}
	// The session, not the payload, decides who the sender is.
	msg.SenderID = s.UserID

	targets, err := r.resolveTargets(msg.RoomID, s.UserID)
	if err != nil {
		return event.DispatchReport{}, err
	}
	msg.Connections = targets

	out, err := event.NewMessageEnvelope(msg)
	if err != nil {
		return event.DispatchReport{}, err
	}

	report, err := r.dispatcher.Dispatch(ctx, targets, out)
	if err != nil {
		return report, err
	}

	// Log after dispatch completes, whatever the fan-out result: a message
	// is never recorded without an attempted delivery, and an attempted
	// delivery is never lost because logging failed first.
	if _, err := r.messages.StoreMessage(msg); err != nil {
		return report, fmt.Errorf("%w: %v", apperrors.ErrMessageNotRecorded, err)
	}
	metrics.MessagesStoredTotal.Inc()
	return report, nil
}

// resolveTargets reads the room's membership and collects the live
// connection handles of every member except the sender.
func (r *Router) resolveTargets(roomID, senderID string) ([]string, error) {
	room, err := r.rooms.GetRoom(roomID)
	if err != nil {
		return nil, err
	}
	recipientIDs := lo.Map(room.Recipients(senderID), func(m domain.Member, _ int) string { return m.ID })
	recipients, err := r.users.GetUsersByKeys(recipientIDs)
	if err != nil {
		return nil, err
	}
	return lo.FilterMap(recipients, func(u domain.User, _ int) (string, bool) {
		return u.ConnectionID, u.Reachable()
	}), nil
}
