package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"chatx/domain"
	apperrors "chatx/errors"

	"github.com/samber/lo"
)

// fakeUserRepo is an in-memory user store recording how often the batch
// fetch is hit, so tests can assert the two-round-trip contract.
type fakeUserRepo struct {
	mu         sync.Mutex
	users      map[string]domain.User
	batchCalls int
	updateErr  error
}

func newFakeUserRepo(users ...domain.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: map[string]domain.User{}}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (f *fakeUserRepo) CreateUser(user domain.User) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) GetUser(id string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return domain.User{}, fmt.Errorf("%w: %s", apperrors.ErrUserNotFound, id)
	}
	return user, nil
}

func (f *fakeUserRepo) GetUsersByKeys(ids []string) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls++
	var users []domain.User
	for _, id := range lo.Uniq(ids) {
		if user, ok := f.users[id]; ok {
			users = append(users, user)
		}
	}
	return users, nil
}

func (f *fakeUserRepo) FindByUsername(username string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Username == username {
			return user, nil
		}
	}
	return domain.User{}, apperrors.ErrUserNotFound
}

func (f *fakeUserRepo) QueryUsersByStatus(status domain.Status, excludeID string) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var users []domain.User
	for _, user := range f.users {
		if user.Status == status && user.ID != excludeID {
			users = append(users, user)
		}
	}
	return users, nil
}

func (f *fakeUserRepo) QueryUserByConnection(connectionID string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.ConnectionID == connectionID {
			return user, nil
		}
	}
	return domain.User{}, fmt.Errorf("%w: no user behind %s", apperrors.ErrUserNotFound, connectionID)
}

func (f *fakeUserRepo) UpdateConnection(id string, status domain.Status, connectionID string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return domain.User{}, f.updateErr
	}
	user, ok := f.users[id]
	if !ok {
		return domain.User{}, fmt.Errorf("%w: %s", apperrors.ErrUserNotFound, id)
	}
	user.Status = status
	user.ConnectionID = connectionID
	f.users[id] = user
	return user, nil
}

func (f *fakeUserRepo) AppendRoomRef(id string, ref domain.RoomRef) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return domain.User{}, fmt.Errorf("%w: %s", apperrors.ErrUserNotFound, id)
	}
	if !lo.Contains(user.ChatRooms, ref) {
		user.ChatRooms = append(user.ChatRooms, ref)
	}
	f.users[id] = user
	return user, nil
}

type fakeRoomRepo struct {
	rooms      map[string]domain.Room
	batchCalls int
}

func newFakeRoomRepo(rooms ...domain.Room) *fakeRoomRepo {
	repo := &fakeRoomRepo{rooms: map[string]domain.Room{}}
	for _, room := range rooms {
		repo.rooms[room.ID] = room
	}
	return repo
}

func (f *fakeRoomRepo) AddRoom(room domain.Room) (domain.Room, error) {
	f.rooms[room.ID] = room
	return room, nil
}

func (f *fakeRoomRepo) GetRoom(id string) (domain.Room, error) {
	room, ok := f.rooms[id]
	if !ok {
		return domain.Room{}, fmt.Errorf("%w: %s", apperrors.ErrRoomNotFound, id)
	}
	return room, nil
}

func (f *fakeRoomRepo) GetRoomsByKeys(refs []domain.RoomRef) ([]domain.Room, error) {
	f.batchCalls++
	var rooms []domain.Room
	for _, ref := range refs {
		if room, ok := f.rooms[ref.ID]; ok {
			rooms = append(rooms, room)
		}
	}
	return rooms, nil
}

// fakeMessageRepo appends stored messages to a shared event trace, letting
// tests assert that persistence happens after the fan-out completed.
type fakeMessageRepo struct {
	trace    *trace
	stored   []domain.Message
	storeErr error
}

func (f *fakeMessageRepo) StoreMessage(message domain.Message) (domain.Message, error) {
	if f.trace != nil {
		f.trace.record("store:" + message.Text)
	}
	if f.storeErr != nil {
		return domain.Message{}, f.storeErr
	}
	f.stored = append(f.stored, message)
	return message, nil
}

func (f *fakeMessageRepo) GetMessages(roomID string, cursor *string) ([]domain.Message, *string, error) {
	return f.stored, nil, nil
}

// trace is a concurrency-safe event log shared between fakes.
type trace struct {
	mu     sync.Mutex
	events []string
}

func (t *trace) record(event string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event)
}

func (t *trace) snapshot() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.events...)
}

// fakeTransport pushes against a scripted outcome per connection handle.
// A handle scripted with errBlock parks until the context expires.
type fakeTransport struct {
	trace   *trace
	mu      sync.Mutex
	scripts map[string]error
	closed  []string
}

var errBlock = errors.New("block until deadline")

func newFakeTransport(trace *trace) *fakeTransport {
	return &fakeTransport{trace: trace, scripts: map[string]error{}}
}

func (f *fakeTransport) script(connectionID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[connectionID] = err
}

func (f *fakeTransport) Push(ctx context.Context, connectionID string, data []byte) error {
	f.mu.Lock()
	scripted := f.scripts[connectionID]
	f.mu.Unlock()
	if errors.Is(scripted, errBlock) {
		<-ctx.Done()
		return ctx.Err()
	}
	if scripted != nil {
		return scripted
	}
	if f.trace != nil {
		f.trace.record("push:" + connectionID)
	}
	return nil
}

func (f *fakeTransport) IsStale(err error) bool {
	return errors.Is(err, apperrors.ErrStaleConnection)
}

func (f *fakeTransport) Close(connectionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, connectionID)
}
