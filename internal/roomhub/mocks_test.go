package roomhub_test

import (
	"context"

	"truthordare/backend/internal/models"
	"truthordare/backend/internal/storage"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
)

// MockStorage is a testify mock of storage.Storage. MutateRoom is stubbed
// with the document currently in the store; the mock then runs the mutation
// against it the way the real store would.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GetRoom(ctx context.Context, roomID string) (models.Room, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).(models.Room), args.Error(1)
}

func (m *MockStorage) ListRooms(ctx context.Context) (map[string]models.Room, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]models.Room), args.Error(1)
}

func (m *MockStorage) CreateRoom(ctx context.Context, room models.Room) (models.Room, error) {
	args := m.Called(ctx, room)
	if err := args.Error(0); err != nil {
		return models.Room{}, err
	}
	room.Version = 1
	return room, nil
}

func (m *MockStorage) MutateRoom(ctx context.Context, roomID string, fn storage.MutateFunc) (models.Room, error) {
	args := m.Called(ctx, roomID)
	if err := args.Error(1); err != nil {
		return models.Room{}, err
	}
	current := args.Get(0).(models.Room)
	mu, err := fn(current.Clone())
	if err != nil {
		return models.Room{}, err
	}
	switch {
	case mu.Skip:
		return current, nil
	case mu.Delete:
		return models.Room{}, nil
	}
	mu.Next.Version = current.Version + 1
	return mu.Next, nil
}

func (m *MockStorage) SubscribeRoomEvents(ctx context.Context) *redis.PubSub {
	args := m.Called(ctx)
	return args.Get(0).(*redis.PubSub)
}

func (m *MockStorage) SaveUser(user *models.User) error {
	return m.Called(user).Error(0)
}

func (m *MockStorage) GetUserByID(userID string) (*models.User, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) SaveTelegramUser(telegramID int64, username string) (*models.User, error) {
	args := m.Called(telegramID, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) UpdateUserLanguage(userID, lang string) error {
	return m.Called(userID, lang).Error(0)
}

func (m *MockStorage) SaveRoomRecord(room models.Room) error {
	return m.Called(room).Error(0)
}

func (m *MockStorage) CloseRoomRecord(roomID string) error {
	return m.Called(roomID).Error(0)
}

func (m *MockStorage) SaveChatMessage(roomID string, msg models.ChatMessage) error {
	return m.Called(roomID, msg).Error(0)
}

func (m *MockStorage) SaveChallengeRecord(record *models.ChallengeRecord) error {
	return m.Called(record).Error(0)
}

func (m *MockStorage) GetChatHistory(roomID string, limit int) ([]models.ChatHistory, error) {
	args := m.Called(roomID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ChatHistory), args.Error(1)
}

func (m *MockStorage) GetActiveRoomIDs() ([]string, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockClient is a test double for roomhub.Client.
type MockClient struct {
	id     string
	userID string
	send   chan models.ServerMessage
	closed chan struct{}
}

func newMockClient(id, userID string) *MockClient {
	return &MockClient{
		id:     id,
		userID: userID,
		send:   make(chan models.ServerMessage, 32),
		closed: make(chan struct{}),
	}
}

func (c *MockClient) GetClientID() string                          { return c.id }
func (c *MockClient) GetUserID() string                            { return c.userID }
func (c *MockClient) GetSendChannel() chan<- models.ServerMessage { return c.send }
func (c *MockClient) Run()                                         {}
func (c *MockClient) Close()                                       { close(c.closed) }
