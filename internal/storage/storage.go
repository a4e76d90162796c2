package storage

import (
	"context"
	"errors"

	"truthordare/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomExists      = errors.New("room already exists")
	ErrVersionConflict = errors.New("room was modified concurrently too many times")
)

// Storage is everything the room service needs from persistence: the live
// room documents in Redis and the optional Postgres archive.
type Storage interface {
	// Live documents
	GetRoom(ctx context.Context, roomID string) (models.Room, error)
	ListRooms(ctx context.Context) (map[string]models.Room, error)
	CreateRoom(ctx context.Context, room models.Room) (models.Room, error)
	MutateRoom(ctx context.Context, roomID string, fn MutateFunc) (models.Room, error)
	SubscribeRoomEvents(ctx context.Context) *redis.PubSub

	// Archive
	SaveUser(user *models.User) error
	GetUserByID(userID string) (*models.User, error)
	SaveTelegramUser(telegramID int64, username string) (*models.User, error)
	UpdateUserLanguage(userID, lang string) error
	SaveRoomRecord(room models.Room) error
	CloseRoomRecord(roomID string) error
	SaveChatMessage(roomID string, msg models.ChatMessage) error
	SaveChallengeRecord(record *models.ChallengeRecord) error
	GetChatHistory(roomID string, limit int) ([]models.ChatHistory, error)
	GetActiveRoomIDs() ([]string, error)
}

type Service struct {
	DB     *gorm.DB // nil disables the archive
	Redis  *redis.Client
	Prefix string
	Log    logrus.FieldLogger
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client, prefix string, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		DB:     db,
		Redis:  rdb,
		Prefix: prefix,
		Log:    log,
	}
}

// AutoMigrate creates the archive tables.
func (s *Service) AutoMigrate() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.AutoMigrate(
		&models.User{},
		&models.RoomRecord{},
		&models.ChatHistory{},
		&models.ChallengeRecord{},
	)
}

func (s *Service) roomKey(roomID string) string { return s.Prefix + "room:" + roomID }

func (s *Service) registryKey() string { return s.Prefix + "rooms" }

// RegistryChannel carries an event for every write to any room.
func (s *Service) RegistryChannel() string { return s.Prefix + "rooms:events" }

// RoomChannel carries the events of a single room.
func (s *Service) RoomChannel(roomID string) string { return s.Prefix + "room:" + roomID + ":events" }

func (s *Service) roomChannelPattern() string { return s.Prefix + "room:*:events" }
