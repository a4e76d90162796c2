package roomhub

import (
	"context"
	"errors"
	"time"

	"truthordare/backend/internal/game"
	"truthordare/backend/internal/models"
	"truthordare/backend/internal/storage"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RoomService is the room registry plus command execution on top of the
// document store. Every method returns game errors only.
type RoomService struct {
	Storage storage.Storage
	Log     logrus.FieldLogger
	Now     func() time.Time
	NewID   func() string
}

func NewRoomService(s storage.Storage, log logrus.FieldLogger) *RoomService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RoomService{
		Storage: s,
		Log:     log,
		Now:     time.Now,
		NewID:   uuid.NewString,
	}
}

// ListRooms returns the public view of every open room.
func (rs *RoomService) ListRooms(ctx context.Context) (map[string]models.Room, error) {
	rooms, err := rs.Storage.ListRooms(ctx)
	if err != nil {
		return nil, storeError("list rooms", "", err)
	}
	out := make(map[string]models.Room, len(rooms))
	for id, room := range rooms {
		out[id] = room.Public()
	}
	return out, nil
}

// GetRoom returns the public view of one room.
func (rs *RoomService) GetRoom(ctx context.Context, roomID string) (models.Room, error) {
	room, err := rs.Storage.GetRoom(ctx, roomID)
	if err != nil {
		return models.Room{}, storeError("get room", roomID, err)
	}
	return room.Public(), nil
}

// CreateRoom opens a new room with creator as its only player.
func (rs *RoomService) CreateRoom(ctx context.Context, name string, isPrivate bool, password, creator string) (models.Room, error) {
	room, err := game.NewRoom(rs.NewID(), name, isPrivate, password, creator, rs.Now())
	if err != nil {
		return models.Room{}, err
	}
	stored, err := rs.Storage.CreateRoom(ctx, room)
	if err != nil {
		return models.Room{}, storeError("create room", room.ID, err)
	}
	if err := rs.Storage.SaveRoomRecord(stored); err != nil {
		rs.Log.WithError(err).WithField("room_id", stored.ID).Warn("Failed to archive room")
	}
	return stored.Public(), nil
}

// DeleteRoom removes a room on behalf of its owner.
func (rs *RoomService) DeleteRoom(ctx context.Context, roomID, requester string) error {
	return rs.deleteRoom(ctx, roomID, func(room models.Room) error {
		return game.CanDelete(room, requester)
	})
}

// ForceDeleteRoom removes a room regardless of who owns it.
func (rs *RoomService) ForceDeleteRoom(ctx context.Context, roomID string) error {
	return rs.deleteRoom(ctx, roomID, func(models.Room) error { return nil })
}

func (rs *RoomService) deleteRoom(ctx context.Context, roomID string, allowed func(models.Room) error) error {
	_, err := rs.Storage.MutateRoom(ctx, roomID, func(current models.Room) (storage.Mutation, error) {
		if err := allowed(current); err != nil {
			return storage.Mutation{}, err
		}
		return storage.Mutation{Delete: true}, nil
	})
	if err != nil {
		return storeError("delete room", roomID, err)
	}
	rs.Log.WithField("room_id", roomID).Info("Room deleted")
	if err := rs.Storage.CloseRoomRecord(roomID); err != nil {
		rs.Log.WithError(err).WithField("room_id", roomID).Warn("Failed to close archived room")
	}
	return nil
}

// Execute applies cmd to the room and commits the result. Result.Room is the
// committed public document (zero when the room was deleted).
func (rs *RoomService) Execute(ctx context.Context, roomID string, cmd game.Command) (game.Result, error) {
	var res game.Result
	committed, err := rs.Storage.MutateRoom(ctx, roomID, func(current models.Room) (storage.Mutation, error) {
		r, err := game.Apply(current, cmd, rs.Now())
		if err != nil {
			return storage.Mutation{}, err
		}
		res = r
		return storage.Mutation{
			Next:   r.Room,
			Delete: r.Deleted,
			Skip:   r.Unchanged,
			Winner: r.Winner,
		}, nil
	})
	if err != nil {
		return game.Result{}, storeError("execute", roomID, err)
	}

	if res.Deleted {
		res.Room = models.Room{}
	} else {
		res.Room = committed.Public()
	}
	rs.archive(roomID, res)
	return res, nil
}

// archive records what a committed transition produced. Failures are logged
// and never undo the transition.
func (rs *RoomService) archive(roomID string, res game.Result) {
	log := rs.Log.WithField("room_id", roomID)
	if res.Posted != nil {
		if err := rs.Storage.SaveChatMessage(roomID, *res.Posted); err != nil {
			log.WithError(err).Warn("Failed to archive chat message")
		}
	}
	if res.Resolved != nil {
		if err := rs.Storage.SaveChallengeRecord(models.NewChallengeRecord(roomID, *res.Resolved, res.Accepted)); err != nil {
			log.WithError(err).Warn("Failed to archive challenge")
		}
	}
	if res.Winner != "" {
		log.WithField("winner", res.Winner).Info("Winning score reached")
	}
	if res.Deleted {
		log.Info("Last player left, room deleted")
		if err := rs.Storage.CloseRoomRecord(roomID); err != nil {
			log.WithError(err).Warn("Failed to close archived room")
		}
	}
}

// History returns the archived chat of a room.
func (rs *RoomService) History(roomID string, limit int) ([]models.ChatHistory, error) {
	history, err := rs.Storage.GetChatHistory(roomID, limit)
	if err != nil {
		return nil, storeError("chat history", roomID, err)
	}
	return history, nil
}

// storeError maps storage failures onto the game error taxonomy. Game errors
// raised inside a mutation pass through untouched.
func storeError(op, roomID string, err error) error {
	var (
		ve *game.ValidationError
		ae *game.AuthError
		ne *game.NotFoundError
	)
	switch {
	case errors.As(err, &ve), errors.As(err, &ae), errors.As(err, &ne):
		return err
	case errors.Is(err, storage.ErrRoomNotFound):
		return &game.NotFoundError{RoomID: roomID}
	default:
		return &game.ExternalStoreError{Op: op, Err: err}
	}
}

// ReconcileArchive closes archived rooms whose document no longer exists,
// e.g. after Redis was flushed while the server was down.
func (rs *RoomService) ReconcileArchive(ctx context.Context) error {
	active, err := rs.Storage.GetActiveRoomIDs()
	if err != nil {
		return storeError("active rooms", "", err)
	}
	if len(active) == 0 {
		return nil
	}
	live, err := rs.Storage.ListRooms(ctx)
	if err != nil {
		return storeError("list rooms", "", err)
	}

	closed := 0
	for _, id := range active {
		if _, ok := live[id]; ok {
			continue
		}
		if err := rs.Storage.CloseRoomRecord(id); err != nil {
			rs.Log.WithError(err).WithField("room_id", id).Warn("Failed to close stale archived room")
			continue
		}
		closed++
	}
	rs.Log.WithFields(logrus.Fields{"active": len(active), "closed": closed}).Info("Archive reconciled")
	return nil
}
