package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"truthordare/backend/internal/config"
	"truthordare/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Mutation is what a MutateFunc decides to do with the current document.
type Mutation struct {
	Next   models.Room
	Delete bool
	// Skip leaves the document untouched and publishes nothing.
	Skip   bool
	Winner string
}

// MutateFunc computes the next document from the current one. It may run
// several times if other writers get in first, so it must not have side
// effects. Any error it returns aborts the write and is returned as is.
type MutateFunc func(current models.Room) (Mutation, error)

func decodeRoom(raw []byte) (models.Room, error) {
	var room models.Room
	if err := json.Unmarshal(raw, &room); err != nil {
		return models.Room{}, fmt.Errorf("decode room: %w", err)
	}
	room.Normalize()
	return room, nil
}

// GetRoom reads one room document.
func (s *Service) GetRoom(ctx context.Context, roomID string) (models.Room, error) {
	raw, err := s.Redis.Get(ctx, s.roomKey(roomID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Room{}, ErrRoomNotFound
	}
	if err != nil {
		return models.Room{}, fmt.Errorf("get room %s: %w", roomID, err)
	}
	return decodeRoom(raw)
}

// ListRooms returns every registered room keyed by id.
func (s *Service) ListRooms(ctx context.Context) (map[string]models.Room, error) {
	ids, err := s.Redis.SMembers(ctx, s.registryKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list room ids: %w", err)
	}
	rooms := make(map[string]models.Room, len(ids))
	if len(ids) == 0 {
		return rooms, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.roomKey(id)
	}
	values, err := s.Redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load rooms: %w", err)
	}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Registered but gone; the deleting transaction will have removed it already.
			continue
		}
		room, err := decodeRoom([]byte(raw))
		if err != nil {
			s.Log.WithError(err).WithField("room_id", ids[i]).Warn("Skipping unreadable room document")
			continue
		}
		rooms[room.ID] = room
	}
	return rooms, nil
}

// CreateRoom stores a new document at version 1 and registers it.
func (s *Service) CreateRoom(ctx context.Context, room models.Room) (models.Room, error) {
	key := s.roomKey(room.ID)
	room.Version = 1
	room.Normalize()
	payload, err := json.Marshal(room)
	if err != nil {
		return models.Room{}, fmt.Errorf("encode room: %w", err)
	}

	err = s.Redis.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("check room %s: %w", room.ID, err)
		}
		if n > 0 {
			return ErrRoomExists
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			pipe.SAdd(ctx, s.registryKey(), room.ID)
			return s.publish(ctx, pipe, models.RoomEvent{Type: models.EventRoomUpdated, RoomID: room.ID, Room: &room})
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return models.Room{}, ErrRoomExists
	}
	if err != nil {
		return models.Room{}, err
	}

	s.Log.WithFields(logrus.Fields{"room_id": room.ID, "owner": room.Owner}).Info("Room created")
	return room, nil
}

// MutateRoom runs a read-transition-write cycle under WATCH. A write from
// another client between the read and the EXEC makes the whole cycle start
// over, up to config.MaxMutationRetries times. The committed document is
// returned; it is the zero Room when the mutation deleted it.
func (s *Service) MutateRoom(ctx context.Context, roomID string, fn MutateFunc) (models.Room, error) {
	key := s.roomKey(roomID)
	var committed models.Room

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrRoomNotFound
		}
		if err != nil {
			return fmt.Errorf("get room %s: %w", roomID, err)
		}
		current, err := decodeRoom(raw)
		if err != nil {
			return err
		}

		m, err := fn(current.Clone())
		if err != nil {
			return err
		}

		switch {
		case m.Skip:
			committed = current
			return nil
		case m.Delete:
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				pipe.SRem(ctx, s.registryKey(), roomID)
				return s.publish(ctx, pipe, models.RoomEvent{Type: models.EventRoomDeleted, RoomID: roomID})
			})
			committed = models.Room{}
			return err
		}

		next := m.Next
		next.ID = roomID
		next.Version = current.Version + 1
		next.Normalize()
		payload, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode room: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return s.publish(ctx, pipe, models.RoomEvent{
				Type:   models.EventRoomUpdated,
				RoomID: roomID,
				Room:   &next,
				Winner: m.Winner,
			})
		})
		committed = next
		return err
	}

	for attempt := 1; attempt <= config.MaxMutationRetries; attempt++ {
		err := s.Redis.Watch(ctx, txf, key)
		if err == nil {
			return committed, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return models.Room{}, err
		}
		s.Log.WithFields(logrus.Fields{"room_id": roomID, "attempt": attempt}).Debug("Room changed under us, retrying")
	}
	return models.Room{}, ErrVersionConflict
}

// publish queues the event on the registry channel and the room's own
// channel. Clients only ever see the public view of the room.
func (s *Service) publish(ctx context.Context, pipe redis.Pipeliner, event models.RoomEvent) error {
	if event.Room != nil {
		public := event.Room.Public()
		event.Room = &public
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	pipe.Publish(ctx, s.RegistryChannel(), payload)
	pipe.Publish(ctx, s.RoomChannel(event.RoomID), payload)
	return nil
}

// SubscribeRoomEvents subscribes to the registry channel and to every room channel.
func (s *Service) SubscribeRoomEvents(ctx context.Context) *redis.PubSub {
	ps := s.Redis.Subscribe(ctx, s.RegistryChannel())
	if err := ps.PSubscribe(ctx, s.roomChannelPattern()); err != nil {
		s.Log.WithError(err).Error("Failed to subscribe to room channels")
	}
	return ps
}

// SubscribeRoom subscribes to a single room's channel.
func (s *Service) SubscribeRoom(ctx context.Context, roomID string) *redis.PubSub {
	return s.Redis.Subscribe(ctx, s.RoomChannel(roomID))
}
