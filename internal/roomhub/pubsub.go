package roomhub

import (
	"context"
	"encoding/json"
	"errors"

	"truthordare/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// StartPubSubListener forwards every store event to the hub until ctx is done.
func (m *ManagerService) StartPubSubListener(ctx context.Context) {
	pubsub := m.Rooms.Storage.SubscribeRoomEvents(ctx)
	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				ev, err := decodeBusEvent(msg)
				if err != nil {
					m.Log.WithError(err).WithField("channel", msg.Channel).Warn("Dropping unreadable room event")
					continue
				}
				select {
				case m.PubSubCh <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
}

// decodeBusEvent reads a pub/sub message. Room channels are matched by
// pattern, the registry channel is subscribed to directly.
func decodeBusEvent(msg *redis.Message) (BusEvent, error) {
	if msg == nil {
		return BusEvent{}, errors.New("nil message")
	}
	var event models.RoomEvent
	if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
		return BusEvent{}, err
	}
	if event.Room != nil {
		event.Room.Normalize()
	}
	return BusEvent{Registry: msg.Pattern == "", Event: event}, nil
}
