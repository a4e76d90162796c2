package storage

import (
	"errors"
	"time"

	"truthordare/backend/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Archive methods. Every one of them is a no-op when no database is configured.

// SaveUser stores or updates a user in PostgreSQL.
func (s *Service) SaveUser(user *models.User) error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Save(user).Error
}

// GetUserByID returns nil without an error when the user is unknown.
func (s *Service) GetUserByID(userID string) (*models.User, error) {
	if s.DB == nil {
		return nil, nil
	}
	var user models.User
	err := s.DB.Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SaveTelegramUser finds the user bound to a Telegram account, creating it on
// first contact. Without a database it returns an unsaved user.
func (s *Service) SaveTelegramUser(telegramID int64, username string) (*models.User, error) {
	if s.DB == nil {
		return &models.User{Username: username, TelegramID: &telegramID, Language: "en"}, nil
	}

	var user models.User
	defaults := models.User{Username: username, TelegramID: &telegramID}
	result := s.DB.Where("telegram_id = ?", telegramID).FirstOrCreate(&user, defaults)
	if result.Error != nil {
		s.Log.WithError(result.Error).WithField("telegram_id", telegramID).Error("Failed to save telegram user")
		return nil, result.Error
	}
	if result.RowsAffected > 0 {
		s.Log.WithFields(logrus.Fields{"user_id": user.ID, "telegram_id": telegramID}).Info("New telegram user saved")
	}
	return &user, nil
}

func (s *Service) UpdateUserLanguage(userID, lang string) error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Model(&models.User{}).Where("id = ?", userID).Update("language", lang).Error
}

// SaveRoomRecord records the start of a room's lifetime.
func (s *Service) SaveRoomRecord(room models.Room) error {
	if s.DB == nil {
		return nil
	}
	record := models.RoomRecord{
		RoomID:    room.ID,
		Name:      room.Name,
		Owner:     room.Owner,
		IsPrivate: room.IsPrivate,
		IsActive:  true,
		StartedAt: time.UnixMilli(room.CreatedAt),
	}
	return s.DB.Save(&record).Error
}

// CloseRoomRecord marks a room as ended.
func (s *Service) CloseRoomRecord(roomID string) error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Model(&models.RoomRecord{}).
		Where("room_id = ?", roomID).
		Updates(map[string]interface{}{
			"is_active": false,
			"ended_at":  gorm.Expr("NOW()"),
		}).Error
}

// SaveChatMessage archives a chat entry. Re-archiving the same entry is ignored.
func (s *Service) SaveChatMessage(roomID string, msg models.ChatMessage) error {
	if s.DB == nil {
		return nil
	}
	history := models.ChatHistory{
		MessageID: msg.ID,
		RoomID:    roomID,
		Sender:    msg.Sender,
		Content:   msg.Message,
		SentAt:    msg.Timestamp,
	}
	err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "message_id"}},
		DoNothing: true,
	}).Create(&history).Error
	if err != nil {
		s.Log.WithError(err).WithField("room_id", roomID).Error("Failed to save chat message")
	}
	return err
}

func (s *Service) SaveChallengeRecord(record *models.ChallengeRecord) error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Create(record).Error
}

// GetChatHistory returns the archived chat of a room, oldest first. A
// non-positive limit returns everything.
func (s *Service) GetChatHistory(roomID string, limit int) ([]models.ChatHistory, error) {
	history := []models.ChatHistory{}
	if s.DB == nil {
		return history, nil
	}
	q := s.DB.Where("room_id = ?", roomID).Order("sent_at asc")
	if limit > 0 {
		// newest `limit` rows, still returned oldest first
		sub := s.DB.Model(&models.ChatHistory{}).Select("id").
			Where("room_id = ?", roomID).Order("sent_at desc").Limit(limit)
		q = q.Where("id IN (?)", sub)
	}
	if err := q.Find(&history).Error; err != nil {
		s.Log.WithError(err).WithField("room_id", roomID).Error("Failed to get chat history")
		return nil, err
	}
	return history, nil
}

// GetActiveRoomIDs lists rooms the archive still considers open.
func (s *Service) GetActiveRoomIDs() ([]string, error) {
	roomIDs := []string{}
	if s.DB == nil {
		return roomIDs, nil
	}
	if err := s.DB.Model(&models.RoomRecord{}).
		Where("is_active = ?", true).
		Pluck("room_id", &roomIDs).Error; err != nil {
		s.Log.WithError(err).Error("Failed to retrieve active room ids")
		return nil, err
	}
	return roomIDs, nil
}
