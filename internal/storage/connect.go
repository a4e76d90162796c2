package storage

import (
	"context"
	"errors"
	"fmt"

	"truthordare/backend/internal/config"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open connects to Redis and, when DATABASE_DSN is set, to the Postgres
// archive, and migrates the archive tables.
func Open(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*Service, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	var db *gorm.DB
	if cfg.DatabaseDSN != "" {
		var err error
		db, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
		if err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
	} else {
		log.Warn("DATABASE_DSN is not set, running without the archive")
	}

	s := NewStorageService(db, rdb, cfg.RedisKeyPrefix, log)
	if err := s.AutoMigrate(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate archive: %w", err)
	}
	log.Info("Storage connected")
	return s, nil
}

// Close releases both connections.
func (s *Service) Close() error {
	var errs []error
	if s.Redis != nil {
		errs = append(errs, s.Redis.Close())
	}
	if s.DB != nil {
		sqlDB, err := s.DB.DB()
		if err != nil {
			errs = append(errs, err)
		} else {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}

// Ping checks the live store.
func (s *Service) Ping(ctx context.Context) error {
	return s.Redis.Ping(ctx).Err()
}
