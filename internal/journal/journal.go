// Package journal keeps a local record of actions submitted from this client.
package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/liamashdown/suimarket/internal/config"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB wraps the GORM database connection
type DB struct {
	conn *gorm.DB
	log  *logrus.Logger
}

// New opens the journal database and migrates its tables
func New(cfg *config.Config, log *logrus.Logger) (*DB, error) {
	gormLogger := logger.New(
		&gormLogAdapter{log: log},
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	conn, err := gorm.Open(mysql.Open(cfg.JournalDSN), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.JournalMaxConns)
	sqlDB.SetMaxIdleConns(max(cfg.JournalMaxConns/2, 1))
	sqlDB.SetConnMaxIdleTime(cfg.JournalMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping journal: %w", err)
	}

	db := &DB{conn: conn, log: log}
	if err := db.AutoMigrate(); err != nil {
		return nil, fmt.Errorf("migrate journal: %w", err)
	}

	log.Info("Journal connection established")
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	sqlDB, err := db.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrate creates or updates the journal tables
func (db *DB) AutoMigrate() error {
	return db.conn.AutoMigrate(
		&AppState{},
		&BetReceipt{},
		&Resolution{},
	)
}

// GetState retrieves a state value by key; a missing key is "".
func (db *DB) GetState(ctx context.Context, key string) (string, error) {
	var state AppState
	result := db.conn.WithContext(ctx).Where("state_key = ?", key).First(&state)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if result.Error != nil {
		return "", result.Error
	}
	return state.StateValue, nil
}

// SetState sets a state value
func (db *DB) SetState(ctx context.Context, key, value string) error {
	state := AppState{
		StateKey:   key,
		StateValue: value,
		UpdatedTS:  time.Now().Unix(),
	}
	return db.conn.WithContext(ctx).Save(&state).Error
}

// RecordBet stores a bet receipt
func (db *DB) RecordBet(ctx context.Context, receipt *BetReceipt) error {
	return db.conn.WithContext(ctx).Create(receipt).Error
}

// ListBets returns the latest bets of a wallet, newest first
func (db *DB) ListBets(ctx context.Context, wallet string, limit int) ([]BetReceipt, error) {
	var bets []BetReceipt
	result := db.conn.WithContext(ctx).
		Where("wallet = ?", wallet).
		Order("created_ts DESC").
		Limit(limit).
		Find(&bets)
	return bets, result.Error
}

// RecordResolution stores a resolution request
func (db *DB) RecordResolution(ctx context.Context, r *Resolution) error {
	return db.conn.WithContext(ctx).Create(r).Error
}

// MarkResolutionSettled flags a resolution once the backend reports the market resolved
func (db *DB) MarkResolutionSettled(ctx context.Context, id string) error {
	return db.conn.WithContext(ctx).
		Model(&Resolution{}).
		Where("id = ?", id).
		Update("settled", true).Error
}

// gormLogAdapter adapts logrus to GORM's logger interface
type gormLogAdapter struct {
	log *logrus.Logger
}

func (l *gormLogAdapter) Printf(format string, args ...interface{}) {
	l.log.Debugf(format, args...)
}
