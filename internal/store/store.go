// Package store records the outcome of finished games.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/DoyleJ11/wordchain-backend/internal/engine"
)

// Match is one finished game.
type Match struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	RoomCode     string    `gorm:"size:6;index" json:"roomId"`
	Winner       string    `gorm:"size:16" json:"winner"`
	Player1Score int       `json:"player1Score"`
	Player2Score int       `json:"player2Score"`
	Player1Lives int       `json:"player1Lives"`
	Player2Lives int       `json:"player2Lives"`
	WordCount    int       `json:"wordCount"`
	Words        string    `gorm:"type:text" json:"words"`
	FinishedAt   time.Time `gorm:"index" json:"finishedAt"`
}

func NewMatch(roomCode string, s engine.State, finishedAt time.Time) Match {
	return Match{
		RoomCode:     roomCode,
		Winner:       string(s.Winner),
		Player1Score: s.Scores[engine.SlotPlayer1],
		Player2Score: s.Scores[engine.SlotPlayer2],
		Player1Lives: s.Lives[engine.SlotPlayer1],
		Player2Lives: s.Lives[engine.SlotPlayer2],
		WordCount:    len(s.UsedWords),
		Words:        strings.Join(s.UsedWords, " "),
		FinishedAt:   finishedAt.UTC(),
	}
}

type GormRecorder struct {
	db *gorm.DB
}

// Open connects to PostgreSQL and migrates the matches table.
func Open(dsn string) (*GormRecorder, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	r := NewGormRecorder(db)
	if err := r.Migrate(); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

func NewGormRecorder(db *gorm.DB) *GormRecorder {
	return &GormRecorder{db: db}
}

func (r *GormRecorder) Migrate() error {
	if err := r.db.AutoMigrate(&Match{}); err != nil {
		return fmt.Errorf("migrating matches: %w", err)
	}
	return nil
}

func (r *GormRecorder) RecordMatch(ctx context.Context, m Match) error {
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("recording match %s: %w", m.RoomCode, err)
	}
	return nil
}

// Recent returns up to limit matches, newest first.
func (r *GormRecorder) Recent(ctx context.Context, limit int) ([]Match, error) {
	var out []Match
	if err := recentQuery(r.db.WithContext(ctx), limit, &out).Error; err != nil {
		return nil, fmt.Errorf("listing matches: %w", err)
	}
	return out, nil
}

func recentQuery(tx *gorm.DB, limit int, out *[]Match) *gorm.DB {
	return tx.Order("finished_at desc, id desc").Limit(limit).Find(out)
}

func (r *GormRecorder) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// NopRecorder drops every match; used when no database is configured.
type NopRecorder struct{}

func (NopRecorder) RecordMatch(context.Context, Match) error { return nil }

func (NopRecorder) Recent(context.Context, int) ([]Match, error) { return nil, nil }
