package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/DoyleJ11/wordchain-backend/internal/engine"
)

func TestNewMatch(t *testing.T) {
	s := engine.NewEmptyState(engine.DefaultRules())
	s.Phase = engine.PhaseFinished
	s.Winner = engine.SlotPlayer2
	s.UsedWords = []string{"apple", "egg", "goat"}
	s.Scores[engine.SlotPlayer1] = 9
	s.Scores[engine.SlotPlayer2] = 3
	s.Lives[engine.SlotPlayer1] = 0
	s.Lives[engine.SlotPlayer2] = 2

	at := time.Date(2026, 10, 18, 12, 0, 0, 0, time.FixedZone("X", 3600))
	m := NewMatch("ABC123", s, at)

	assert.Equal(t, "ABC123", m.RoomCode)
	assert.Equal(t, "player2", m.Winner)
	assert.Equal(t, 9, m.Player1Score)
	assert.Equal(t, 3, m.Player2Score)
	assert.Equal(t, 0, m.Player1Lives)
	assert.Equal(t, 2, m.Player2Lives)
	assert.Equal(t, 3, m.WordCount)
	assert.Equal(t, "apple egg goat", m.Words)
	assert.Equal(t, time.UTC, m.FinishedAt.Location())
	assert.True(t, m.FinishedAt.Equal(at))
}

func TestNopRecorder(t *testing.T) {
	require.NoError(t, NopRecorder{}.RecordMatch(context.Background(), Match{RoomCode: "ABC123"}))
}

func TestNopRecorder_RecentIsEmpty(t *testing.T) {
	got, err := NopRecorder{}.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

// Nothing listens on port 1, so every statement against this DSN fails fast.
const unreachableDSN = "host=127.0.0.1 port=1 user=wordchain dbname=wordchain sslmode=disable connect_timeout=1"

// lazyDB opens a handle without connecting; statements are only built until executed.
func lazyDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.Open(unreachableDSN), &gorm.Config{
		DisableAutomaticPing: true,
		Logger:               gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return db
}

func TestRecentQuery_NewestFirstWithLimit(t *testing.T) {
	db := lazyDB(t)

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var out []Match
		return recentQuery(tx, 5, &out)
	})

	assert.Contains(t, sql, `FROM "matches"`)
	assert.Contains(t, sql, "ORDER BY finished_at desc, id desc")
	assert.Contains(t, sql, "LIMIT 5")
}

func TestOpen_UnreachableDatabase(t *testing.T) {
	_, err := Open(unreachableDSN)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening database")
}

func TestGormRecorder_WrapsErrors(t *testing.T) {
	r := NewGormRecorder(lazyDB(t))
	defer r.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := r.RecordMatch(ctx, Match{RoomCode: "ABC123"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recording match ABC123")

	_, err = r.Recent(ctx, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listing matches")

	err = r.Migrate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrating matches")
}
