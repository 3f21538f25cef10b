package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/DoyleJ11/wordchain-backend/internal/engine"
)

// startPostgres runs a throwaway PostgreSQL container and returns its DSN. The test is
// skipped when no container runtime is reachable.
func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container skipped in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	start := time.Now()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "starting postgres container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	t.Logf("postgres container started [%s]", time.Since(start))
	return fmt.Sprintf("postgres://test:test@%s:%d/test?sslmode=disable", host, port.Int())
}

func finishedMatch(room string, at time.Time) Match {
	s := engine.NewEmptyState(engine.DefaultRules())
	s.Phase = engine.PhaseFinished
	s.Winner = engine.SlotPlayer1
	s.UsedWords = []string{"apple", "egg"}
	return NewMatch(room, s, at)
}

func TestGormRecorder_RecordAndRecent(t *testing.T) {
	r, err := Open(startPostgres(t))
	require.NoError(t, err)
	defer r.Close()
	require.NoError(t, r.Migrate(), "migrating twice is harmless")

	ctx := context.Background()
	base := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	for i, room := range []string{"AAAAAA", "BBBBBB", "CCCCCC"} {
		require.NoError(t, r.RecordMatch(ctx, finishedMatch(room, base.Add(time.Duration(i)*time.Minute))))
	}

	got, err := r.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "CCCCCC", got[0].RoomCode)
	assert.Equal(t, "BBBBBB", got[1].RoomCode)
	assert.Equal(t, "apple egg", got[0].Words)
	assert.Equal(t, "player1", got[0].Winner)
	assert.NotZero(t, got[0].ID)

	all, err := r.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
