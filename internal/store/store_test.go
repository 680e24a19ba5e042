package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ballistic-intel/signalpipe/internal/model"
)

// newTestClient starts a disposable PostgreSQL container, applies
// migrations against it, and returns a Client wired to it. Skipped
// automatically when Docker is unavailable in the sandbox running the
// test suite.
func newTestClient(t *testing.T) *Client {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("signalpipe_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(30*time.Second),
	)
	if err != nil {
		t.Skipf("skipping: could not start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := Config{
		Host:         host,
		Port:         port.Int(),
		User:         "test",
		Password:     "test",
		Database:     "signalpipe_test",
		SSLMode:      "disable",
		MaxOpenConns: 5,
		MaxIdleConns: 2,
		BatchSize:    500,
		MaxRetries:   3,
	}

	client, err := NewClient(ctx, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func TestUpsertPatentsIsIdempotent(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	patent := model.Patent{
		PublicationNumber: "US9999999",
		Title:             "Method for detecting network intrusions",
		Abstract:          "A system for detecting anomalous network traffic patterns indicative of intrusion attempts using statistical baselining.",
		CPCCodes:          []string{"H04L63/1416"},
	}

	r1 := client.UpsertPatents(ctx, []model.Patent{patent})
	require.True(t, r1.Success)
	require.Equal(t, 1, r1.Count)

	r2 := client.UpsertPatents(ctx, []model.Patent{patent})
	require.True(t, r2.Success)
	require.Equal(t, 1, r2.Count)
}

func TestUpsertEmptyBatchIsNoOp(t *testing.T) {
	client := newTestClient(t)
	r := client.UpsertPatents(context.Background(), nil)
	require.True(t, r.Success)
	require.Equal(t, 0, r.Count)
}

func TestUpsertEntitiesThenAliasLinks(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	entity := model.ResolvedEntity{
		EntityID:      model.EntityID("crowdstrike"),
		CanonicalName: "CrowdStrike",
		Aliases:       []string{"CrowdStrike", "CrowdStrike Holdings"},
		Sources:       []string{"news:a1"},
		Confidence:    0.95,
		CreatedAt:     time.Now().UTC(),
	}
	rEntities := client.UpsertEntities(ctx, []model.ResolvedEntity{entity})
	require.True(t, rEntities.Success)

	alias := model.AliasLink{
		RawName:       "CrowdStrike Holdings",
		CanonicalName: entity.CanonicalName,
		EntityID:      entity.EntityID,
		Score:         0.91,
	}
	rAliases := client.UpsertAliasLinks(ctx, []model.AliasLink{alias})
	require.True(t, rAliases.Success)
}

func TestHealthReportsHealthyAfterConnect(t *testing.T) {
	client := newTestClient(t)
	status := client.Health(context.Background())
	require.Equal(t, "healthy", status.Status)
}
