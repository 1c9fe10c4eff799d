package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArowuTest/bridgetunes-draw-console/internal/config"
	"github.com/ArowuTest/bridgetunes-draw-console/internal/models"
	"github.com/ArowuTest/bridgetunes-draw-console/internal/repositories"
)

func TestOpenAuditRepository_InMemory(t *testing.T) {
	cfg := &config.Config{Draw: config.DrawConfig{AuditLimit: 2}}

	repo, closeFn, err := OpenAuditRepository(context.Background(), cfg)
	require.NoError(t, err)
	defer closeFn(context.Background())
	assert.IsType(t, &repositories.MemoryDrawAuditRepository{}, repo)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(context.Background(), &models.DrawAudit{Operator: "ops"}))
	}
	recent, err := repo.FindRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestNewConsoleService(t *testing.T) {
	cfg := &config.Config{
		API:  config.APIConfig{BaseURL: "http://localhost:8080/api/v1", TimeoutSecs: 5, RequestsPerSecond: 2, MaxRetries: 1},
		Draw: config.DrawConfig{CacheTTLSeconds: 60, SessionIdleMinutes: 10},
	}
	client := NewPromoClient(cfg)
	require.NotNil(t, client)

	console := NewConsoleService(cfg, client, repositories.NewMemoryDrawAuditRepository(0))
	ctrl := console.Controller(models.Session{Subject: "ops"})
	assert.Equal(t, "IDLE", string(ctrl.State()))
}
