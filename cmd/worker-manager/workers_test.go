package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"benefit-orchestrator/internal/bootstrap"
	"benefit-orchestrator/internal/common/camunda"
	"benefit-orchestrator/internal/common/config"
	"benefit-orchestrator/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func TestRegistrations_CoverEveryTaskType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app:\n  name: worker-manager-test\n"), 0o644))
	cfg, err := config.LoadFromFile(path)
	require.NoError(t, err)

	zapLog := zaptest.NewLogger(t)
	c, err := bootstrap.Build(context.Background(), cfg, bootstrap.Options{}, zapLog)
	require.NoError(t, err)
	defer c.Close(zapLog)

	regs := registrations(cfg, c, logger.NewTestLogger(t))
	require.Len(t, regs, 9)

	seen := map[string]bool{}
	for _, r := range regs {
		assert.NotNil(t, r.Handler, r.TaskType)
		assert.False(t, seen[r.TaskType], "duplicate %s", r.TaskType)
		seen[r.TaskType] = true
	}
	assert.True(t, seen["run-case"])
	assert.True(t, seen["classify-human-response"])
}

func TestCheckRegistry_WarnsOnUnlistedWorkers(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	log := zap.New(core)

	regs := []camunda.Registration{{TaskType: "lookup-case"}, {TaskType: "not-registered"}}
	checkRegistry(filepath.Join("..", "..", "configs", "activity-registry.json"), regs, log)

	warnings := logs.FilterMessage("worker not listed in activity registry").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "not-registered", warnings[0].ContextMap()["taskType"])
}

func TestCheckRegistry_MissingFileIsQuiet(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	checkRegistry(filepath.Join(t.TempDir(), "missing.json"), nil, zap.New(core))
	assert.Zero(t, logs.Len())
}
