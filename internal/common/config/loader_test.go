package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
app:
  name: benefit-orchestrator
workflow:
  max_steps: 12
workers:
  route-next-stage:
    enabled: true
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Workflow.MaxSteps)
	assert.Equal(t, 70, cfg.Workflow.Identity.VerifiedThreshold)
	assert.Equal(t, 50, cfg.Workflow.Identity.AmbiguousFloor)
	assert.Equal(t, 5, cfg.Workflow.Identity.MaxResults)
	assert.Equal(t, 3, cfg.Workflow.MaxIdentityAttempts)
	assert.Equal(t, "static", cfg.Records.Source)
	assert.Equal(t, "identities", cfg.Database.Elasticsearch.IdentityIndex)
	assert.Equal(t, "benefits.case", cfg.NATS.SubjectPrefix)
	assert.Equal(t, ":8080", cfg.Server.Address)

	w := cfg.Workers["route-next-stage"]
	assert.True(t, w.Enabled)
	assert.Equal(t, 5, w.MaxJobsActive)
	assert.Equal(t, 30000, w.Timeout)
	assert.Equal(t, 3, w.MaxRetries)
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("TEST_COLLAB_URL", "http://collab.internal:9000")
	path := writeConfig(t, `
collaborators:
  base_url: ${TEST_COLLAB_URL}
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "http://collab.internal:9000", cfg.Collaborators.BaseURL)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "unknown records source",
			body:    "records:\n  source: mongo\n",
			wantErr: "records.source",
		},
		{
			name:    "postgres source without postgres",
			body:    "records:\n  source: postgres\n",
			wantErr: "requires database.postgres.enabled",
		},
		{
			name:    "postgres enabled without host",
			body:    "database:\n  postgres:\n    enabled: true\n    database: benefits\n    user: svc\n",
			wantErr: "database.postgres.host",
		},
		{
			name:    "redis enabled without address",
			body:    "database:\n  redis:\n    enabled: true\n",
			wantErr: "database.redis.address",
		},
		{
			name:    "inverted identity thresholds",
			body:    "workflow:\n  identity:\n    verified_threshold: 40\n    ambiguous_floor: 60\n",
			wantErr: "thresholds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetWorkerConfig_FallsBackToDefaults(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"lookup-case": {Enabled: false, MaxJobsActive: 2, Timeout: 1000},
	}}

	assert.False(t, IsWorkerEnabled(cfg, "lookup-case"))
	assert.True(t, IsWorkerEnabled(cfg, "unknown"))
	assert.Equal(t, 2, GetWorkerConfig(cfg, "lookup-case").MaxJobsActive)
	assert.Equal(t, 5, GetWorkerConfig(cfg, "unknown").MaxJobsActive)
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "benefits", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=benefits sslmode=disable", p.GetDSN())
}
