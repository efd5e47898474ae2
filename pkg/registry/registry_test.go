package registry

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShippedRegistry(t *testing.T) {
	reg, err := LoadRegistry(filepath.Join("..", "..", "configs", "activity-registry.json"))
	require.NoError(t, err)
	require.NoError(t, reg.Validate())

	assert.Equal(t, []string{
		"classify-human-response",
		"invoke-stage",
		"lookup-case",
		"lookup-document",
		"route-next-stage",
		"run-case",
		"search-identity",
		"send-case-notification",
		"verify-identity",
	}, reg.TaskTypes())

	verify := reg.Find("verify-identity")
	require.NotNil(t, verify)
	assert.Contains(t, verify.ErrorCodes, "IDENTITY_AMBIGUOUS")
}

func TestValidate(t *testing.T) {
	valid := func() Activity {
		return Activity{
			ID:                   "lookup-case",
			DisplayName:          "Lookup Case",
			Category:             "records",
			TaskType:             "lookup-case",
			ImplementationStatus: "completed",
			Timeout:              "10s",
		}
	}

	tests := []struct {
		name    string
		mutate  func(r *ActivityRegistry)
		wantErr string
	}{
		{"valid", func(r *ActivityRegistry) {}, ""},
		{"empty", func(r *ActivityRegistry) { r.Activities = nil }, "no activities"},
		{"duplicate id", func(r *ActivityRegistry) {
			dup := valid()
			dup.TaskType = "other"
			r.Activities = append(r.Activities, dup)
		}, "duplicate activity ID"},
		{"duplicate task type", func(r *ActivityRegistry) {
			dup := valid()
			dup.ID = "lookup-case-v2"
			r.Activities = append(r.Activities, dup)
		}, "duplicate task type"},
		{"bad timeout", func(r *ActivityRegistry) { r.Activities[0].Timeout = "ten seconds" }, "invalid timeout"},
		{"bad status", func(r *ActivityRegistry) { r.Activities[0].ImplementationStatus = "done" }, "unknown status"},
		{"missing display name", func(r *ActivityRegistry) { r.Activities[0].DisplayName = "" }, "DisplayName"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := &ActivityRegistry{Activities: []Activity{valid()}}
			tt.mutate(reg)

			err := reg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAddAndSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "registry.json")

	reg := &ActivityRegistry{Version: "1.0.0"}
	require.NoError(t, reg.Add(Activity{ID: "run-case", TaskType: "run-case"}))
	assert.Error(t, reg.Add(Activity{ID: "run-case"}))
	require.NoError(t, reg.Save(path))

	loaded, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Len(t, loaded.Activities, 1)
	assert.NotEmpty(t, loaded.LastUpdated)
}
