// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var validStatuses = map[string]bool{
	"planned":     true,
	"in-progress": true,
	"completed":   true,
	"verified":    true,
}

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	err = json.Unmarshal(data, &reg)
	return &reg, err
}

// Save writes the registry as indented JSON and stamps LastUpdated.
func (r *ActivityRegistry) Save(path string) error {
	r.LastUpdated = time.Now().UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

// Find returns the activity with id, or nil.
func (r *ActivityRegistry) Find(id string) *Activity {
	for i := range r.Activities {
		if r.Activities[i].ID == id {
			return &r.Activities[i]
		}
	}
	return nil
}

// Add appends activity unless its id is already taken.
func (r *ActivityRegistry) Add(activity Activity) error {
	if r.Find(activity.ID) != nil {
		return fmt.Errorf("activity with ID %s already exists", activity.ID)
	}
	r.Activities = append(r.Activities, activity)
	return nil
}

// TaskTypes lists the registered task types in sorted order.
func (r *ActivityRegistry) TaskTypes() []string {
	types := make([]string, 0, len(r.Activities))
	for _, a := range r.Activities {
		types = append(types, a.TaskType)
	}
	sort.Strings(types)
	return types
}

// Validate checks required fields, uniqueness and that timeouts parse.
func (r *ActivityRegistry) Validate() error {
	if len(r.Activities) == 0 {
		return fmt.Errorf("registry contains no activities")
	}

	ids := make(map[string]bool)
	taskTypes := make(map[string]bool)
	var problems []string
	for _, activity := range r.Activities {
		if activity.ID == "" {
			problems = append(problems, "activity missing required field: ID")
			continue
		}
		if ids[activity.ID] {
			problems = append(problems, fmt.Sprintf("duplicate activity ID: %s", activity.ID))
		}
		ids[activity.ID] = true

		if activity.DisplayName == "" {
			problems = append(problems, fmt.Sprintf("activity %s missing required field: DisplayName", activity.ID))
		}
		if activity.Category == "" {
			problems = append(problems, fmt.Sprintf("activity %s missing required field: Category", activity.ID))
		}
		if activity.TaskType == "" {
			problems = append(problems, fmt.Sprintf("activity %s missing required field: TaskType", activity.ID))
		} else if taskTypes[activity.TaskType] {
			problems = append(problems, fmt.Sprintf("duplicate task type: %s", activity.TaskType))
		}
		taskTypes[activity.TaskType] = true

		if !validStatuses[activity.ImplementationStatus] {
			problems = append(problems, fmt.Sprintf("activity %s has unknown status %q", activity.ID, activity.ImplementationStatus))
		}
		if activity.Timeout != "" {
			if _, err := time.ParseDuration(activity.Timeout); err != nil {
				problems = append(problems, fmt.Sprintf("activity %s has invalid timeout %q", activity.ID, activity.Timeout))
			}
		}
		if activity.Retries < 0 {
			problems = append(problems, fmt.Sprintf("activity %s has negative retries", activity.ID))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("registry invalid: %s", strings.Join(problems, "; "))
	}
	return nil
}
