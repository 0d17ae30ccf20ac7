// Package batch runs many independent subset pipelines over one shared
// schedule: each task resolves its own criteria, extracts a subset, and
// writes its outputs to a distinct location. Tasks are isolated; one
// failure never stops the rest.
package batch

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"magga.pvnkmrksk.org/internal/topology"
)

// Defaults apply to every task that does not override them.
type Defaults struct {
	MinTrips            int     `yaml:"min_trips"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	Classify            bool    `yaml:"classify"`
}

// Task describes one subset pipeline.
type Task struct {
	Name     string   `yaml:"name"`
	Stops    []string `yaml:"stops"`
	Routes   []string `yaml:"routes"`
	MinTrips *int     `yaml:"min_trips"`
	Classify *bool    `yaml:"classify"`
}

func (t Task) minTrips(d Defaults) int {
	if t.MinTrips != nil {
		return *t.MinTrips
	}
	return d.MinTrips
}

func (t Task) classify(d Defaults) bool {
	if t.Classify != nil {
		return *t.Classify
	}
	return d.Classify
}

// TaskFile is the YAML batch description.
type TaskFile struct {
	OutputDir string   `yaml:"output_dir"`
	Workers   int      `yaml:"workers"`
	Defaults  Defaults `yaml:"defaults"`
	Tasks     []Task   `yaml:"tasks"`
}

// LoadTaskFile reads and validates a batch description.
func LoadTaskFile(path string) (*TaskFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading task file: %w", err)
	}
	return parseTaskFile(data)
}

func parseTaskFile(data []byte) (*TaskFile, error) {
	var tf TaskFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("error parsing task file: %w", err)
	}

	if tf.OutputDir == "" {
		tf.OutputDir = "output"
	}
	if tf.Defaults.SimilarityThreshold == 0 {
		tf.Defaults.SimilarityThreshold = topology.DefaultSimilarityThreshold
	}
	if tf.Defaults.SimilarityThreshold < 0 || tf.Defaults.SimilarityThreshold > 1 {
		return nil, fmt.Errorf("similarity threshold %v out of range [0,1]", tf.Defaults.SimilarityThreshold)
	}

	if len(tf.Tasks) == 0 {
		return nil, fmt.Errorf("task file defines no tasks")
	}
	seen := make(map[string]bool, len(tf.Tasks))
	for i := range tf.Tasks {
		name := strings.TrimSpace(tf.Tasks[i].Name)
		if name == "" {
			return nil, fmt.Errorf("task %d has no name", i)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate task name %q", name)
		}
		seen[name] = true
		tf.Tasks[i].Name = name

		if len(tf.Tasks[i].Stops) == 0 && len(tf.Tasks[i].Routes) == 0 && tf.Tasks[i].minTrips(tf.Defaults) == 0 {
			return nil, fmt.Errorf("task %q has no criteria", name)
		}
	}

	return &tf, nil
}

// cleanName turns a task name into a safe file name stem.
func cleanName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
