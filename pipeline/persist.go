package pipeline

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"prompt2video/types"
)

const (
	projectFile = "project.json"
	scriptFile  = "script.json"
)

// saveProject writes project.json and, once scenes exist, script.json. Called
// at every state transition; a persistence failure is logged but never aborts
// a run that is otherwise producing artifacts.
func saveProject(p *types.Project, dir string) {
	if err := writeJSON(filepath.Join(dir, projectFile), p); err != nil {
		log.Printf("[pipeline] warning: could not persist project state: %v", err)
	}
	if len(p.Scenes) > 0 {
		if err := writeJSON(filepath.Join(dir, scriptFile), p.Scenes); err != nil {
			log.Printf("[pipeline] warning: could not persist script: %v", err)
		}
	}
}

// LoadProject reads a persisted project back from its directory.
func LoadProject(dir string) (*types.Project, error) {
	data, err := os.ReadFile(filepath.Join(dir, projectFile))
	if err != nil {
		return nil, fmt.Errorf("read project: %w", err)
	}
	var p types.Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse project: %w", err)
	}
	return &p, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
