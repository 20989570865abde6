package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Tiliavir/ttt-timesheet/internal/model"
)

func (s *Store) projectsPath() string {
	return filepath.Join(s.base, "projects.json")
}

func (s *Store) loadProjects() (map[string]string, error) {
	data, err := os.ReadFile(s.projectsPath())
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage error reading projects: %w", err)
	}
	projects := map[string]string{}
	if err := json.Unmarshal(data, &projects); err != nil {
		return nil, fmt.Errorf("corrupt JSON in %s: %w", s.projectsPath(), err)
	}
	return projects, nil
}

// ProjectName resolves a project id.
func (s *Store) ProjectName(ctx context.Context, id string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	projects, err := s.loadProjects()
	if err != nil {
		return "", false, err
	}
	name, ok := projects[id]
	return name, ok, nil
}

// SaveProject creates or renames a project.
func (s *Store) SaveProject(ctx context.Context, p model.Project) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	unlock, err := lockFile(ctx, s.projectsPath())
	if err != nil {
		return err
	}
	defer unlock()

	projects, err := s.loadProjects()
	if err != nil {
		return err
	}
	projects[p.ID] = p.Name

	data, err := json.MarshalIndent(projects, "", "  ")
	if err != nil {
		return fmt.Errorf("storage error marshalling JSON: %w", err)
	}
	return writeAtomic(s.projectsPath(), data)
}
