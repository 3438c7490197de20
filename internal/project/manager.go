// Package project manages the project list and the active project,
// including cascade deletion of a project's persisted collections.
package project

import (
	"fmt"
	"slices"

	"github.com/paperdock/paperdock/internal/storage"
)

// DefaultName is the distinguished project that always exists and can never
// be deleted.
const DefaultName = "default"

// State is an explicit snapshot of the lifecycle state. It is passed around
// rather than held in globals so project-switch barriers and tests stay
// simple.
type State struct {
	Projects []string
	Current  string
}

// DuplicateError rejects creating a project whose name is taken.
type DuplicateError struct {
	Name string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("project %q already exists", e.Name)
}

// ProtectedError rejects deleting the default project.
type ProtectedError struct {
	Name string
}

func (e *ProtectedError) Error() string {
	return fmt.Sprintf("project %q is protected and cannot be deleted", e.Name)
}

// NotFoundError rejects operations on unknown project names.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("project %q does not exist", e.Name)
}

// Manager owns the persisted project list and current-project pointer.
type Manager struct {
	store *storage.Store
	state State
}

// NewManager loads the persisted lifecycle state. Missing or corrupt state
// recovers to a sole default project; a persisted current project that no
// longer exists in the list also falls back to default.
func NewManager(st *storage.Store) *Manager {
	m := &Manager{store: st}

	projects := []string{DefaultName}
	if st.Load(storage.KeyProjects, &projects) {
		if !slices.Contains(projects, DefaultName) {
			projects = append([]string{DefaultName}, projects...)
		}
	} else {
		projects = []string{DefaultName}
	}

	current := DefaultName
	st.Load(storage.KeyCurrentProject, &current)
	if !slices.Contains(projects, current) {
		current = DefaultName
	}

	m.state = State{Projects: projects, Current: current}
	return m
}

// State returns a copy of the current lifecycle state.
func (m *Manager) State() State {
	return State{
		Projects: slices.Clone(m.state.Projects),
		Current:  m.state.Current,
	}
}

// Current returns the active project name.
func (m *Manager) Current() string {
	return m.state.Current
}

// List returns the project names in creation order.
func (m *Manager) List() []string {
	return slices.Clone(m.state.Projects)
}

// Create adds a project and switches to it.
func (m *Manager) Create(name string) error {
	if name == "" {
		return fmt.Errorf("project name cannot be empty")
	}
	if slices.Contains(m.state.Projects, name) {
		return &DuplicateError{Name: name}
	}

	next := append(slices.Clone(m.state.Projects), name)
	if err := m.store.Save(storage.KeyProjects, next); err != nil {
		return err
	}
	m.state.Projects = next

	_, err := m.SwitchTo(name)
	return err
}

// SwitchTo makes name the active project. Switching to the already-active
// project is a no-op; changed reports whether callers must reload the
// per-project collections.
func (m *Manager) SwitchTo(name string) (changed bool, err error) {
	if name == m.state.Current {
		return false, nil
	}
	if !slices.Contains(m.state.Projects, name) {
		return false, &NotFoundError{Name: name}
	}

	if err := m.store.Save(storage.KeyCurrentProject, name); err != nil {
		return false, err
	}
	m.state.Current = name
	return true, nil
}

// Delete removes a project and all of its persisted collections. Deleting
// the active project switches back to default first, so callers observe a
// consistent current project throughout.
func (m *Manager) Delete(name string) error {
	if name == DefaultName {
		return &ProtectedError{Name: name}
	}
	i := slices.Index(m.state.Projects, name)
	if i < 0 {
		return &NotFoundError{Name: name}
	}

	if name == m.state.Current {
		if _, err := m.SwitchTo(DefaultName); err != nil {
			return err
		}
	}

	next := slices.Delete(slices.Clone(m.state.Projects), i, i+1)
	if err := m.store.Save(storage.KeyProjects, next); err != nil {
		return err
	}
	m.state.Projects = next

	for _, dataType := range storage.Collections() {
		if err := m.store.Remove(storage.ProjectKey(name, dataType)); err != nil {
			return err
		}
	}
	return nil
}
