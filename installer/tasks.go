package installer

import (
	"fmt"

	"github.com/crafted-tech/setupkit"
)

// TaskSelector holds the user's task selection. It starts from each task's
// Checked default and can be changed until Freeze is called, which the
// Controller does when staging begins. Not safe for concurrent use.
type TaskSelector struct {
	tasks    []setupkit.Task
	known    map[string]bool
	selected map[string]bool
	frozen   bool
}

// NewTaskSelector creates a selector with the tasks' default selection.
func NewTaskSelector(tasks []setupkit.Task) *TaskSelector {
	s := &TaskSelector{
		tasks:    tasks,
		known:    make(map[string]bool, len(tasks)),
		selected: make(map[string]bool, len(tasks)),
	}
	for _, t := range tasks {
		s.known[t.Name] = true
		if t.Checked {
			s.selected[t.Name] = true
		}
	}
	return s
}

// Tasks returns the declared tasks.
func (s *TaskSelector) Tasks() []setupkit.Task {
	return s.tasks
}

// IsSelected reports whether the named task is selected.
func (s *TaskSelector) IsSelected(name string) bool {
	return s.selected[name]
}

// Selection returns the selected task names in declaration order.
func (s *TaskSelector) Selection() []string {
	var names []string
	for _, t := range s.tasks {
		if s.selected[t.Name] {
			names = append(names, t.Name)
		}
	}
	return names
}

// Select marks tasks as selected.
func (s *TaskSelector) Select(names ...string) error {
	return s.set(names, true)
}

// Deselect marks tasks as not selected.
func (s *TaskSelector) Deselect(names ...string) error {
	return s.set(names, false)
}

// SetSelection replaces the whole selection: exactly names end up selected.
func (s *TaskSelector) SetSelection(names []string) error {
	if err := s.check(names); err != nil {
		return err
	}
	s.selected = make(map[string]bool, len(names))
	for _, n := range names {
		s.selected[n] = true
	}
	return nil
}

func (s *TaskSelector) set(names []string, on bool) error {
	if err := s.check(names); err != nil {
		return err
	}
	for _, n := range names {
		if on {
			s.selected[n] = true
		} else {
			delete(s.selected, n)
		}
	}
	return nil
}

func (s *TaskSelector) check(names []string) error {
	if s.frozen {
		return ErrSelectionFrozen
	}
	for _, n := range names {
		if !s.known[n] {
			return fmt.Errorf("%w: %q", ErrUnknownTask, n)
		}
	}
	return nil
}

// Freeze makes the selection read-only.
func (s *TaskSelector) Freeze() {
	s.frozen = true
}

// Frozen reports whether Freeze was called.
func (s *TaskSelector) Frozen() bool {
	return s.frozen
}

// Evaluate reports whether a gating expression holds for the current
// selection. An empty expression always holds.
func (s *TaskSelector) Evaluate(expr string) (bool, error) {
	cond, err := setupkit.CompileCondition(expr, s.known)
	if err != nil {
		return false, err
	}
	return cond.Eval(s.selected)
}
