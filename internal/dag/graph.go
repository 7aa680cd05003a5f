package dag

import "fmt"

// GetTask returns the task called name using a linear scan.
func (d *DAG) GetTask(name string) (*Task, error) {
	for i := range d.Tasks {
		if d.Tasks[i].Name == name {
			return &d.Tasks[i], nil
		}
	}
	return nil, &UnknownTaskError{Name: name}
}

// FindTaskOutput resolves a task reference against tasks: exactly one task
// must carry ref.Name and it must expose ref.Variable as an output of the
// matching slot. It returns the producing task.
func FindTaskOutput(tasks []Task, ref Reference) (*Task, error) {
	return NewTaskIndex(tasks).FindTaskOutput(ref)
}

// TaskIndex is a name to position table over a DAG's tasks, built once per
// validation run so lookups do not rescan the task list.
type TaskIndex struct {
	tasks  []Task
	byName map[string][]int
}

// NewTaskIndex indexes tasks by name. Duplicate names keep every position.
func NewTaskIndex(tasks []Task) *TaskIndex {
	idx := &TaskIndex{tasks: tasks, byName: make(map[string][]int, len(tasks))}
	for i, t := range tasks {
		idx.byName[t.Name] = append(idx.byName[t.Name], i)
	}
	return idx
}

// Has reports whether at least one task is called name.
func (ix *TaskIndex) Has(name string) bool {
	return len(ix.byName[name]) > 0
}

// Lookup returns the single task called name.
func (ix *TaskIndex) Lookup(name string) (*Task, error) {
	positions := ix.byName[name]
	switch len(positions) {
	case 0:
		return nil, &UnknownTaskError{Name: name}
	case 1:
		return &ix.tasks[positions[0]], nil
	default:
		return nil, fmt.Errorf("task name %q is ambiguous: %d tasks share it", name, len(positions))
	}
}

// FindTaskOutput is the indexed form of the package-level FindTaskOutput.
func (ix *TaskIndex) FindTaskOutput(ref Reference) (*Task, error) {
	if !ref.IsTask() {
		return nil, fmt.Errorf("unexpected reference kind %s; wanted TaskParameterReference or TaskArtifactReference", ref.Kind)
	}

	positions := ix.byName[ref.Name]
	if len(positions) != 1 {
		if len(positions) == 0 {
			return nil, fmt.Errorf("task with name %q not found", ref.Name)
		}
		return nil, fmt.Errorf("task name %q matches %d tasks", ref.Name, len(positions))
	}

	task := &ix.tasks[positions[0]]
	var err error
	if ref.Kind == RefTaskArtifact {
		_, err = task.Outputs.ArtifactByName(ref.Variable)
	} else {
		_, err = task.Outputs.ParameterByName(ref.Variable)
	}
	if err != nil {
		return nil, fmt.Errorf("task %q: %w", ref.Name, err)
	}
	return task, nil
}
