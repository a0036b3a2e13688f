// Package alfred authors Tractor jobs and serializes them to the Alfred
// job-script format understood by the engine's spool endpoint.
//
// The model is a tree: a Job owns root Tasks, every Task owns subtasks that
// must complete before the task itself runs, and a Task carries zero or more
// commands. Tasks may be shared between parents (diamond dependencies); the
// serializer emits the full definition once and an Instance reference for
// every later visit.
package alfred

// Job is the root of an authored job script.
type Job struct {
	Title    string
	Priority int
	Service  string
	Envkey   []string
	Metadata string
	Comment  string
	SpoolCwd string
	Projects []string
	Paused   bool
	After    string

	subtasks []*Task
}

// Task is a node of the job tree. A task with a nil Argv is a grouping task:
// it carries no command and only sequences its subtasks.
type Task struct {
	Title          string
	Service        string
	Metadata       string
	Serialsubtasks bool
	Cmds           []*Cmd

	subtasks []*Task
}

// Cmd is a single command line executed by a task on a remote blade.
type Cmd struct {
	Argv    []string
	Service string
	Tags    []string
	Envkey  []string
	Expand  bool
}

// NewTask creates a detached task. A non-nil argv attaches one remote
// command with the given argument vector.
func NewTask(title string, argv []string) *Task {
	t := &Task{Title: title}
	if argv != nil {
		t.Cmds = append(t.Cmds, &Cmd{Argv: argv})
	}
	return t
}

// NewTask creates a task and attaches it under the job root.
func (j *Job) NewTask(title string, argv []string) *Task {
	t := NewTask(title, argv)
	j.subtasks = append(j.subtasks, t)
	return t
}

// Attach adds an existing task under the job root.
func (j *Job) Attach(t *Task) {
	j.subtasks = append(j.subtasks, t)
}

// Subtasks returns the job's root tasks in insertion order.
func (j *Job) Subtasks() []*Task {
	return j.subtasks
}

// NewTask creates a task and attaches it as a subtask (prerequisite) of t.
func (t *Task) NewTask(title string, argv []string) *Task {
	child := NewTask(title, argv)
	t.subtasks = append(t.subtasks, child)
	return child
}

// AddChild attaches an existing task as a subtask of t. Alfred semantics:
// subtasks run to completion before the parent task's commands start.
func (t *Task) AddChild(child *Task) {
	t.subtasks = append(t.subtasks, child)
}

// Subtasks returns the task's subtasks in insertion order.
func (t *Task) Subtasks() []*Task {
	return t.subtasks
}
