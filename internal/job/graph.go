package job

import (
	"fmt"
	"sort"
)

// Task is a node of the job graph: one unit of compute-graph work that may
// spool several engine tasks (chunks).
type Task struct {
	Spec TaskSpec

	deps       map[string]*Task
	dependents map[string]*Task
}

// DependsOn records that t requires dep to complete first. Both directions
// are linked so the graph can walk from either end.
func (t *Task) DependsOn(deps ...*Task) {
	for _, dep := range deps {
		if dep == nil || dep == t {
			continue
		}
		t.deps[dep.Spec.UID] = dep
		dep.dependents[t.Spec.UID] = t
	}
}

// Graph holds the job's tasks, deduplicated by UID, with deterministic
// iteration order.
type Graph struct {
	tasks map[string]*Task
	order []string
}

// NewGraph returns an initialized, empty Graph.
func NewGraph() *Graph {
	return &Graph{tasks: make(map[string]*Task)}
}

// Len returns the number of tasks in the graph.
func (g *Graph) Len() int {
	return len(g.tasks)
}

// Add inserts a task for the given spec. When a task with the same UID is
// already present, that task is returned instead of creating a duplicate.
func (g *Graph) Add(spec TaskSpec) *Task {
	if existing, ok := g.tasks[spec.UID]; ok {
		return existing
	}
	t := &Task{
		Spec:       spec,
		deps:       make(map[string]*Task),
		dependents: make(map[string]*Task),
	}
	g.tasks[spec.UID] = t
	g.order = append(g.order, spec.UID)
	return t
}

// Lookup returns the task with the given UID, if present.
func (g *Graph) Lookup(uid string) (*Task, bool) {
	t, ok := g.tasks[uid]
	return t, ok
}

// Roots returns the tasks nothing depends on: the end of the pipeline, which
// attach directly under the job's root task.
func (g *Graph) Roots() []*Task {
	var roots []*Task
	for _, uid := range g.order {
		if len(g.tasks[uid].dependents) == 0 {
			roots = append(roots, g.tasks[uid])
		}
	}
	return roots
}

// Leaves returns the tasks with no dependencies: the start of the pipeline.
func (g *Graph) Leaves() []*Task {
	var leaves []*Task
	for _, uid := range g.order {
		if len(g.tasks[uid].deps) == 0 {
			leaves = append(leaves, g.tasks[uid])
		}
	}
	return leaves
}

// DetectCycles returns an error naming a task involved in a dependency
// cycle, or nil when the graph is acyclic.
func (g *Graph) DetectCycles() error {
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(t *Task) error
	visit = func(t *Task) error {
		uid := t.Spec.UID
		if permanent[uid] {
			return nil
		}
		if temporary[uid] {
			return fmt.Errorf("dependency cycle involving task %q", t.Spec.Name)
		}
		temporary[uid] = true
		for _, dep := range sortedTasks(t.deps) {
			if err := visit(dep); err != nil {
				return err
			}
		}
		delete(temporary, uid)
		permanent[uid] = true
		return nil
	}

	for _, uid := range g.order {
		if err := visit(g.tasks[uid]); err != nil {
			return err
		}
	}
	return nil
}

// sortedTasks returns the map's tasks ordered by name then UID, so cooking
// and traversal are deterministic.
func sortedTasks(m map[string]*Task) []*Task {
	tasks := make([]*Task, 0, len(m))
	for _, t := range m {
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].Spec.Name != tasks[j].Spec.Name {
			return tasks[i].Spec.Name < tasks[j].Spec.Name
		}
		return tasks[i].Spec.UID < tasks[j].Spec.UID
	})
	return tasks
}
