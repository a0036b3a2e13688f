package job

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/vk/farmspool/internal/alfred"
	"github.com/vk/farmspool/internal/ctxlog"
	"github.com/vk/farmspool/internal/rez"
)

// Cook authors the full Tractor job from the graph. The job root is a
// grouping task; every graph root attaches under it. A task's dependencies
// become Alfred subtasks, which the engine completes before the task runs.
func (j *Job) Cook(ctx context.Context) (*alfred.Job, error) {
	logger := ctxlog.FromContext(ctx)

	if err := j.Graph.DetectCycles(); err != nil {
		return nil, err
	}

	service, err := j.service(j.Spec.ServiceExpr)
	if err != nil {
		return nil, err
	}

	environment := make(map[string]string, len(j.Spec.Environment)+1)
	for k, v := range j.Spec.Environment {
		environment[k] = v
	}
	environment["FARM_USER"] = j.owner()

	metadata, err := json.Marshal(j.Spec.Tags)
	if err != nil {
		return nil, fmt.Errorf("job: encoding job tags: %w", err)
	}

	shares := j.Spec.Shares
	if len(shares) == 0 {
		shares = j.profile.DefaultShares
	}

	aj := &alfred.Job{
		Title:    j.Spec.Name,
		Service:  service,
		Envkey:   envkey(environment),
		Metadata: string(metadata),
		Comment:  j.Spec.Comment,
		SpoolCwd: "/tmp",
		Projects: shares,
		Paused:   j.Spec.Paused,
	}

	root := aj.NewTask(j.Spec.Name, nil)
	// A single pipeline end means the whole graph is one chain; run it
	// serially so the engine displays it as such.
	root.Serialsubtasks = len(j.Graph.Leaves()) == 1

	cooked := make(map[string]*alfred.Task)
	for _, task := range j.Graph.Roots() {
		at, err := j.cookTask(ctx, task, cooked)
		if err != nil {
			return nil, err
		}
		root.AddChild(at)
	}

	if j.Graph.Len() == 0 {
		// The engine rejects jobs without tasks, so keep a placeholder.
		logger.Warn("Cooking a job with an empty graph.", "job", j.Spec.Name)
		aj.NewTask("dummy", nil)
	}

	return aj, nil
}

// cookTask authors the engine task(s) for one graph task. Each UID cooks
// exactly once; later visits reuse the cooked task so shared dependencies
// serialize as instances.
func (j *Job) cookTask(ctx context.Context, t *Task, cooked map[string]*alfred.Task) (*alfred.Task, error) {
	if at, ok := cooked[t.Spec.UID]; ok {
		return at, nil
	}
	logger := ctxlog.FromContext(ctx)
	logger.Info("Cooking task.", "task", t.Spec.Name, "uid", t.Spec.UID)

	spec := t.Spec
	service, err := j.service(spec.ServiceExpr)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", spec.Name, err)
	}
	metadata, err := json.Marshal(spec.Tags)
	if err != nil {
		return nil, fmt.Errorf("task %s: encoding tags: %w", spec.Name, err)
	}
	limits := j.limits(&spec)
	taskEnvkey := envkey(spec.Environment)

	var at *alfred.Task
	var chunkTasks []*alfred.Task
	chunks := SplitChunks(spec.Chunks)

	switch {
	case spec.Expanding:
		cmd, err := j.expandingCommand(&spec)
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", spec.Name, err)
		}
		at = alfred.NewTask(spec.Name, SplitArgs(cmd))
		at.Service = service
		at.Metadata = string(metadata)
		at.Cmds[0].Tags = limits
		at.Cmds[0].Envkey = taskEnvkey
		at.Cmds[0].Expand = true

	case len(chunks) > 0:
		// Chunks are known at submission: author a grouping task with one
		// subtask per chunk. An empty range degrades to a plain task below.
		at = alfred.NewTask(spec.Name, nil)
		at.Service = service
		at.Metadata = string(metadata)
		for _, chunk := range chunks {
			ct, err := j.cookChunk(&spec, chunk, service, limits, taskEnvkey)
			if err != nil {
				return nil, err
			}
			at.AddChild(ct)
			chunkTasks = append(chunkTasks, ct)
		}

	default:
		cmd, err := rez.WrapCommand(j.env, computeCommand+" "+spec.Args(),
			rez.WrapOptions{ExtraPackages: spec.RezPackages})
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", spec.Name, err)
		}
		at = alfred.NewTask(spec.Name, SplitArgs(cmd))
		at.Service = service
		at.Metadata = string(metadata)
		at.Cmds[0].Tags = limits
		at.Cmds[0].Envkey = taskEnvkey
	}

	cooked[spec.UID] = at

	for _, dep := range sortedTasks(t.deps) {
		depTask, err := j.cookTask(ctx, dep, cooked)
		if err != nil {
			return nil, err
		}
		if len(chunkTasks) > 0 {
			// Every chunk needs the dependency; the serializer emits it
			// once and instances after that.
			for _, ct := range chunkTasks {
				ct.AddChild(depTask)
			}
		} else {
			at.AddChild(depTask)
		}
	}

	return at, nil
}

// cookChunk authors the engine task for a single chunk.
func (j *Job) cookChunk(spec *TaskSpec, chunk Chunk, service string, limits, taskEnvkey []string) (*alfred.Task, error) {
	cmd := fmt.Sprintf("%s %s --iteration %d", computeCommand, spec.Args(), chunk.Iteration)
	cmd, err := rez.WrapCommand(j.env, cmd, rez.WrapOptions{ExtraPackages: spec.RezPackages})
	if err != nil {
		return nil, fmt.Errorf("task %s chunk %d: %w", spec.Name, chunk.Iteration, err)
	}

	tags := make(map[string]string, len(spec.Tags)+1)
	for k, v := range spec.Tags {
		tags[k] = v
	}
	tags["iteration"] = fmt.Sprintf("%d", chunk.Iteration)
	metadata, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("task %s chunk %d: encoding tags: %w", spec.Name, chunk.Iteration, err)
	}

	ct := alfred.NewTask(fmt.Sprintf("%s_%d_%d", spec.Name, chunk.Start, chunk.End), SplitArgs(cmd))
	ct.Service = service
	ct.Metadata = string(metadata)
	ct.Cmds[0].Tags = limits
	ct.Cmds[0].Envkey = taskEnvkey
	return ct, nil
}

// expandingCommand builds the wrapped command of an expanding task: the
// chunk-creation call, re-entering the rez context, behind the wrapper that
// keeps stdout clean for the spooled subtask definitions.
func (j *Job) expandingCommand(spec *TaskSpec) (string, error) {
	cmd := fmt.Sprintf("%s --submitter Tractor %s", createChunksCommand, spec.Args())
	cmd, err := rez.WrapCommand(j.env, cmd, rez.WrapOptions{ExtraPackages: spec.RezPackages})
	if err != nil {
		return "", err
	}
	wrapper := wrapperCommand
	if j.profile.ScriptsDir != "" {
		wrapper = filepath.Join(j.profile.ScriptsDir, wrapperCommand)
	}
	return fmt.Sprintf("%s wrap -- %s", wrapper, cmd), nil
}

// envkey formats an environment map as engine envkey entries, sorted for
// deterministic output.
func envkey(environment map[string]string) []string {
	if len(environment) == 0 {
		return nil
	}
	keys := make([]string, 0, len(environment))
	for k := range environment {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	entries := make([]string, len(keys))
	for i, k := range keys {
		entries[i] = fmt.Sprintf("setenv %s=%s", k, environment[k])
	}
	return entries
}
