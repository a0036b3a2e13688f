package submitter

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/vk/farmspool/internal/config"
	"github.com/vk/farmspool/internal/ctxlog"
	"github.com/vk/farmspool/internal/engine"
	"github.com/vk/farmspool/internal/job"
	"github.com/vk/farmspool/internal/meshroom"
	"github.com/vk/farmspool/internal/rez"
)

// labelTemplate is the default job title; "{projectName}" expands to the
// project's base name.
const labelTemplate = "{projectName}"

// Tractor submits projects to a Pixar Tractor engine.
type Tractor struct {
	profile *config.Profile
	env     rez.Env
	client  *engine.Client
}

// NewTractor creates the Tractor submitter. client may be nil for dry runs.
func NewTractor(profile *config.Profile, env rez.Env, client *engine.Client) *Tractor {
	return &Tractor{profile: profile, env: env, client: client}
}

// Name implements Submitter.
func (t *Tractor) Name() string {
	return "Tractor"
}

// Submit builds a farm job from the project graph and spools it. One task
// per node; nodes that split into blocks get chunked, parallelizable nodes
// whose element count is not known yet expand at runtime.
func (t *Tractor) Submit(ctx context.Context, project *meshroom.Project, opts Options) (*job.Result, error) {
	logger := ctxlog.FromContext(ctx)

	nbFrames := project.MaxNodeSize()
	label := opts.Label
	if label == "" {
		label = labelTemplate
	}
	label = strings.ReplaceAll(label, "{projectName}", project.Name())

	j := job.New(job.Spec{
		Name: label,
		Tags: map[string]string{
			"prod":     t.profile.Prod,
			"nbFrames": strconv.Itoa(nbFrames),
		},
		Environment: rez.JobEnvironment(t.env),
		Comment:     project.Path(),
		Paused:      opts.Paused,
		Shares:      opts.Shares,
	}, t.profile, t.env)

	tasks := make(map[string]*job.Task, len(project.Nodes))
	for _, node := range project.SortedNodes() {
		spec, err := t.taskSpec(project, node, opts.ExcludeHosts)
		if err != nil {
			return nil, err
		}
		tasks[node.Name] = j.CreateTask(spec)
	}
	for _, edge := range project.Edges() {
		tasks[edge.Node].DependsOn(tasks[edge.DependsOn])
	}

	logger.Info("Submitting project.", "project", project.Name(), "nodes", len(project.Nodes), "dryRun", opts.DryRun)
	return j.Submit(ctx, t.client, job.SubmitOptions{
		Priority: opts.Priority,
		Shares:   opts.Shares,
		DryRun:   opts.DryRun,
	})
}

// taskSpec translates one graph node into a task spec.
func (t *Tractor) taskSpec(project *meshroom.Project, node *meshroom.Node, excludeHosts []string) (job.TaskSpec, error) {
	desc := node.Descriptor()
	service, err := t.profile.ServiceExpr(desc.CPU, desc.RAM, desc.GPU, excludeHosts)
	if err != nil {
		return job.TaskSpec{}, fmt.Errorf("submitter: node %s: %w", node.Name, err)
	}

	spec := job.TaskSpec{
		Name:        node.Name,
		UID:         node.UID,
		CommandArgs: fmt.Sprintf("--node %s %q --extern", node.Name, project.Path()),
		ServiceExpr: service,
		Licenses:    desc.Licenses,
		Tags: map[string]string{
			"prod":     t.profile.Prod,
			"nbFrames": strconv.Itoa(node.Size),
		},
	}
	if desc.Parallelizable {
		if chunks := node.ChunkParams(); chunks != nil {
			spec.Chunks = chunks
		} else {
			// Element count unknown until upstream nodes ran; split on the
			// blade.
			spec.Expanding = true
		}
	}
	return spec, nil
}

// Query implements Submitter.
func (t *Tractor) Query(ctx context.Context, jid int) (*engine.JobStatus, error) {
	if t.client == nil {
		return nil, fmt.Errorf("submitter: no engine client configured")
	}
	return t.client.Job(ctx, jid)
}
