package job

import (
	"context"

	"github.com/vk/farmspool/internal/ctxlog"
	"github.com/vk/farmspool/internal/engine"
)

// SubmitOptions qualify one submission of a cooked job.
type SubmitOptions struct {
	// Priority is a symbolic name resolved against the profile table.
	Priority string
	// Shares overrides the job spec's farm shares.
	Shares []string
	// DryRun cooks and serializes without contacting the engine.
	DryRun bool
}

// Result reports a submission.
type Result struct {
	JID    int
	URL    string
	Script string
}

// Submit cooks the job and spools it to the engine. With DryRun set the
// engine is never contacted and the result only carries the script.
func (j *Job) Submit(ctx context.Context, client *engine.Client, opts SubmitOptions) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	if len(opts.Shares) > 0 {
		j.Spec.Shares = opts.Shares
	}

	priority, err := j.profile.Priority(opts.Priority)
	if err != nil {
		return nil, err
	}

	aj, err := j.Cook(ctx)
	if err != nil {
		return nil, err
	}
	aj.Priority = priority
	script := aj.Script()

	if opts.DryRun {
		logger.Info("Dry run, job not spooled.", "job", j.Spec.Name)
		return &Result{Script: script}, nil
	}

	jid, err := client.Spool(ctx, []byte(script), engine.SpoolOptions{
		Owner: j.owner(),
		Cwd:   "/tmp",
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		JID:    jid,
		URL:    client.JobURL(jid),
		Script: script,
	}, nil
}
