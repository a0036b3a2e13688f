package subtask

import (
	"fmt"

	"github.com/vk/farmspool/internal/job"
	"github.com/vk/farmspool/internal/rez"
)

// QueueChunkTasks queues one subtask per chunk of the given task spec. It is
// the runtime counterpart of submission-time chunking: an expanding task
// calls this once its chunk count is known.
func QueueChunkTasks(c *Creator, env rez.Env, spec job.TaskSpec, limits, envkey []string) error {
	for _, chunk := range job.SplitChunks(spec.Chunks) {
		cmd := fmt.Sprintf("meshroom_compute %s --iteration %d", spec.Args(), chunk.Iteration)
		cmd, err := rez.WrapCommand(env, cmd, rez.WrapOptions{ExtraPackages: spec.RezPackages})
		if err != nil {
			return fmt.Errorf("subtask: chunk %d of %s: %w", chunk.Iteration, spec.Name, err)
		}

		metadata := make(map[string]string, len(spec.Tags)+1)
		for k, v := range spec.Tags {
			metadata[k] = v
		}
		metadata["iteration"] = fmt.Sprintf("%d", chunk.Iteration)

		err = c.Queue(Def{
			Title:    fmt.Sprintf("%s_%d_%d", spec.Name, chunk.Start, chunk.End),
			Argv:     job.SplitArgs(cmd),
			Service:  spec.ServiceExpr,
			Limits:   limits,
			Metadata: metadata,
			Envkey:   envkey,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
