// Package subtask queues Alfred task definitions from inside a running farm
// task, the runtime half of task expansion.
//
// The wrapper process (internal/wrapper) hands its child a dedicated pipe
// for subtask definitions and names its descriptor in
// TRACTOR_SUBTASK_STDOUT_FD, keeping the child's regular output away from
// the stream the engine parses.
package subtask

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/vk/farmspool/internal/alfred"
	"github.com/vk/farmspool/internal/rez"
)

// EnvStdoutFD names the inherited file descriptor subtask definitions are
// written to.
const EnvStdoutFD = "TRACTOR_SUBTASK_STDOUT_FD"

// EnvExpandFile names the file subtask definitions are appended to when no
// descriptor is available. Supported as a fallback; descriptor mode is the
// one the wrapper sets up.
const EnvExpandFile = "EXPAND_FILE"

// Creator writes queued subtask definitions to the engine's expansion
// stream.
type Creator struct {
	w      io.WriteCloser
	path   string // file mode when non-empty
	queued int
}

// NewCreator resolves the expansion stream from the environment: the
// inherited descriptor when set, otherwise the expand file.
func NewCreator(env rez.Env) (*Creator, error) {
	if fdStr := env.Get(EnvStdoutFD); fdStr != "" {
		fd, err := strconv.Atoi(fdStr)
		if err != nil {
			return nil, fmt.Errorf("subtask: invalid %s value %q: %w", EnvStdoutFD, fdStr, err)
		}
		return &Creator{w: os.NewFile(uintptr(fd), EnvStdoutFD)}, nil
	}
	if path := env.Get(EnvExpandFile); path != "" {
		return &Creator{path: path}, nil
	}
	return nil, fmt.Errorf("subtask: neither %s nor %s is set; not running under the expansion wrapper", EnvStdoutFD, EnvExpandFile)
}

// Def describes one subtask to queue.
type Def struct {
	Title    string
	Argv     []string
	Service  string
	Limits   []string
	Metadata map[string]string
	Envkey   []string
}

// Queue writes one subtask definition to the expansion stream.
func (c *Creator) Queue(def Def) error {
	if def.Title == "" {
		return fmt.Errorf("subtask: a queued subtask needs a title")
	}
	if len(def.Argv) == 0 {
		return fmt.Errorf("subtask %s: a queued subtask needs a command", def.Title)
	}

	task := alfred.NewTask(def.Title, def.Argv)
	task.Service = def.Service
	if len(def.Metadata) > 0 {
		metadata, err := json.Marshal(def.Metadata)
		if err != nil {
			return fmt.Errorf("subtask %s: encoding metadata: %w", def.Title, err)
		}
		task.Metadata = string(metadata)
	}
	cmd := task.Cmds[0]
	cmd.Service = def.Service
	cmd.Tags = def.Limits
	cmd.Envkey = def.Envkey

	if err := c.write(task.Script() + "\n"); err != nil {
		return fmt.Errorf("subtask %s: %w", def.Title, err)
	}
	c.queued++
	return nil
}

// Queued returns the number of definitions written so far.
func (c *Creator) Queued() int {
	return c.queued
}

func (c *Creator) write(s string) error {
	if c.path != "" {
		f, err := os.OpenFile(c.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.WriteString(f, s)
		return err
	}
	_, err := io.WriteString(c.w, s)
	return err
}

// Close releases the expansion stream.
func (c *Creator) Close() error {
	if c.w != nil {
		return c.w.Close()
	}
	return nil
}
