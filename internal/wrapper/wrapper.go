// Package wrapper runs a farm command while keeping its standard output
// reserved for the engine's task expansion stream.
//
// An expanding command's stdout is parsed by the engine as Alfred task
// definitions, so anything the wrapped program prints would corrupt the
// expansion. The wrapper redirects the child's stdout and stderr to its own
// stderr, hands the child a dedicated pipe as an extra descriptor, and
// relays everything written to that pipe to its own stdout. The child finds
// the descriptor number in TRACTOR_SUBTASK_STDOUT_FD.
package wrapper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/vk/farmspool/internal/ctxlog"
	"github.com/vk/farmspool/internal/subtask"
)

// scriptHeader opens the expansion stream so the engine accepts it as an
// Alfred script even when the child queues nothing.
const scriptHeader = "##AlfredToDo 3.0\n"

// childFD is the descriptor number the pipe lands on in the child: the
// first ExtraFiles entry, after stdin, stdout and stderr.
const childFD = 3

// Run executes argv with the expansion pipe wired up and relays the queued
// subtask definitions to stdout. The returned exit code mirrors the child's;
// a non-zero exit is reported through the code, not the error.
func Run(ctx context.Context, argv []string, stdout, stderr io.Writer) (int, error) {
	if len(argv) == 0 {
		return 1, errors.New("wrapper: no command to run")
	}
	logger := ctxlog.FromContext(ctx)

	if _, err := io.WriteString(stdout, scriptHeader); err != nil {
		return 1, fmt.Errorf("wrapper: writing expansion header: %w", err)
	}

	r, w, err := os.Pipe()
	if err != nil {
		return 1, fmt.Errorf("wrapper: creating expansion pipe: %w", err)
	}
	defer r.Close()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = stderr
	cmd.Stderr = stderr
	cmd.ExtraFiles = []*os.File{w}
	cmd.Env = append(os.Environ(), fmt.Sprintf("%s=%d", subtask.EnvStdoutFD, childFD))

	logger.Info("Running wrapped command.", "command", argv[0], "args", argv[1:])
	if err := cmd.Start(); err != nil {
		w.Close()
		return 1, fmt.Errorf("wrapper: starting %s: %w", argv[0], err)
	}
	// The parent's copy of the write end must close, or the relay below
	// never sees EOF.
	w.Close()

	relayed := make(chan error, 1)
	go func() {
		_, err := io.Copy(stdout, r)
		relayed <- err
	}()

	waitErr := cmd.Wait()
	relayErr := <-relayed
	if relayErr != nil {
		logger.Error("Relaying the expansion stream failed.", "command", argv[0], "error", relayErr)
	}

	if waitErr != nil {
		// The child's exit code is the more useful signal; a relay failure
		// was already logged.
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			logger.Error("Wrapped command failed.", "command", argv[0], "code", exitErr.ExitCode())
			return exitErr.ExitCode(), nil
		}
		return 1, fmt.Errorf("wrapper: running %s: %w", argv[0], waitErr)
	}
	if relayErr != nil {
		return 1, fmt.Errorf("wrapper: relaying expansion stream: %w", relayErr)
	}
	return 0, nil
}
