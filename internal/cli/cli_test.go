package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCommand(&out, &errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestConfigPrintsResolvedProfile(t *testing.T) {
	t.Setenv("TRACTOR_ENGINE", "farm.example:9005")

	out, _, err := execute(t, "config")

	require.NoError(t, err)
	assert.Contains(t, out, "engine:            http://farm.example:9005")
	assert.Contains(t, out, "default submitter: Tractor")
	assert.Contains(t, out, "high     10000")
}

func TestQueryRejectsBadJobID(t *testing.T) {
	_, _, err := execute(t, "query", "not-a-jid")

	require.Error(t, err)
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 2, exitErr.Code)
}

func TestWrapPropagatesExitCode(t *testing.T) {
	out, _, err := execute(t, "wrap", "--", "sh", "-c", "exit 3")

	require.Error(t, err)
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.Code)
	assert.Contains(t, out, "##AlfredToDo 3.0")
}

func TestWrapRelaysSubtasks(t *testing.T) {
	out, errOut, err := execute(t, "wrap", "--", "sh", "-c",
		`echo "noise" ; echo "Task -title {t}" >&3`)

	require.NoError(t, err)
	assert.Contains(t, out, "Task -title {t}")
	assert.NotContains(t, out, "noise")
	assert.Contains(t, errOut, "noise")
}

func TestSubmitRequiresProjectArgument(t *testing.T) {
	_, _, err := execute(t, "submit")

	require.Error(t, err)
}
