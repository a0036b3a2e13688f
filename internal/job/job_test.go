package job

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/farmspool/internal/config"
	"github.com/vk/farmspool/internal/rez"
)

func testProfile() *config.Profile {
	p := config.DefaultProfile()
	p.DefaultService = "mikrosRender"
	return p
}

func testJob(spec Spec) *Job {
	return New(spec, testProfile(), rez.Env{"USER": "rnd"})
}

func TestSplitChunks(t *testing.T) {
	t.Run("exact partition", func(t *testing.T) {
		chunks := SplitChunks(&ChunkParams{Start: 0, End: 5, PacketSize: 2})
		assert.Equal(t, []Chunk{
			{Iteration: 0, Start: 0, End: 1},
			{Iteration: 1, Start: 2, End: 3},
			{Iteration: 2, Start: 4, End: 5},
		}, chunks)
	})

	t.Run("short last chunk", func(t *testing.T) {
		chunks := SplitChunks(&ChunkParams{Start: 0, End: 4, PacketSize: 3})
		require.Len(t, chunks, 2)
		assert.Equal(t, Chunk{Iteration: 1, Start: 3, End: 4}, chunks[1])
	})

	t.Run("empty range", func(t *testing.T) {
		assert.Nil(t, SplitChunks(&ChunkParams{Start: 0, End: -1, PacketSize: 1}))
		assert.Nil(t, SplitChunks(nil))
	})
}

func TestSplitArgs(t *testing.T) {
	assert.Equal(t,
		[]string{"meshroom_compute", "--node", "Meshing_1", "/prods/my scan.mg", "--extern"},
		SplitArgs(`meshroom_compute --node Meshing_1 "/prods/my scan.mg" --extern`))
	assert.Equal(t, []string{"a", "b c", "d"}, SplitArgs(`a 'b c'  d`))
	assert.Empty(t, SplitArgs("   "))
}

func TestCreateTaskDeduplicatesByUID(t *testing.T) {
	j := testJob(Spec{Name: "j"})

	first := j.CreateTask(TaskSpec{Name: "Meshing_1", UID: "u1"})
	second := j.CreateTask(TaskSpec{Name: "Meshing_1", UID: "u1"})

	assert.Same(t, first, second)
	assert.Equal(t, 1, j.Graph.Len())
}

func TestCreateTaskGeneratesUIDAndStampsTags(t *testing.T) {
	j := testJob(Spec{Name: "j"})
	shared := map[string]string{"prod": "mvg"}

	task := j.CreateTask(TaskSpec{Name: "n", Tags: shared})

	assert.NotEmpty(t, task.Spec.UID)
	assert.Equal(t, task.Spec.UID, task.Spec.Tags["nodeUid"])
	// The caller's map is copied, never aliased.
	assert.NotContains(t, shared, "nodeUid")
}

func TestDetectCycles(t *testing.T) {
	j := testJob(Spec{Name: "j"})
	a := j.CreateTask(TaskSpec{Name: "a", UID: "a"})
	b := j.CreateTask(TaskSpec{Name: "b", UID: "b"})
	c := j.CreateTask(TaskSpec{Name: "c", UID: "c"})
	b.DependsOn(a)
	c.DependsOn(b)
	require.NoError(t, j.Graph.DetectCycles())

	a.DependsOn(c)
	err := j.Graph.DetectCycles()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestRootsAndLeaves(t *testing.T) {
	j := testJob(Spec{Name: "j"})
	a := j.CreateTask(TaskSpec{Name: "a", UID: "a"})
	b := j.CreateTask(TaskSpec{Name: "b", UID: "b"})
	c := j.CreateTask(TaskSpec{Name: "c", UID: "c"})
	b.DependsOn(a)
	c.DependsOn(b)

	roots := j.Graph.Roots()
	require.Len(t, roots, 1)
	assert.Equal(t, "c", roots[0].Spec.Name)

	leaves := j.Graph.Leaves()
	require.Len(t, leaves, 1)
	assert.Equal(t, "a", leaves[0].Spec.Name)
}

func TestCookPlainTask(t *testing.T) {
	j := testJob(Spec{
		Name:        "scan01",
		Tags:        map[string]string{"prod": "mvg"},
		Environment: map[string]string{"PROD": "mvg"},
		User:        "rnd",
		Comment:     "/prods/scan01.mg",
	})
	j.CreateTask(TaskSpec{
		Name:        "Meshing_1",
		UID:         "u1",
		CommandArgs: `--node Meshing_1 "/prods/scan01.mg" --extern`,
		Licenses:    []string{"mtoa"},
	})

	aj, err := j.Cook(context.Background())
	require.NoError(t, err)
	script := aj.Script()

	assert.Contains(t, script, "Task -title {scan01}")
	assert.Contains(t, script, "RemoteCmd {meshroom_compute --node Meshing_1 /prods/scan01.mg --extern}")
	assert.Contains(t, script, "-tags {arnold}", "licence mapped to its limit tag")
	assert.Contains(t, script, "setenv FARM_USER=rnd")
	assert.Contains(t, script, "-serialsubtasks 1", "single leaf runs serially")
}

func TestCookAppendsCacheDir(t *testing.T) {
	j := testJob(Spec{Name: "scan01"})
	j.CreateTask(TaskSpec{
		Name:        "Meshing_1",
		UID:         "u1",
		CommandArgs: "--node Meshing_1 scan01.mg",
		CacheDir:    "/prods/my scan/cache",
	})

	aj, err := j.Cook(context.Background())
	require.NoError(t, err)

	// The quoted directory survives argument splitting as one argument.
	assert.Contains(t, aj.Script(), "--node Meshing_1 scan01.mg --cache /prods/my scan/cache}")
}

func TestCookChunkedTask(t *testing.T) {
	j := testJob(Spec{Name: "scan01"})
	j.CreateTask(TaskSpec{
		Name:        "DepthMap_1",
		UID:         "u1",
		CommandArgs: "--node DepthMap_1 scan01.mg",
		Chunks:      &ChunkParams{Start: 0, End: 2, PacketSize: 1},
	})

	aj, err := j.Cook(context.Background())
	require.NoError(t, err)
	script := aj.Script()

	// The node task groups, chunks carry the commands.
	assert.Contains(t, script, "Task -title {DepthMap_1}")
	for _, chunk := range []string{"DepthMap_1_0_0", "DepthMap_1_1_1", "DepthMap_1_2_2"} {
		assert.Contains(t, script, "Task -title {"+chunk+"}")
	}
	assert.Contains(t, script, "--iteration 0")
	assert.Contains(t, script, "--iteration 2")
	assert.Contains(t, script, `"iteration":"1"`)
}

func TestCookEmptyChunkRangeDegradesToPlainTask(t *testing.T) {
	j := testJob(Spec{Name: "scan01"})
	j.CreateTask(TaskSpec{
		Name:        "DepthMap_1",
		UID:         "u1",
		CommandArgs: "--node DepthMap_1 scan01.mg",
		Chunks:      &ChunkParams{Start: 0, End: -1, PacketSize: 1},
	})

	aj, err := j.Cook(context.Background())
	require.NoError(t, err)
	script := aj.Script()

	// No chunks to split into: the node still runs as a single compute task.
	assert.Contains(t, script, "RemoteCmd {meshroom_compute --node DepthMap_1 scan01.mg}")
	assert.NotContains(t, script, "--iteration")
}

func TestCookExpandingTask(t *testing.T) {
	profile := testProfile()
	profile.ScriptsDir = "/farm/scripts"
	j := New(Spec{Name: "scan01"}, profile, rez.Env{"USER": "rnd"})
	j.CreateTask(TaskSpec{
		Name:        "FeatureExtraction_1",
		UID:         "u1",
		CommandArgs: "--node FeatureExtraction_1 scan01.mg",
		Expanding:   true,
	})

	aj, err := j.Cook(context.Background())
	require.NoError(t, err)
	script := aj.Script()

	assert.Contains(t, script, "RemoteCmd {/farm/scripts/farmspool wrap -- meshroom_createChunks --submitter Tractor --node FeatureExtraction_1 scan01.mg}")
	assert.Contains(t, script, "-expand 1")
}

func TestCookDependencies(t *testing.T) {
	j := testJob(Spec{Name: "scan01"})
	camera := j.CreateTask(TaskSpec{Name: "CameraInit_1", UID: "cam"})
	meshing := j.CreateTask(TaskSpec{Name: "Meshing_1", UID: "mesh"})
	meshing.DependsOn(camera)

	aj, err := j.Cook(context.Background())
	require.NoError(t, err)
	script := aj.Script()

	// Meshing is the pipeline end; CameraInit nests under it as a subtask.
	meshingIdx := strings.Index(script, "Task -title {Meshing_1}")
	cameraIdx := strings.Index(script, "Task -title {CameraInit_1}")
	require.GreaterOrEqual(t, meshingIdx, 0)
	require.GreaterOrEqual(t, cameraIdx, 0)
	assert.Less(t, meshingIdx, cameraIdx)
}

func TestCookSharedDependencyCooksOnce(t *testing.T) {
	j := testJob(Spec{Name: "scan01"})
	base := j.CreateTask(TaskSpec{Name: "CameraInit_1", UID: "cam"})
	left := j.CreateTask(TaskSpec{Name: "FeatureExtraction_1", UID: "feat"})
	right := j.CreateTask(TaskSpec{Name: "ImageMatching_1", UID: "match"})
	left.DependsOn(base)
	right.DependsOn(base)

	aj, err := j.Cook(context.Background())
	require.NoError(t, err)
	script := aj.Script()

	assert.Equal(t, 1, strings.Count(script, "Task -title {CameraInit_1}"))
	assert.Equal(t, 1, strings.Count(script, "Instance {CameraInit_1}"))
}

func TestCookEmptyGraphGetsPlaceholder(t *testing.T) {
	j := testJob(Spec{Name: "empty"})

	aj, err := j.Cook(context.Background())
	require.NoError(t, err)

	assert.Contains(t, aj.Script(), "Task -title {dummy}")
}

func TestCookRequiresService(t *testing.T) {
	profile := config.DefaultProfile()
	profile.DefaultService = ""
	j := New(Spec{Name: "j"}, profile, rez.Env{})
	j.CreateTask(TaskSpec{Name: "n", UID: "u"})

	_, err := j.Cook(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), config.EnvDefaultService)
}

func TestSubmitDryRun(t *testing.T) {
	j := testJob(Spec{Name: "scan01"})
	j.CreateTask(TaskSpec{Name: "Meshing_1", UID: "u1", CommandArgs: "--node Meshing_1 scan01.mg"})

	result, err := j.Submit(context.Background(), nil, SubmitOptions{DryRun: true, Priority: "high"})
	require.NoError(t, err)

	assert.Zero(t, result.JID)
	assert.Contains(t, result.Script, "-priority 10000")
}

func TestSubmitRejectsUnknownPriority(t *testing.T) {
	j := testJob(Spec{Name: "scan01"})

	_, err := j.Submit(context.Background(), nil, SubmitOptions{DryRun: true, Priority: "ludicrous"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ludicrous")
}
