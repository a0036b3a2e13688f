package meshroom

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/farmspool/internal/config"
)

const sampleProject = `{
  "header": {"releaseVersion": "2023.2.0", "fileVersion": "1.1"},
  "graph": {
    "CameraInit_1": {
      "nodeType": "CameraInit",
      "uids": {"0": "aaa111"},
      "inputs": {}
    },
    "FeatureExtraction_1": {
      "nodeType": "FeatureExtraction",
      "uids": {"0": "bbb222"},
      "size": 100,
      "inputs": {"input": "{CameraInit_1.output}"}
    },
    "FeatureMatching_1": {
      "nodeType": "FeatureMatching",
      "uids": {"0": "ccc333"},
      "size": 100,
      "inputs": {
        "input": "{CameraInit_1.output}",
        "features": ["{FeatureExtraction_1.output}"]
      }
    }
  }
}`

func TestParseProject(t *testing.T) {
	project, err := ParseProject(strings.NewReader(sampleProject))
	require.NoError(t, err)

	require.Len(t, project.Nodes, 3)
	assert.Equal(t, "2023.2.0", project.Header.ReleaseVersion)

	node := project.Nodes["FeatureExtraction_1"]
	require.NotNil(t, node)
	assert.Equal(t, "FeatureExtraction", node.Type)
	assert.Equal(t, "bbb222", node.UID)
	assert.Equal(t, 100, node.Size)

	// Nodes without a size default to 1.
	assert.Equal(t, 1, project.Nodes["CameraInit_1"].Size)
	assert.Equal(t, 100, project.MaxNodeSize())
}

func TestParseProjectRejectsEmptyGraph(t *testing.T) {
	_, err := ParseProject(strings.NewReader(`{"header": {}, "graph": {}}`))
	require.Error(t, err)
}

func TestEdges(t *testing.T) {
	project, err := ParseProject(strings.NewReader(sampleProject))
	require.NoError(t, err)

	edges := project.Edges()

	assert.Equal(t, []Edge{
		{Node: "FeatureExtraction_1", DependsOn: "CameraInit_1"},
		{Node: "FeatureMatching_1", DependsOn: "CameraInit_1"},
		{Node: "FeatureMatching_1", DependsOn: "FeatureExtraction_1"},
	}, edges)
}

func TestReadProjectName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan01.mg")
	require.NoError(t, os.WriteFile(path, []byte(sampleProject), 0o644))

	project, err := ReadProject(path)
	require.NoError(t, err)

	assert.Equal(t, "scan01", project.Name())
	assert.Equal(t, path, project.Path())
}

func TestDescriptors(t *testing.T) {
	d := DescriptorFor("DepthMap")
	assert.Equal(t, config.LevelNormal, d.GPU)
	assert.True(t, d.Parallelizable)

	// Unknown node types fall back to a conservative default.
	d = DescriptorFor("FutureNode")
	assert.Equal(t, config.LevelNormal, d.CPU)
	assert.False(t, d.Parallelizable)
}

func TestBlocks(t *testing.T) {
	node := &Node{Type: "FeatureExtraction", Size: 100}
	assert.Equal(t, 3, node.Blocks(), "100 items in blocks of 40")

	node = &Node{Type: "FeatureExtraction", Size: 40}
	assert.Equal(t, 1, node.Blocks())

	node = &Node{Type: "Meshing", Size: 100}
	assert.Equal(t, 1, node.Blocks(), "non-parallelizable nodes never split")
}

func TestChunkParams(t *testing.T) {
	node := &Node{Type: "DepthMap", Size: 120}
	params := node.ChunkParams()
	require.NotNil(t, params)
	assert.Equal(t, 0, params.Start)
	assert.Equal(t, 9, params.End)
	assert.Equal(t, 1, params.PacketSize)

	assert.Nil(t, (&Node{Type: "DepthMap", Size: 12}).ChunkParams())
	assert.Nil(t, (&Node{Type: "Meshing", Size: 100}).ChunkParams())
}
