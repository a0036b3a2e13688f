package meshroom

import (
	"sync"

	"github.com/vk/farmspool/internal/config"
	"github.com/vk/farmspool/internal/job"
)

// Descriptor captures the farm-relevant traits of a node type: resource
// requirement levels, licence needs and parallelization.
type Descriptor struct {
	CPU config.Level
	RAM config.Level
	GPU config.Level

	Licenses []string

	// Parallelizable nodes are split into chunks of BlockSize elements.
	Parallelizable bool
	BlockSize      int
}

var (
	descMu      sync.RWMutex
	descriptors = map[string]Descriptor{
		"CameraInit":          {CPU: config.LevelScript},
		"FeatureExtraction":   {CPU: config.LevelNormal, Parallelizable: true, BlockSize: 40},
		"ImageMatching":       {CPU: config.LevelNormal},
		"FeatureMatching":     {CPU: config.LevelNormal, Parallelizable: true, BlockSize: 20},
		"StructureFromMotion": {CPU: config.LevelIntensive, RAM: config.LevelIntensive},
		"PrepareDenseScene":   {CPU: config.LevelNormal, Parallelizable: true, BlockSize: 40},
		"DepthMap":            {GPU: config.LevelNormal, Parallelizable: true, BlockSize: 12},
		"DepthMapFilter":      {CPU: config.LevelNormal, Parallelizable: true, BlockSize: 24},
		"Meshing":             {CPU: config.LevelIntensive, RAM: config.LevelIntensive},
		"MeshFiltering":       {CPU: config.LevelNormal},
		"MeshDecimate":        {CPU: config.LevelNormal},
		"Texturing":           {CPU: config.LevelIntensive, RAM: config.LevelIntensive},
		"Publish":             {CPU: config.LevelScript},
	}
)

// RegisterDescriptor installs or replaces the descriptor for a node type.
func RegisterDescriptor(nodeType string, d Descriptor) {
	descMu.Lock()
	defer descMu.Unlock()
	descriptors[nodeType] = d
}

// DescriptorFor returns the descriptor for a node type. Unknown types get a
// conservative default: normal CPU, no parallelization.
func DescriptorFor(nodeType string) Descriptor {
	descMu.RLock()
	defer descMu.RUnlock()
	if d, ok := descriptors[nodeType]; ok {
		return d
	}
	return Descriptor{CPU: config.LevelNormal}
}

// Descriptor returns the node's descriptor.
func (n *Node) Descriptor() Descriptor {
	return DescriptorFor(n.Type)
}

// ChunkParams returns the chunk range for a node that splits into more than
// one block, or nil when the node runs as a single task.
func (n *Node) ChunkParams() *job.ChunkParams {
	blocks := n.Blocks()
	if blocks <= 1 {
		return nil
	}
	return &job.ChunkParams{Start: 0, End: blocks - 1, PacketSize: 1}
}

// Blocks returns the number of chunks the node splits into given its size.
func (n *Node) Blocks() int {
	d := n.Descriptor()
	if !d.Parallelizable || d.BlockSize <= 0 || n.Size <= 0 {
		return 1
	}
	blocks := n.Size / d.BlockSize
	if n.Size%d.BlockSize != 0 {
		blocks++
	}
	if blocks < 1 {
		blocks = 1
	}
	return blocks
}
