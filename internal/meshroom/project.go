// Package meshroom reads compute-graph project files (.mg) and exposes the
// node graph a farm job is built from.
package meshroom

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Header is the project file header.
type Header struct {
	ReleaseVersion string `json:"releaseVersion"`
	FileVersion    string `json:"fileVersion"`
}

// Node is one node of the project graph.
type Node struct {
	Name   string
	Type   string
	UID    string
	Size   int
	Inputs map[string]any
}

// Project is a parsed project file.
type Project struct {
	Header Header
	Nodes  map[string]*Node

	path string
}

// Edge records that Node depends on the output of DependsOn.
type Edge struct {
	Node      string
	DependsOn string
}

type rawProject struct {
	Header Header             `json:"header"`
	Graph  map[string]rawNode `json:"graph"`
}

type rawNode struct {
	NodeType string            `json:"nodeType"`
	UIDs     map[string]string `json:"uids"`
	Size     int               `json:"size"`
	Inputs   map[string]any    `json:"inputs"`
}

// ReadProject parses the project file at path.
func ReadProject(path string) (*Project, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("meshroom: %w", err)
	}
	defer f.Close()

	project, err := ParseProject(f)
	if err != nil {
		return nil, fmt.Errorf("meshroom: parsing %s: %w", path, err)
	}
	project.path = path
	return project, nil
}

// ParseProject decodes a project file from r.
func ParseProject(r io.Reader) (*Project, error) {
	var raw rawProject
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if len(raw.Graph) == 0 {
		return nil, fmt.Errorf("project has no graph")
	}

	project := &Project{Header: raw.Header, Nodes: make(map[string]*Node, len(raw.Graph))}
	for name, rn := range raw.Graph {
		size := rn.Size
		if size <= 0 {
			size = 1
		}
		project.Nodes[name] = &Node{
			Name:   name,
			Type:   rn.NodeType,
			UID:    rn.UIDs["0"],
			Size:   size,
			Inputs: rn.Inputs,
		}
	}
	return project, nil
}

// Path returns the file the project was read from, if any.
func (p *Project) Path() string {
	return p.path
}

// Name derives the project name from the file name.
func (p *Project) Name() string {
	base := filepath.Base(p.path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// SortedNodes returns the nodes ordered by name for deterministic job
// construction.
func (p *Project) SortedNodes() []*Node {
	names := make([]string, 0, len(p.Nodes))
	for name := range p.Nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	nodes := make([]*Node, len(names))
	for i, name := range names {
		nodes[i] = p.Nodes[name]
	}
	return nodes
}

// MaxNodeSize returns the largest node size in the graph, used for job-level
// frame-count metadata.
func (p *Project) MaxNodeSize() int {
	max := 0
	for _, n := range p.Nodes {
		if n.Size > max {
			max = n.Size
		}
	}
	return max
}

// linkPattern matches attribute link expressions like
// "{FeatureExtraction_1.output}".
var linkPattern = regexp.MustCompile(`\{([A-Za-z0-9_]+)\.[^{}]*\}`)

// Edges extracts the dependency edges implied by input link expressions.
// Results are sorted for determinism.
func (p *Project) Edges() []Edge {
	var edges []Edge
	seen := make(map[Edge]bool)
	for name, node := range p.Nodes {
		for _, dep := range linkTargets(node.Inputs) {
			if dep == name {
				continue
			}
			if _, ok := p.Nodes[dep]; !ok {
				continue
			}
			e := Edge{Node: name, DependsOn: dep}
			if !seen[e] {
				seen[e] = true
				edges = append(edges, e)
			}
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Node != edges[j].Node {
			return edges[i].Node < edges[j].Node
		}
		return edges[i].DependsOn < edges[j].DependsOn
	})
	return edges
}

// linkTargets walks an input value tree and collects linked node names.
func linkTargets(value any) []string {
	var targets []string
	switch v := value.(type) {
	case string:
		for _, m := range linkPattern.FindAllStringSubmatch(v, -1) {
			targets = append(targets, m[1])
		}
	case []any:
		for _, item := range v {
			targets = append(targets, linkTargets(item)...)
		}
	case map[string]any:
		for _, item := range v {
			targets = append(targets, linkTargets(item)...)
		}
	}
	return targets
}
