// Package scene assembles decoded chunk files into a portable scene graph
// in the output axis convention.
package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/cryconv/pkg/material"
)

// Graph is an assembled scene. Indices refer into the slices of the
// same graph.
type Graph struct {
	Nodes      []Node
	Roots      []int
	Meshes     []Mesh
	Skins      []Skin
	Animations []Animation
	Materials  []material.Material
}

// Node is a transform in the hierarchy. Mesh and Skin are -1 when unset.
type Node struct {
	Name     string
	Matrix   mgl32.Mat4 // relative to the parent
	Children []int
	Mesh     int
	Skin     int

	// ControllerID identifies joints across skeleton and animation files.
	ControllerID uint32
	IsJoint      bool
}

// Mesh is a named set of primitives.
type Mesh struct {
	Name       string
	Primitives []Primitive
}

// Primitive is one drawable subset. Material is -1 when unresolved.
type Primitive struct {
	Indices   []uint32
	Positions [][3]float32
	Normals   [][3]float32
	TexCoords [][2]float32
	Tangents  [][4]float32
	Colors    [][4]uint8
	Colors2   [][4]uint8
	Joints    [][4]uint16
	Weights   [][4]float32
	Material  int
}

// Skin binds a mesh to joint nodes.
type Skin struct {
	Name                string
	Joints              []int
	InverseBindMatrices []mgl32.Mat4
	Skeleton            int // root joint node
}

// Path is the node property an animation channel drives.
type Path int

const (
	PathRotation Path = iota
	PathTranslation
)

func (p Path) String() string {
	if p == PathTranslation {
		return "translation"
	}
	return "rotation"
}

// Animation is a named clip.
type Animation struct {
	Name     string
	Channels []Channel
}

// Channel animates one property of one node. Times are in seconds.
type Channel struct {
	ControllerID uint32
	Node         int
	Path         Path
	Times        []float32
	Rotations    [][4]float32 // PathRotation, xyzw
	Translations [][3]float32 // PathTranslation
}

// addNode appends n and returns its index.
func (g *Graph) addNode(n Node) int {
	g.Nodes = append(g.Nodes, n)
	return len(g.Nodes) - 1
}

// NewNode returns a node with no mesh or skin.
func NewNode(name string, m mgl32.Mat4) Node {
	return Node{Name: name, Matrix: m, Mesh: -1, Skin: -1}
}

// Walk visits every node reachable from the roots depth first.
func (g *Graph) Walk(fn func(index, depth int, n *Node)) {
	var visit func(i, depth int)
	visit = func(i, depth int) {
		fn(i, depth, &g.Nodes[i])
		for _, c := range g.Nodes[i].Children {
			visit(c, depth+1)
		}
	}
	for _, r := range g.Roots {
		visit(r, 0)
	}
}

// WorldMatrix returns the model-space matrix of node i.
func (g *Graph) WorldMatrix(i int) mgl32.Mat4 {
	parents := make(map[int]int, len(g.Nodes))
	for p, n := range g.Nodes {
		for _, c := range n.Children {
			parents[c] = p
		}
	}
	m := g.Nodes[i].Matrix
	for p, ok := parents[i]; ok; p, ok = parents[p] {
		m = g.Nodes[p].Matrix.Mul4(m)
	}
	return m
}
