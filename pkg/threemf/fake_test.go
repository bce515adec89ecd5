package threemf

import "github.com/go-gl/mathgl/mgl64"

// fakeNode is a minimal Node used to drive the writers without a scene
// package.
type fakeNode struct {
	name      string
	kind      Kind
	local     mgl64.Mat4
	mesh      *Mesh
	modified  *Mesh
	materials []Material
	metadata  []MetadataEntry
	parent    *fakeNode
	children  []*fakeNode
}

func newFake(name string, kind Kind) *fakeNode {
	return &fakeNode{name: name, kind: kind, local: mgl64.Ident4()}
}

func (n *fakeNode) add(child *fakeNode) *fakeNode {
	child.parent = n
	n.children = append(n.children, child)
	return child
}

func (n *fakeNode) Kind() Kind   { return n.kind }
func (n *fakeNode) Name() string { return n.name }

func (n *fakeNode) Parent() Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *fakeNode) Children() []Node {
	out := make([]Node, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}

func (n *fakeNode) Local() mgl64.Mat4 { return n.local }

func (n *fakeNode) World() mgl64.Mat4 {
	if n.parent == nil {
		return n.local
	}
	return n.parent.World().Mul4(n.local)
}

func (n *fakeNode) MeshData(applyModifiers bool) *Mesh {
	if applyModifiers && n.modified != nil {
		return n.modified
	}
	return n.mesh
}

func (n *fakeNode) Materials() []Material     { return n.materials }
func (n *fakeNode) Metadata() []MetadataEntry { return n.metadata }

type fakeScene struct {
	nodes    []Node
	units    UnitSettings
	metadata []MetadataEntry
}

func (s *fakeScene) Objects() []Node           { return s.nodes }
func (s *fakeScene) Units() UnitSettings       { return s.units }
func (s *fakeScene) Metadata() []MetadataEntry { return s.metadata }

func triangleMesh(name string) *Mesh {
	return &Mesh{
		Name:      name,
		Vertices:  []Vertex{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Triangles: []Triangle{{V: [3]int{0, 1, 2}, Material: NoMaterial}},
	}
}
