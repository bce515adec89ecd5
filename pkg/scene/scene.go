// Package scene provides an in-memory scene graph that can be exported with
// package threemf. Format readers build these graphs up front, so an export
// only ever walks data it owns.
package scene

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/midgard3mf/pkg/threemf"
)

// Modifier derives new geometry from a mesh. Modifiers must not mutate their
// input.
type Modifier func(*threemf.Mesh) *threemf.Mesh

// Object is a scene node.
type Object struct {
	name      string
	kind      threemf.Kind
	local     mgl64.Mat4
	mesh      *threemf.Mesh
	modifiers []Modifier
	materials []threemf.Material
	metadata  []threemf.MetadataEntry

	parent   *Object
	children []*Object
}

// NewObject creates a parentless object with an identity transformation.
func NewObject(name string, kind threemf.Kind) *Object {
	return &Object{
		name:  name,
		kind:  kind,
		local: mgl64.Ident4(),
	}
}

// NewMeshObject creates a mesh object holding mesh.
func NewMeshObject(name string, mesh *threemf.Mesh) *Object {
	o := NewObject(name, threemf.KindMesh)
	o.mesh = mesh
	return o
}

// AddChild attaches child under o, detaching it from any previous parent.
func (o *Object) AddChild(child *Object) *Object {
	if child.parent != nil {
		child.parent.removeChild(child)
	}
	child.parent = o
	o.children = append(o.children, child)
	return child
}

func (o *Object) removeChild(child *Object) {
	for i, c := range o.children {
		if c == child {
			o.children = append(o.children[:i], o.children[i+1:]...)
			return
		}
	}
}

// SetLocal sets the transformation relative to the parent.
func (o *Object) SetLocal(m mgl64.Mat4) *Object {
	o.local = m
	return o
}

// Local returns the transformation relative to the parent.
func (o *Object) Local() mgl64.Mat4 {
	return o.local
}

// SetMesh replaces the object's geometry.
func (o *Object) SetMesh(mesh *threemf.Mesh) *Object {
	o.mesh = mesh
	return o
}

// AddModifier appends a modifier to the stack.
func (o *Object) AddModifier(m Modifier) *Object {
	o.modifiers = append(o.modifiers, m)
	return o
}

// AddMaterial appends a material slot.
func (o *Object) AddMaterial(m threemf.Material) *Object {
	o.materials = append(o.materials, m)
	return o
}

// SetMetadata stores an entry, replacing one with the same name.
func (o *Object) SetMetadata(entry threemf.MetadataEntry) *Object {
	o.metadata = setEntry(o.metadata, entry)
	return o
}

// Kind implements threemf.Node.
func (o *Object) Kind() threemf.Kind { return o.kind }

// Name implements threemf.Node.
func (o *Object) Name() string { return o.name }

// Parent implements threemf.Node.
func (o *Object) Parent() threemf.Node {
	if o.parent == nil {
		return nil
	}
	return o.parent
}

// Children implements threemf.Node.
func (o *Object) Children() []threemf.Node {
	nodes := make([]threemf.Node, len(o.children))
	for i, c := range o.children {
		nodes[i] = c
	}
	return nodes
}

// World implements threemf.Node.
func (o *Object) World() mgl64.Mat4 {
	if o.parent == nil {
		return o.local
	}
	return o.parent.World().Mul4(o.local)
}

// MeshData implements threemf.Node.
func (o *Object) MeshData(applyModifiers bool) *threemf.Mesh {
	if o.mesh == nil {
		return nil
	}
	mesh := o.mesh
	if !applyModifiers {
		return mesh
	}
	for _, m := range o.modifiers {
		mesh = m(mesh)
	}
	return mesh
}

// Materials implements threemf.Node.
func (o *Object) Materials() []threemf.Material { return o.materials }

// Metadata implements threemf.Node.
func (o *Object) Metadata() []threemf.MetadataEntry { return o.metadata }

// Walk calls fn for o and its descendants, depth first, parents first.
func (o *Object) Walk(fn func(*Object)) {
	fn(o)
	for _, c := range o.children {
		c.Walk(fn)
	}
}

// Scene is an exportable set of root objects.
type Scene struct {
	Roots        []*Object
	UnitSettings threemf.UnitSettings
	metadata     []threemf.MetadataEntry
}

// New creates an empty scene in millimetres.
func New() *Scene {
	return &Scene{UnitSettings: threemf.UnitSettings{LengthUnit: threemf.Millimeters}}
}

// Add appends a root object.
func (s *Scene) Add(o *Object) *Object {
	s.Roots = append(s.Roots, o)
	return o
}

// SetMetadata stores a scene-level entry, replacing one with the same name.
func (s *Scene) SetMetadata(entry threemf.MetadataEntry) {
	s.metadata = setEntry(s.metadata, entry)
}

// Objects implements threemf.Scene. Every object is listed, children right
// after their parents.
func (s *Scene) Objects() []threemf.Node {
	var nodes []threemf.Node
	for _, root := range s.Roots {
		root.Walk(func(o *Object) {
			nodes = append(nodes, o)
		})
	}
	return nodes
}

// Units implements threemf.Scene.
func (s *Scene) Units() threemf.UnitSettings { return s.UnitSettings }

// Metadata implements threemf.Scene.
func (s *Scene) Metadata() []threemf.MetadataEntry { return s.metadata }

func setEntry(entries []threemf.MetadataEntry, entry threemf.MetadataEntry) []threemf.MetadataEntry {
	for i := range entries {
		if entries[i].Name == entry.Name {
			entries[i] = entry
			return entries
		}
	}
	return append(entries, entry)
}
