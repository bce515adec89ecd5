package threemf

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Kind identifies what a scene node is.
type Kind int

const (
	KindEmpty    Kind = iota // transform-only placeholder
	KindMesh                 // polygon geometry
	KindCurve                // curve or text geometry
	KindCamera               // camera
	KindLight                // light source
	KindArmature             // skeleton
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindMesh:
		return "mesh"
	case KindCurve:
		return "curve"
	case KindCamera:
		return "camera"
	case KindLight:
		return "light"
	case KindArmature:
		return "armature"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Eligible reports whether nodes of this kind are written as resources.
func (k Kind) Eligible() bool {
	return k == KindMesh
}

// Vertex is a mesh vertex position.
type Vertex [3]float64

// NoMaterial marks a triangle without a material slot.
const NoMaterial = -1

// Triangle references three vertices by index. Material is an index into the
// owning node's material slots, or NoMaterial when the triangle has none.
//
// The zero value of Material is slot 0, not NoMaterial: a Triangle written as
// Triangle{V: v} takes the node's first material. Set Material to NoMaterial
// explicitly for untextured faces.
type Triangle struct {
	V        [3]int
	Material int
}

// Mesh is the geometry of a node, as resolved by the host.
type Mesh struct {
	Name      string
	Vertices  []Vertex
	Triangles []Triangle
	Metadata  []MetadataEntry
}

// MetadataEntry is one name/value pair attached to an entity.
type MetadataEntry struct {
	Name     string
	Value    string
	Datatype string // "xs:string" when empty
	Preserve bool
}

// Material is a material slot on a node. Materials are identified by name.
type Material struct {
	Name  string
	Color [4]float64 // RGBA, 0..1
}

// Node is the read-only view of a host scene node. Implementations must be
// comparable, which pointer receivers are.
type Node interface {
	Kind() Kind
	Name() string
	// Parent returns nil for top-level nodes.
	Parent() Node
	Children() []Node
	// Local is the transformation relative to the parent.
	Local() mgl64.Mat4
	// World is the local-to-world transformation.
	World() mgl64.Mat4
	// MeshData resolves the node's geometry, or nil when it has none.
	MeshData(applyModifiers bool) *Mesh
	Materials() []Material
	Metadata() []MetadataEntry
}

// Scene is what an export consumes.
type Scene interface {
	// Objects lists scene nodes in traversal order. Children may or may not
	// be listed alongside their parents.
	Objects() []Node
	Units() UnitSettings
	Metadata() []MetadataEntry
}
