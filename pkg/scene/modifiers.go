package scene

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/midgard3mf/pkg/threemf"
)

// DoubleSided adds a reversed copy of every triangle so the surface can be
// seen from both sides. Vertices are shared between the two faces.
func DoubleSided(mesh *threemf.Mesh) *threemf.Mesh {
	out := cloneMesh(mesh)
	for _, t := range mesh.Triangles {
		out.Triangles = append(out.Triangles, threemf.Triangle{
			V:        [3]int{t.V[0], t.V[2], t.V[1]},
			Material: t.Material,
		})
	}
	return out
}

// DoubleSidedFaces is DoubleSided restricted to the triangles at the given
// indices. Out of range indices are ignored.
func DoubleSidedFaces(indices []int) Modifier {
	return func(mesh *threemf.Mesh) *threemf.Mesh {
		out := cloneMesh(mesh)
		for _, i := range indices {
			if i < 0 || i >= len(mesh.Triangles) {
				continue
			}
			t := mesh.Triangles[i]
			out.Triangles = append(out.Triangles, threemf.Triangle{
				V:        [3]int{t.V[0], t.V[2], t.V[1]},
				Material: t.Material,
			})
		}
		return out
	}
}

// DropDegenerate removes triangles that repeat a vertex index, reference a
// vertex that does not exist or have no area.
func DropDegenerate(mesh *threemf.Mesh) *threemf.Mesh {
	out := cloneMesh(mesh)
	out.Triangles = out.Triangles[:0]
	for _, t := range mesh.Triangles {
		if degenerate(mesh.Vertices, t) {
			continue
		}
		out.Triangles = append(out.Triangles, t)
	}
	return out
}

func degenerate(vertices []threemf.Vertex, t threemf.Triangle) bool {
	for _, i := range t.V {
		if i < 0 || i >= len(vertices) {
			return true
		}
	}
	if t.V[0] == t.V[1] || t.V[1] == t.V[2] || t.V[0] == t.V[2] {
		return true
	}
	a := mgl64.Vec3(vertices[t.V[0]])
	b := mgl64.Vec3(vertices[t.V[1]])
	c := mgl64.Vec3(vertices[t.V[2]])
	return b.Sub(a).Cross(c.Sub(a)).Len() < 1e-12
}

func cloneMesh(mesh *threemf.Mesh) *threemf.Mesh {
	out := &threemf.Mesh{
		Name:      mesh.Name,
		Vertices:  append([]threemf.Vertex(nil), mesh.Vertices...),
		Triangles: make([]threemf.Triangle, len(mesh.Triangles), 2*len(mesh.Triangles)),
		Metadata:  append([]threemf.MetadataEntry(nil), mesh.Metadata...),
	}
	copy(out.Triangles, mesh.Triangles)
	return out
}
