package threemf

import "strconv"

// writeVertices appends one vertex element per input vertex.
func writeVertices(mesh *MeshElement, vertices []Vertex, precision int) {
	if len(vertices) == 0 {
		return
	}
	out := make([]VertexElement, 0, len(vertices))
	for _, v := range vertices {
		out = append(out, VertexElement{
			X: FormatNumber(v[0], precision),
			Y: FormatNumber(v[1], precision),
			Z: FormatNumber(v[2], precision),
		})
	}
	mesh.Vertices.Vertex = append(mesh.Vertices.Vertex, out...)
}

// writeTriangles appends one triangle element per input triangle. Indices are
// written as exact integers.
func writeTriangles(mesh *MeshElement, triangles []Triangle) {
	if len(triangles) == 0 {
		return
	}
	out := make([]TriangleElement, 0, len(triangles))
	for _, t := range triangles {
		out = append(out, TriangleElement{V1: t.V[0], V2: t.V[1], V3: t.V[2]})
	}
	mesh.Triangles.Triangle = append(mesh.Triangles.Triangle, out...)
}

// triangleMaterials assigns pid/p1 on triangles whose material differs from
// the object default. materialIndex maps a node's slot index to the index in
// the basematerials group, or -1.
func triangleMaterials(mesh *MeshElement, triangles []Triangle, groupID int, materialIndex []int, objectIndex int) {
	for i, t := range triangles {
		if i >= len(mesh.Triangles.Triangle) {
			return
		}
		idx := slotIndex(materialIndex, t.Material)
		if idx < 0 || idx == objectIndex {
			continue
		}
		mesh.Triangles.Triangle[i].PID = groupID
		mesh.Triangles.Triangle[i].P1 = strconv.Itoa(idx)
	}
}

func slotIndex(materialIndex []int, slot int) int {
	if slot < 0 || slot >= len(materialIndex) {
		return -1
	}
	return materialIndex[slot]
}
