package threemf

import (
	"strconv"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

const objectTypeModel = "model"

// IDAllocator hands out resource IDs for one document. IDs start at 1 and
// are never reused.
type IDAllocator struct {
	next int
}

// NewIDAllocator returns an allocator whose first ID is 1.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{next: 1}
}

// Next returns a fresh resource ID.
func (a *IDAllocator) Next() int {
	id := a.next
	a.next++
	return id
}

// Allocated returns how many IDs were handed out.
func (a *IDAllocator) Allocated() int {
	return a.next - 1
}

// materialTable is the result of writing the basematerials group.
type materialTable struct {
	groupID int
	index   map[string]int
}

// ResourceBuilder turns scene nodes into object resources.
type ResourceBuilder struct {
	resources *Resources
	ids       *IDAllocator
	opts      Options
	materials materialTable
	log       *zap.Logger

	// ancestors holds the nodes on the current recursion path.
	ancestors map[Node]bool
}

// NewResourceBuilder creates a builder appending to resources and drawing IDs
// from ids.
func NewResourceBuilder(resources *Resources, ids *IDAllocator, opts Options, log *zap.Logger) *ResourceBuilder {
	if log == nil {
		log = zap.NewNop()
	}
	return &ResourceBuilder{
		resources: resources,
		ids:       ids,
		opts:      opts,
		log:       log,
		ancestors: make(map[Node]bool),
	}
}

// WriteObjectResource writes the resource for node and, recursively, for its
// eligible children. It returns the node's resource ID and its own
// transformation, which the caller composes into the build item.
//
// A node with both a mesh and eligible children gets its mesh moved into a
// separate resource referenced as one more component, so no object ever holds
// a mesh and components at the same time.
func (b *ResourceBuilder) WriteObjectResource(node Node) (int, mgl64.Mat4) {
	id := b.ids.Next()
	object := &Object{ID: id, Type: objectTypeModel}

	b.ancestors[node] = true
	defer delete(b.ancestors, node)

	mesh := node.MeshData(b.opts.ApplyModifiers)
	var meshElement *MeshElement
	if mesh != nil {
		meshElement = b.buildMesh(object, node, mesh)
	}

	world := node.World()
	var components []Component
	for _, child := range node.Children() {
		if child == nil || !child.Kind().Eligible() {
			continue
		}
		// Prevent infinite recursion on malformed parent links.
		if b.ancestors[child] {
			b.log.Warn("skipping child that is its own ancestor",
				zap.String("node", node.Name()), zap.String("child", child.Name()))
			continue
		}
		childID, _ := b.WriteObjectResource(child)
		components = append(components, Component{
			ObjectID:  childID,
			Transform: transformAttr(componentTransform(world, child), b.opts.Precision),
		})
	}

	switch {
	case meshElement != nil && len(components) > 0:
		meshID := b.ids.Next()
		b.resources.Objects = append(b.resources.Objects, &Object{
			ID:     meshID,
			Type:   objectTypeModel,
			PID:    object.PID,
			PIndex: object.PIndex,
			Mesh:   meshElement,
		})
		object.PID, object.PIndex = 0, ""
		components = append(components, Component{ObjectID: meshID})
		object.Components = &Components{Component: components}
		b.log.Debug("split mesh into component",
			zap.Int("object", id), zap.Int("mesh", meshID), zap.Int("components", len(components)))
	case meshElement != nil:
		object.Mesh = meshElement
	case len(components) > 0:
		object.Components = &Components{Component: components}
	}

	if mesh != nil {
		object.MetadataGroup = writeMetadata(mesh.Name, mesh.Metadata)
	} else {
		object.MetadataGroup = writeMetadata(node.Name(), node.Metadata())
	}

	b.resources.Objects = append(b.resources.Objects, object)
	return id, world
}

// buildMesh renders mesh and sets the object's default material.
func (b *ResourceBuilder) buildMesh(object *Object, node Node, mesh *Mesh) *MeshElement {
	element := &MeshElement{}
	writeVertices(element, mesh.Vertices, b.opts.Precision)
	writeTriangles(element, mesh.Triangles)

	if b.materials.groupID == 0 {
		return element
	}
	slots := node.Materials()
	materialIndex := make([]int, len(slots))
	for i, m := range slots {
		idx, ok := b.materials.index[m.Name]
		if !ok {
			idx = -1
		}
		materialIndex[i] = idx
	}

	objectIndex := dominantMaterial(mesh.Triangles, materialIndex)
	if objectIndex < 0 && len(materialIndex) > 0 {
		objectIndex = materialIndex[0]
	}
	if objectIndex >= 0 {
		object.PID = b.materials.groupID
		object.PIndex = strconv.Itoa(objectIndex)
	}
	triangleMaterials(element, mesh.Triangles, b.materials.groupID, materialIndex, objectIndex)
	return element
}

// dominantMaterial returns the group index used by most triangles, preferring
// the lowest index on ties, or -1 when no triangle has a material.
func dominantMaterial(triangles []Triangle, materialIndex []int) int {
	counts := make(map[int]int)
	for _, t := range triangles {
		if idx := slotIndex(materialIndex, t.Material); idx >= 0 {
			counts[idx]++
		}
	}
	best, bestCount := -1, 0
	for idx, n := range counts {
		if n > bestCount || (n == bestCount && idx < best) {
			best, bestCount = idx, n
		}
	}
	return best
}
