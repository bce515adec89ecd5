// Package rsmscene converts RSM models into exportable scene graphs.
//
// Each RSM node becomes one scene object. The node's hierarchy transform
// (Position, rotation and Scale) becomes the object's local matrix, while the
// vertex-only Offset and 3x3 matrix are baked into the vertices, so children
// inherit exactly what they inherit in the client.
package rsmscene

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard3mf/pkg/formats"
	"github.com/Faultbox/midgard3mf/pkg/scene"
	"github.com/Faultbox/midgard3mf/pkg/threemf"
)

// Options controls the conversion.
type Options struct {
	// ForceDoubleSided treats every face as two-sided.
	ForceDoubleSided bool
	// DropDegenerate removes zero-area faces on export.
	DropDegenerate bool
	// SkipAxisFix keeps the RSM Y-down axes instead of rotating roots to Z-up.
	SkipAxisFix bool
	Log         *zap.Logger
}

// DefaultOptions returns the options used by the CLI when nothing is
// configured.
func DefaultOptions() Options {
	return Options{DropDegenerate: true}
}

// axisFix turns RSM's Y-down space into 3MF's Z-up space.
var axisFix = mgl64.HomogRotate3DX(-math.Pi / 2)

// FromRSM builds a scene named name from a parsed model.
func FromRSM(name string, rsm *formats.RSM, opts Options) *scene.Scene {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	sc := scene.New()
	if name != "" {
		sc.SetMetadata(threemf.MetadataEntry{Name: "Title", Value: name})
	}
	sc.SetMetadata(threemf.MetadataEntry{
		Name:  "Description",
		Value: fmt.Sprintf("RSM %s model, %d nodes, %d faces", rsm.Version, len(rsm.Nodes), rsm.FaceCount()),
	})

	b := &builder{
		rsm:     rsm,
		opts:    opts,
		log:     log,
		objects: make(map[string]*scene.Object),
	}
	for i := range rsm.Nodes {
		node := &rsm.Nodes[i]
		if _, dup := b.objects[node.Name]; dup {
			log.Warn("duplicate RSM node name, keeping the first", zap.String("node", node.Name))
			continue
		}
		b.objects[node.Name] = b.object(node)
		b.order = append(b.order, node)
	}

	for _, node := range b.order {
		obj := b.objects[node.Name]
		parent, ok := b.objects[node.Parent]
		root := node.Parent == "" || node.Parent == node.Name || !ok
		switch {
		case node.Parent != "" && !ok:
			log.Warn("RSM node parent not found, treating as root",
				zap.String("node", node.Name), zap.String("parent", node.Parent))
		case !root && b.createsCycle(node):
			log.Warn("RSM node hierarchy has a cycle, treating as root", zap.String("node", node.Name))
			root = true
		}
		if root {
			if !opts.SkipAxisFix {
				obj.SetLocal(axisFix.Mul4(obj.Local()))
			}
			sc.Add(obj)
			continue
		}
		parent.AddChild(obj)
	}

	log.Debug("converted RSM model",
		zap.String("name", name),
		zap.Stringer("version", rsm.Version),
		zap.Int("nodes", len(b.order)),
		zap.Int("roots", len(sc.Roots)))
	return sc
}

type builder struct {
	rsm     *formats.RSM
	opts    Options
	log     *zap.Logger
	objects map[string]*scene.Object
	order   []*formats.RSMNode
}

// createsCycle reports whether following node's parent links leads back to
// node. Such a node is attached as a root instead.
func (b *builder) createsCycle(node *formats.RSMNode) bool {
	visited := map[string]bool{node.Name: true}
	for name := node.Parent; name != ""; {
		if visited[name] {
			return name == node.Name
		}
		visited[name] = true
		parent := b.rsm.NodeByName(name)
		if parent == nil || parent.Parent == parent.Name {
			return false
		}
		name = parent.Parent
	}
	return false
}

func (b *builder) object(node *formats.RSMNode) *scene.Object {
	mesh, twoSided := b.mesh(node)
	obj := scene.NewMeshObject(node.Name, mesh).SetLocal(LocalMatrix(node))

	for _, texID := range node.TextureIDs {
		obj.AddMaterial(b.material(texID))
	}

	switch {
	case b.opts.ForceDoubleSided:
		obj.AddModifier(scene.DoubleSided)
	case len(twoSided) > 0:
		obj.AddModifier(scene.DoubleSidedFaces(twoSided))
	}
	if b.opts.DropDegenerate {
		obj.AddModifier(scene.DropDegenerate)
	}
	return obj
}

// mesh bakes the vertex transform into the node's vertices. It returns the
// indices of two-sided triangles alongside the mesh.
func (b *builder) mesh(node *formats.RSMNode) (*threemf.Mesh, []int) {
	vertexMatrix := VertexMatrix(node)
	mesh := &threemf.Mesh{
		Name:      node.Name,
		Vertices:  make([]threemf.Vertex, len(node.Vertices)),
		Triangles: make([]threemf.Triangle, 0, len(node.Faces)),
	}
	for i, v := range node.Vertices {
		p := mgl64.TransformCoordinate(mgl64.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}, vertexMatrix)
		mesh.Vertices[i] = threemf.Vertex(p)
	}

	var twoSided []int
	skipped := 0
	for _, face := range node.Faces {
		if !validFace(face, len(node.Vertices)) {
			skipped++
			continue
		}
		material := threemf.NoMaterial
		if int(face.TextureID) < len(node.TextureIDs) {
			material = int(face.TextureID)
		}
		if face.DoubleSided() {
			twoSided = append(twoSided, len(mesh.Triangles))
		}
		mesh.Triangles = append(mesh.Triangles, threemf.Triangle{
			V:        [3]int{int(face.VertexIDs[0]), int(face.VertexIDs[1]), int(face.VertexIDs[2])},
			Material: material,
		})
	}
	if skipped > 0 {
		b.log.Warn("skipped faces with out of range vertices",
			zap.String("node", node.Name), zap.Int("faces", skipped))
	}
	return mesh, twoSided
}

func validFace(face formats.RSMFace, vertexCount int) bool {
	for _, id := range face.VertexIDs {
		if int(id) >= vertexCount {
			return false
		}
	}
	return true
}

// material names a texture slot after its texture file. The model alpha
// becomes the material's opacity.
func (b *builder) material(texID int32) threemf.Material {
	name := fmt.Sprintf("texture_%d", texID)
	if texID >= 0 && int(texID) < len(b.rsm.Textures) && b.rsm.Textures[texID] != "" {
		name = b.rsm.Textures[texID]
	}
	return threemf.Material{
		Name:  name,
		Color: [4]float64{1, 1, 1, float64(b.rsm.Alpha)},
	}
}

// LocalMatrix returns the transform a node passes on to its children:
// Translate(Position) * Rotation * Scale. Rotation keys take precedence over
// the axis-angle pair; only the first rotation and scale keys are used.
func LocalMatrix(node *formats.RSMNode) mgl64.Mat4 {
	m := mgl64.Translate3D(float64(node.Position[0]), float64(node.Position[1]), float64(node.Position[2]))

	if len(node.RotKeys) > 0 {
		q := node.RotKeys[0].Quaternion
		quat := mgl64.Quat{W: float64(q[3]), V: mgl64.Vec3{float64(q[0]), float64(q[1]), float64(q[2])}}
		if quat.Len() > 1e-6 {
			m = m.Mul4(quat.Normalize().Mat4())
		}
	} else if node.RotAngle != 0 {
		axis := mgl64.Vec3{float64(node.RotAxis[0]), float64(node.RotAxis[1]), float64(node.RotAxis[2])}
		if axis.Len() > 1e-6 {
			m = m.Mul4(mgl64.HomogRotate3D(float64(node.RotAngle), axis.Normalize()))
		}
	}

	m = m.Mul4(mgl64.Scale3D(float64(node.Scale[0]), float64(node.Scale[1]), float64(node.Scale[2])))
	if len(node.ScaleKeys) > 0 {
		s := node.ScaleKeys[0].Scale
		m = m.Mul4(mgl64.Scale3D(float64(s[0]), float64(s[1]), float64(s[2])))
	}
	return m
}

// VertexMatrix returns the vertex-only transform Translate(Offset) * Matrix.
// Children do not inherit it.
func VertexMatrix(node *formats.RSMNode) mgl64.Mat4 {
	var m3 mgl64.Mat3
	for i, v := range node.Matrix {
		m3[i] = float64(v)
	}
	offset := mgl64.Translate3D(float64(node.Offset[0]), float64(node.Offset[1]), float64(node.Offset[2]))
	return offset.Mul4(m3.Mat4())
}
