// Package gltfscene converts glTF 2.0 documents into exportable scene graphs.
package gltfscene

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard3mf/pkg/scene"
	"github.com/Faultbox/midgard3mf/pkg/threemf"
)

// Options controls the conversion.
type Options struct {
	// SkipAxisFix keeps glTF's Y-up axes instead of rotating roots to Z-up.
	SkipAxisFix bool
	Log         *zap.Logger
}

// axisFix turns glTF's Y-up space into 3MF's Z-up space.
var axisFix = mgl64.HomogRotate3DX(math.Pi / 2)

// Load reads a .gltf or .glb file.
func Load(path string, opts Options) (*scene.Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	sc, err := FromDocument(doc, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "converting %s", path)
	}
	if !hasTitle(sc.Metadata()) {
		sc.SetMetadata(threemf.MetadataEntry{
			Name:  "Title",
			Value: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		})
	}
	return sc, nil
}

func hasTitle(entries []threemf.MetadataEntry) bool {
	for _, e := range entries {
		if e.Name == "Title" {
			return true
		}
	}
	return false
}

// FromDocument builds a scene from the document's default scene, or from
// every node that is nobody's child when the document has no scenes.
func FromDocument(doc *gltf.Document, opts Options) (*scene.Scene, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	c := &converter{
		doc:     doc,
		log:     log,
		visited: make(map[uint32]bool),
	}

	sc := scene.New()
	sc.UnitSettings = threemf.UnitSettings{LengthUnit: threemf.Meters}
	if doc.Asset.Generator != "" {
		sc.SetMetadata(threemf.MetadataEntry{Name: "Application", Value: doc.Asset.Generator})
	}
	if doc.Asset.Copyright != "" {
		sc.SetMetadata(threemf.MetadataEntry{Name: "Copyright", Value: doc.Asset.Copyright})
	}

	roots, name := c.roots()
	if name != "" {
		sc.SetMetadata(threemf.MetadataEntry{Name: "Title", Value: name})
	}
	for _, idx := range roots {
		obj, err := c.object(idx)
		if err != nil {
			return nil, err
		}
		if obj == nil {
			continue
		}
		if !opts.SkipAxisFix {
			obj.SetLocal(axisFix.Mul4(obj.Local()))
		}
		sc.Add(obj)
	}

	log.Debug("converted glTF document",
		zap.Int("nodes", len(doc.Nodes)),
		zap.Int("roots", len(sc.Roots)),
		zap.Int("meshes", len(doc.Meshes)))
	return sc, nil
}

type converter struct {
	doc     *gltf.Document
	log     *zap.Logger
	visited map[uint32]bool
}

// roots returns the root node indices and the name of the scene they came
// from.
func (c *converter) roots() ([]uint32, string) {
	if len(c.doc.Scenes) > 0 {
		idx := 0
		if c.doc.Scene != nil && int(*c.doc.Scene) < len(c.doc.Scenes) {
			idx = int(*c.doc.Scene)
		}
		s := c.doc.Scenes[idx]
		return s.Nodes, s.Name
	}

	isChild := make(map[uint32]bool)
	for _, n := range c.doc.Nodes {
		for _, child := range n.Children {
			isChild[child] = true
		}
	}
	var roots []uint32
	for i := range c.doc.Nodes {
		if !isChild[uint32(i)] {
			roots = append(roots, uint32(i))
		}
	}
	return roots, ""
}

func (c *converter) object(idx uint32) (*scene.Object, error) {
	if int(idx) >= len(c.doc.Nodes) {
		return nil, errors.Errorf("node index %d out of range", idx)
	}
	if c.visited[idx] {
		c.log.Warn("glTF node referenced more than once, skipping", zap.Uint32("node", idx))
		return nil, nil
	}
	c.visited[idx] = true

	node := c.doc.Nodes[idx]
	name := node.Name
	if name == "" {
		name = fmt.Sprintf("node_%d", idx)
	}

	kind := threemf.KindEmpty
	switch {
	case node.Mesh != nil || len(node.Children) > 0:
		kind = threemf.KindMesh
	case node.Camera != nil:
		kind = threemf.KindCamera
	}

	obj := scene.NewObject(name, kind).SetLocal(localMatrix(node))
	for _, entry := range extrasMetadata(node.Extras) {
		obj.SetMetadata(entry)
	}

	if node.Mesh != nil {
		mesh, materials, err := c.mesh(*node.Mesh)
		if err != nil {
			return nil, errors.Wrapf(err, "node %q", name)
		}
		obj.SetMesh(mesh)
		for _, m := range materials {
			obj.AddMaterial(m)
		}
		obj.AddModifier(scene.DropDegenerate)
	}

	for _, childIdx := range node.Children {
		child, err := c.object(childIdx)
		if err != nil {
			return nil, err
		}
		if child != nil {
			obj.AddChild(child)
		}
	}
	return obj, nil
}

// mesh merges the triangle primitives of a glTF mesh. Each referenced glTF
// material becomes one material slot.
func (c *converter) mesh(idx uint32) (*threemf.Mesh, []threemf.Material, error) {
	if int(idx) >= len(c.doc.Meshes) {
		return nil, nil, errors.Errorf("mesh index %d out of range", idx)
	}
	src := c.doc.Meshes[idx]
	mesh := &threemf.Mesh{
		Name:     src.Name,
		Metadata: extrasMetadata(src.Extras),
	}
	var materials []threemf.Material
	slots := make(map[uint32]int)

	for i, prim := range src.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles {
			c.log.Warn("skipping non-triangle primitive",
				zap.String("mesh", src.Name), zap.Int("primitive", i))
			continue
		}
		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok || int(posIdx) >= len(c.doc.Accessors) {
			c.log.Warn("skipping primitive without positions",
				zap.String("mesh", src.Name), zap.Int("primitive", i))
			continue
		}
		positions, err := modeler.ReadPosition(c.doc, c.doc.Accessors[posIdx], nil)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "reading positions of primitive %d", i)
		}

		var indices []uint32
		if prim.Indices != nil {
			if int(*prim.Indices) >= len(c.doc.Accessors) {
				return nil, nil, errors.Errorf("primitive %d: indices accessor out of range", i)
			}
			indices, err = modeler.ReadIndices(c.doc, c.doc.Accessors[*prim.Indices], nil)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "reading indices of primitive %d", i)
			}
		} else {
			indices = make([]uint32, len(positions))
			for j := range indices {
				indices[j] = uint32(j)
			}
		}

		slot := threemf.NoMaterial
		if prim.Material != nil {
			s, seen := slots[*prim.Material]
			if !seen {
				s = len(materials)
				slots[*prim.Material] = s
				materials = append(materials, c.material(*prim.Material))
			}
			slot = s
		}

		base := len(mesh.Vertices)
		for _, p := range positions {
			mesh.Vertices = append(mesh.Vertices, threemf.Vertex{float64(p[0]), float64(p[1]), float64(p[2])})
		}
		for j := 0; j+2 < len(indices); j += 3 {
			mesh.Triangles = append(mesh.Triangles, threemf.Triangle{
				V:        [3]int{base + int(indices[j]), base + int(indices[j+1]), base + int(indices[j+2])},
				Material: slot,
			})
		}
	}
	return mesh, materials, nil
}

func (c *converter) material(idx uint32) threemf.Material {
	m := threemf.Material{
		Name:  fmt.Sprintf("material_%d", idx),
		Color: [4]float64{1, 1, 1, 1},
	}
	if int(idx) >= len(c.doc.Materials) {
		return m
	}
	src := c.doc.Materials[idx]
	if src.Name != "" {
		m.Name = src.Name
	}
	if pbr := src.PBRMetallicRoughness; pbr != nil && pbr.BaseColorFactor != nil {
		for i, v := range pbr.BaseColorFactor {
			m.Color[i] = float64(v)
		}
	}
	return m
}

// localMatrix returns the node's matrix, or its translation, rotation and
// scale composed as T * R * S when the matrix is unset or the identity.
func localMatrix(node *gltf.Node) mgl64.Mat4 {
	var m mgl64.Mat4
	for i, v := range node.Matrix {
		m[i] = float64(v)
	}
	if m != (mgl64.Mat4{}) && !m.ApproxEqual(mgl64.Ident4()) {
		return m
	}

	t := node.TranslationOrDefault()
	r := node.RotationOrDefault()
	s := node.ScaleOrDefault()
	q := mgl64.Quat{W: float64(r[3]), V: mgl64.Vec3{float64(r[0]), float64(r[1]), float64(r[2])}}
	if q.Len() < 1e-9 {
		q = mgl64.QuatIdent()
	}
	return mgl64.Translate3D(float64(t[0]), float64(t[1]), float64(t[2])).
		Mul4(q.Normalize().Mat4()).
		Mul4(mgl64.Scale3D(float64(s[0]), float64(s[1]), float64(s[2])))
}

// extrasMetadata turns a JSON object of extras into metadata entries, sorted
// by key. Anything other than an object is ignored.
func extrasMetadata(extras interface{}) []threemf.MetadataEntry {
	fields, ok := extras.(map[string]interface{})
	if !ok || len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]threemf.MetadataEntry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, threemf.MetadataEntry{Name: k, Value: fmt.Sprint(fields[k])})
	}
	return entries
}
