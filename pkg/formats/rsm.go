package formats

import (
	"errors"
	"fmt"
	"os"
)

// RSM format errors.
var (
	ErrInvalidRSMMagic       = errors.New("invalid RSM magic: expected 'GRSM'")
	ErrUnsupportedRSMVersion = errors.New("unsupported RSM version")
	ErrTruncatedRSMData      = errors.New("truncated RSM data")
	ErrInvalidNodeCount      = errors.New("invalid RSM node count")
)

const (
	rsmMagic      = "GRSM"
	rsmNameLength = 40
	rsmHeaderSize = 14

	maxRSMNodes     = 10000
	maxRSMTextures  = 1000
	maxRSMElements  = 100000
	maxRSMKeyframes = 10000
	maxRSMBoxes     = 1000
)

// RSMVersion represents the RSM file version.
type RSMVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v RSMVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast returns true if version is >= major.minor.
func (v RSMVersion) AtLeast(major, minor uint8) bool {
	return v.Major > major || (v.Major == major && v.Minor >= minor)
}

// RSMShadingType represents the shading mode for rendering.
type RSMShadingType int32

const (
	RSMShadingNone   RSMShadingType = 0
	RSMShadingFlat   RSMShadingType = 1
	RSMShadingSmooth RSMShadingType = 2
)

// String returns a human-readable shading type name.
func (s RSMShadingType) String() string {
	switch s {
	case RSMShadingNone:
		return "None"
	case RSMShadingFlat:
		return "Flat"
	case RSMShadingSmooth:
		return "Smooth"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// RSMTexCoord is a texture coordinate with its vertex colour.
type RSMTexCoord struct {
	Color [4]uint8 // v1.2+, opaque white before
	U, V  float32
}

// RSMFace is a triangle.
type RSMFace struct {
	VertexIDs   [3]uint16
	TexCoordIDs [3]uint16
	TextureID   uint16 // index into the node's TextureIDs
	TwoSide     int32
	SmoothGroup int32 // v1.2+
}

// DoubleSided reports whether the face is visible from both sides.
func (f RSMFace) DoubleSided() bool {
	return f.TwoSide != 0
}

// RSMPosKeyframe is a position keyframe (before v1.5).
type RSMPosKeyframe struct {
	Frame    int32
	Position [3]float32
}

// RSMRotKeyframe is a rotation keyframe stored as an X, Y, Z, W quaternion.
type RSMRotKeyframe struct {
	Frame      int32
	Quaternion [4]float32
}

// RSMScaleKeyframe is a scale keyframe (v1.5+).
type RSMScaleKeyframe struct {
	Frame int32
	Scale [3]float32
}

// RSMNode is one mesh node of the model hierarchy.
type RSMNode struct {
	Name       string
	Parent     string // empty for the root
	TextureIDs []int32

	// Matrix is a column-major 3x3 applied to vertices together with Offset.
	Matrix   [9]float32
	Offset   [3]float32
	Position [3]float32
	RotAngle float32 // radians
	RotAxis  [3]float32
	Scale    [3]float32

	Vertices  [][3]float32
	TexCoords []RSMTexCoord
	Faces     []RSMFace

	PosKeys   []RSMPosKeyframe
	RotKeys   []RSMRotKeyframe
	ScaleKeys []RSMScaleKeyframe
}

// RSMVolumeBox is a collision volume.
type RSMVolumeBox struct {
	Size     [3]float32
	Position [3]float32
	Rotation [3]float32
	Flag     int32 // v1.3+
}

// RSM is a parsed RSM (Resource Model) file.
type RSM struct {
	Version     RSMVersion
	AnimLength  int32 // milliseconds
	Shading     RSMShadingType
	Alpha       float32 // 0-1
	Textures    []string
	RootNode    string
	Nodes       []RSMNode
	VolumeBoxes []RSMVolumeBox
}

// ParseRSM parses RSM data from a byte slice. Names are decoded from EUC-KR.
func ParseRSM(data []byte) (*RSM, error) {
	if len(data) < rsmHeaderSize {
		return nil, ErrTruncatedRSMData
	}
	if string(data[:4]) != rsmMagic {
		return nil, ErrInvalidRSMMagic
	}

	r := newBinaryReader(data[4:], ErrTruncatedRSMData)
	rsm := &RSM{
		Version: RSMVersion{Major: r.uint8(), Minor: r.uint8()},
		Alpha:   1.0,
	}
	if rsm.Version.Major < 1 || rsm.Version.Major > 2 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRSMVersion, rsm.Version)
	}

	rsm.AnimLength = r.int32()
	rsm.Shading = RSMShadingType(r.int32())
	if rsm.Version.AtLeast(1, 4) {
		rsm.Alpha = float32(r.uint8()) / 255.0
	}
	r.skip(16) // reserved

	textureCount, err := r.count(maxRSMTextures)
	if err != nil {
		return nil, fmt.Errorf("texture count: %w", err)
	}
	rsm.Textures = make([]string, textureCount)
	for i := range rsm.Textures {
		rsm.Textures[i] = r.name(rsmNameLength)
	}
	rsm.RootNode = r.name(rsmNameLength)

	nodeCount := r.int32()
	if r.err != nil {
		return nil, ErrTruncatedRSMData
	}
	if nodeCount < 0 || nodeCount > maxRSMNodes {
		return nil, ErrInvalidNodeCount
	}

	rsm.Nodes = make([]RSMNode, nodeCount)
	for i := range rsm.Nodes {
		if err := parseRSMNode(r, rsm.Version, &rsm.Nodes[i]); err != nil {
			return nil, fmt.Errorf("parsing node %d: %w", i, err)
		}
	}

	// Volume boxes are optional trailing data.
	if r.remaining() >= 4 {
		boxCount := r.int32()
		if boxCount > 0 && boxCount < maxRSMBoxes {
			boxes := make([]RSMVolumeBox, boxCount)
			for i := range boxes {
				r.float32s(boxes[i].Size[:])
				r.float32s(boxes[i].Position[:])
				r.float32s(boxes[i].Rotation[:])
				if rsm.Version.AtLeast(1, 3) {
					boxes[i].Flag = r.int32()
				}
			}
			if r.err == nil {
				rsm.VolumeBoxes = boxes
			}
		}
	}

	return rsm, nil
}

func parseRSMNode(r *binaryReader, version RSMVersion, node *RSMNode) error {
	node.Name = r.name(rsmNameLength)
	node.Parent = r.name(rsmNameLength)

	textureCount, err := r.count(maxRSMTextures)
	if err != nil {
		return fmt.Errorf("texture count: %w", err)
	}
	node.TextureIDs = make([]int32, textureCount)
	for i := range node.TextureIDs {
		node.TextureIDs[i] = r.int32()
	}

	r.float32s(node.Matrix[:])
	r.float32s(node.Offset[:])
	r.float32s(node.Position[:])
	node.RotAngle = r.float32()
	r.float32s(node.RotAxis[:])
	r.float32s(node.Scale[:])

	vertexCount, err := r.count(maxRSMElements)
	if err != nil {
		return fmt.Errorf("vertex count: %w", err)
	}
	node.Vertices = make([][3]float32, vertexCount)
	for i := range node.Vertices {
		r.float32s(node.Vertices[i][:])
	}

	texCoordCount, err := r.count(maxRSMElements)
	if err != nil {
		return fmt.Errorf("texture coordinate count: %w", err)
	}
	node.TexCoords = make([]RSMTexCoord, texCoordCount)
	for i := range node.TexCoords {
		tc := &node.TexCoords[i]
		if version.AtLeast(1, 2) {
			r.bytes(tc.Color[:])
		} else {
			tc.Color = [4]uint8{255, 255, 255, 255}
		}
		tc.U = r.float32()
		tc.V = r.float32()
	}

	faceCount, err := r.count(maxRSMElements)
	if err != nil {
		return fmt.Errorf("face count: %w", err)
	}
	node.Faces = make([]RSMFace, faceCount)
	for i := range node.Faces {
		face := &node.Faces[i]
		r.uint16s(face.VertexIDs[:])
		r.uint16s(face.TexCoordIDs[:])
		face.TextureID = r.uint16()
		r.skip(2) // padding
		face.TwoSide = r.int32()
		if version.AtLeast(1, 2) {
			face.SmoothGroup = r.int32()
		}
	}

	if !version.AtLeast(1, 5) {
		n, err := r.count(maxRSMKeyframes)
		if err != nil {
			return fmt.Errorf("position keyframe count: %w", err)
		}
		node.PosKeys = make([]RSMPosKeyframe, n)
		for i := range node.PosKeys {
			node.PosKeys[i].Frame = r.int32()
			r.float32s(node.PosKeys[i].Position[:])
		}
	}

	n, err := r.count(maxRSMKeyframes)
	if err != nil {
		return fmt.Errorf("rotation keyframe count: %w", err)
	}
	node.RotKeys = make([]RSMRotKeyframe, n)
	for i := range node.RotKeys {
		node.RotKeys[i].Frame = r.int32()
		r.float32s(node.RotKeys[i].Quaternion[:])
	}

	if version.AtLeast(1, 5) {
		n, err := r.count(maxRSMKeyframes)
		if err != nil {
			return fmt.Errorf("scale keyframe count: %w", err)
		}
		node.ScaleKeys = make([]RSMScaleKeyframe, n)
		for i := range node.ScaleKeys {
			node.ScaleKeys[i].Frame = r.int32()
			r.float32s(node.ScaleKeys[i].Scale[:])
		}
	}

	if r.err != nil {
		return ErrTruncatedRSMData
	}
	return nil
}

// ParseRSMFile parses an RSM file from disk.
func ParseRSMFile(path string) (*RSM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading RSM file: %w", err)
	}
	return ParseRSM(data)
}

// VertexCount returns the number of vertices across all nodes.
func (rsm *RSM) VertexCount() int {
	total := 0
	for _, node := range rsm.Nodes {
		total += len(node.Vertices)
	}
	return total
}

// FaceCount returns the number of faces across all nodes.
func (rsm *RSM) FaceCount() int {
	total := 0
	for _, node := range rsm.Nodes {
		total += len(node.Faces)
	}
	return total
}

// NodeByName returns the first node called name, or nil.
func (rsm *RSM) NodeByName(name string) *RSMNode {
	for i := range rsm.Nodes {
		if rsm.Nodes[i].Name == name {
			return &rsm.Nodes[i]
		}
	}
	return nil
}

// Root returns the node named by RootNode, falling back to the first
// parentless node.
func (rsm *RSM) Root() *RSMNode {
	if node := rsm.NodeByName(rsm.RootNode); node != nil {
		return node
	}
	for i := range rsm.Nodes {
		if rsm.Nodes[i].Parent == "" {
			return &rsm.Nodes[i]
		}
	}
	return nil
}

// ChildrenOf returns the nodes whose parent is called parentName. A node is
// never its own child.
func (rsm *RSM) ChildrenOf(parentName string) []*RSMNode {
	var children []*RSMNode
	for i := range rsm.Nodes {
		n := &rsm.Nodes[i]
		if n.Parent == parentName && n.Name != parentName {
			children = append(children, n)
		}
	}
	return children
}

// HasAnimation returns true if the model has any animation keyframes.
func (rsm *RSM) HasAnimation() bool {
	for _, node := range rsm.Nodes {
		if len(node.PosKeys) > 0 || len(node.RotKeys) > 0 || len(node.ScaleKeys) > 0 {
			return true
		}
	}
	return false
}
