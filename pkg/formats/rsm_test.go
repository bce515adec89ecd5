package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/Faultbox/midgard3mf/pkg/encoding"
)

func TestParseRSM_MagicValidation(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{
			name:    "valid magic",
			data:    makeRSMHeader("GRSM", 1, 5),
			wantErr: nil,
		},
		{
			name:    "invalid magic",
			data:    makeRSMHeader("XXXX", 1, 5),
			wantErr: ErrInvalidRSMMagic,
		},
		{
			name:    "empty data",
			data:    []byte{},
			wantErr: ErrTruncatedRSMData,
		},
		{
			name:    "truncated data",
			data:    []byte{'G', 'R', 'S'},
			wantErr: ErrTruncatedRSMData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRSM(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseRSM() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseRSM_VersionSupport(t *testing.T) {
	tests := []struct {
		name    string
		major   uint8
		minor   uint8
		wantErr bool
	}{
		{"v1.1", 1, 1, false},
		{"v1.2", 1, 2, false},
		{"v1.3", 1, 3, false},
		{"v1.4", 1, 4, false},
		{"v1.5", 1, 5, false},
		{"v2.1", 2, 1, false},
		{"v2.2", 2, 2, false},
		{"v2.3", 2, 3, false},
		{"v0.1 unsupported", 0, 1, true},
		{"v3.0 unsupported", 3, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := newRSMBuilder(tt.major, tt.minor).bytes()
			_, err := ParseRSM(data)
			if (err != nil) != tt.wantErr {
				t.Errorf("version %d.%d: got error=%v, wantErr=%v", tt.major, tt.minor, err, tt.wantErr)
			}
		})
	}
}

func TestRSMVersion_String(t *testing.T) {
	tests := []struct {
		version RSMVersion
		want    string
	}{
		{RSMVersion{1, 5}, "1.5"},
		{RSMVersion{2, 3}, "2.3"},
		{RSMVersion{1, 1}, "1.1"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.version.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRSMVersion_AtLeast(t *testing.T) {
	tests := []struct {
		version RSMVersion
		major   uint8
		minor   uint8
		want    bool
	}{
		{RSMVersion{1, 5}, 1, 5, true},
		{RSMVersion{1, 5}, 1, 4, true},
		{RSMVersion{1, 5}, 1, 2, true},
		{RSMVersion{1, 5}, 1, 6, false},
		{RSMVersion{1, 5}, 2, 0, false},
		{RSMVersion{2, 3}, 1, 9, true},
		{RSMVersion{2, 3}, 2, 2, true},
		{RSMVersion{2, 3}, 2, 4, false},
	}

	for _, tt := range tests {
		t.Run(tt.version.String(), func(t *testing.T) {
			if got := tt.version.AtLeast(tt.major, tt.minor); got != tt.want {
				t.Errorf("AtLeast(%d, %d) = %v, want %v", tt.major, tt.minor, got, tt.want)
			}
		})
	}
}

func TestRSMShadingType_String(t *testing.T) {
	tests := []struct {
		shading RSMShadingType
		want    string
	}{
		{RSMShadingNone, "None"},
		{RSMShadingFlat, "Flat"},
		{RSMShadingSmooth, "Smooth"},
		{RSMShadingType(99), "Unknown(99)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.shading.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseRSM_UnsupportedVersionIsSentinel(t *testing.T) {
	_, err := ParseRSM(newRSMBuilder(3, 0).bytes())
	if !errors.Is(err, ErrUnsupportedRSMVersion) {
		t.Errorf("error = %v, want ErrUnsupportedRSMVersion", err)
	}
}

func TestParseRSM_V15_Structure(t *testing.T) {
	b := newRSMBuilder(1, 5)
	b.shading = RSMShadingSmooth
	b.textures = []string{"test.bmp"}
	b.root = "root"
	b.nodes = []testRSMNode{triangleNode("root", "")}

	rsm, err := ParseRSM(b.bytes())
	if err != nil {
		t.Fatalf("ParseRSM failed: %v", err)
	}

	if rsm.Version != (RSMVersion{1, 5}) {
		t.Errorf("version mismatch: got %s", rsm.Version)
	}
	if rsm.Shading != RSMShadingSmooth {
		t.Errorf("Shading = %s, want Smooth", rsm.Shading)
	}
	if len(rsm.Textures) != 1 || rsm.Textures[0] != "test.bmp" {
		t.Errorf("Textures = %q, want [test.bmp]", rsm.Textures)
	}
	if rsm.RootNode != "root" {
		t.Errorf("RootNode = %q, want %q", rsm.RootNode, "root")
	}
	if len(rsm.Nodes) != 1 {
		t.Fatalf("node count = %d, want 1", len(rsm.Nodes))
	}
}

func TestParseRSM_NodeGeometry(t *testing.T) {
	b := newRSMBuilder(1, 5)
	b.textures = []string{"a.bmp", "b.bmp"}
	node := triangleNode("root", "")
	node.Position = [3]float32{1, 2, 3}
	node.RotAngle = 0.5
	node.RotAxis = [3]float32{0, 1, 0}
	node.Faces[0].TwoSide = 1
	node.Faces[0].TextureID = 1
	node.TextureIDs = []int32{1, 0}
	node.ScaleKeys = []RSMScaleKeyframe{{Frame: 0, Scale: [3]float32{2, 2, 2}}}
	node.RotKeys = []RSMRotKeyframe{{Frame: 0, Quaternion: [4]float32{0, 0, 0, 1}}}
	b.nodes = []testRSMNode{node}

	rsm, err := ParseRSM(b.bytes())
	if err != nil {
		t.Fatalf("ParseRSM failed: %v", err)
	}
	got := rsm.Nodes[0]

	if got.Position != node.Position || got.RotAngle != 0.5 || got.RotAxis != node.RotAxis {
		t.Errorf("transform = %v %v %v", got.Position, got.RotAngle, got.RotAxis)
	}
	if len(got.Vertices) != 3 || got.Vertices[1] != [3]float32{1, 0, 0} {
		t.Errorf("Vertices = %v", got.Vertices)
	}
	if len(got.TexCoords) != 1 || got.TexCoords[0].Color != [4]uint8{255, 255, 255, 255} {
		t.Errorf("TexCoords = %+v", got.TexCoords)
	}
	if len(got.Faces) != 1 {
		t.Fatalf("Faces = %+v", got.Faces)
	}
	face := got.Faces[0]
	if face.VertexIDs != [3]uint16{0, 1, 2} || face.TextureID != 1 || !face.DoubleSided() {
		t.Errorf("face = %+v", face)
	}
	if len(got.TextureIDs) != 2 || got.TextureIDs[0] != 1 {
		t.Errorf("TextureIDs = %v", got.TextureIDs)
	}
	if len(got.ScaleKeys) != 1 || got.ScaleKeys[0].Scale != [3]float32{2, 2, 2} {
		t.Errorf("ScaleKeys = %+v", got.ScaleKeys)
	}
	if len(got.PosKeys) != 0 {
		t.Errorf("v1.5 should have no position keys, got %+v", got.PosKeys)
	}
	if !rsm.HasAnimation() {
		t.Error("HasAnimation() = false, want true")
	}
}

func TestParseRSM_V11_PositionKeys(t *testing.T) {
	b := newRSMBuilder(1, 1)
	node := triangleNode("root", "")
	node.PosKeys = []RSMPosKeyframe{{Frame: 10, Position: [3]float32{4, 5, 6}}}
	b.nodes = []testRSMNode{node}

	rsm, err := ParseRSM(b.bytes())
	if err != nil {
		t.Fatalf("ParseRSM failed: %v", err)
	}
	got := rsm.Nodes[0]
	if len(got.PosKeys) != 1 || got.PosKeys[0].Frame != 10 {
		t.Errorf("PosKeys = %+v", got.PosKeys)
	}
	if got.Faces[0].SmoothGroup != 0 {
		t.Errorf("v1.1 faces have no smooth group, got %d", got.Faces[0].SmoothGroup)
	}
}

func TestParseRSM_TruncatedNode(t *testing.T) {
	b := newRSMBuilder(1, 5)
	b.nodes = []testRSMNode{triangleNode("root", "")}
	data := b.bytes()

	_, err := ParseRSM(data[:len(data)-10])
	if !errors.Is(err, ErrTruncatedRSMData) {
		t.Errorf("error = %v, want ErrTruncatedRSMData", err)
	}
}

func TestParseRSM_InvalidNodeCount(t *testing.T) {
	b := newRSMBuilder(1, 5)
	b.nodeCount = -1

	_, err := ParseRSM(b.bytes())
	if !errors.Is(err, ErrInvalidNodeCount) {
		t.Errorf("error = %v, want ErrInvalidNodeCount", err)
	}
}

func TestParseRSM_KoreanNames(t *testing.T) {
	b := newRSMBuilder(1, 5)
	b.root = "나무"
	b.nodes = []testRSMNode{triangleNode("나무", "")}

	rsm, err := ParseRSM(b.bytes())
	if err != nil {
		t.Fatalf("ParseRSM failed: %v", err)
	}
	if rsm.RootNode != "나무" || rsm.Nodes[0].Name != "나무" {
		t.Errorf("names = %q, %q", rsm.RootNode, rsm.Nodes[0].Name)
	}
}

func TestParseRSM_VolumeBoxes(t *testing.T) {
	b := newRSMBuilder(1, 5)
	b.boxes = []RSMVolumeBox{{Size: [3]float32{1, 2, 3}, Flag: 1}}

	rsm, err := ParseRSM(b.bytes())
	if err != nil {
		t.Fatalf("ParseRSM failed: %v", err)
	}
	if len(rsm.VolumeBoxes) != 1 || rsm.VolumeBoxes[0].Size != [3]float32{1, 2, 3} || rsm.VolumeBoxes[0].Flag != 1 {
		t.Errorf("VolumeBoxes = %+v", rsm.VolumeBoxes)
	}
}

func TestParseRSM_V14_Alpha(t *testing.T) {
	b := newRSMBuilder(1, 4)
	b.alpha = 128

	rsm, err := ParseRSM(b.bytes())
	if err != nil {
		t.Fatalf("ParseRSM failed: %v", err)
	}

	expectedAlpha := float32(128) / 255.0
	if rsm.Alpha < expectedAlpha-0.01 || rsm.Alpha > expectedAlpha+0.01 {
		t.Errorf("Alpha = %f, want ~%f", rsm.Alpha, expectedAlpha)
	}
}

func TestParseRSM_V13_NoAlpha(t *testing.T) {
	rsm, err := ParseRSM(newRSMBuilder(1, 3).bytes())
	if err != nil {
		t.Fatalf("ParseRSM failed: %v", err)
	}

	if rsm.Alpha != 1.0 {
		t.Errorf("Alpha = %f, want 1.0 (default for v1.3)", rsm.Alpha)
	}
}

func TestRSM_Counts(t *testing.T) {
	rsm := &RSM{
		Nodes: []RSMNode{
			{Vertices: make([][3]float32, 10), Faces: make([]RSMFace, 10)},
			{Vertices: make([][3]float32, 20), Faces: make([]RSMFace, 20)},
			{Vertices: make([][3]float32, 5)},
		},
	}

	if got := rsm.VertexCount(); got != 35 {
		t.Errorf("VertexCount() = %d, want 35", got)
	}
	if got := rsm.FaceCount(); got != 30 {
		t.Errorf("FaceCount() = %d, want 30", got)
	}
}

func TestRSM_NodeByName(t *testing.T) {
	rsm := &RSM{
		Nodes: []RSMNode{
			{Name: "root"},
			{Name: "child1"},
			{Name: "child2"},
		},
	}

	node := rsm.NodeByName("child1")
	if node == nil {
		t.Fatal("NodeByName returned nil for existing node")
	}
	if node.Name != "child1" {
		t.Errorf("node.Name = %q, want %q", node.Name, "child1")
	}

	if rsm.NodeByName("nonexistent") != nil {
		t.Error("NodeByName returned non-nil for nonexistent node")
	}
}

func TestRSM_Root(t *testing.T) {
	tests := []struct {
		name string
		rsm  *RSM
		want string
	}{
		{
			name: "named root",
			rsm:  &RSM{RootNode: "main", Nodes: []RSMNode{{Name: "other"}, {Name: "main"}}},
			want: "main",
		},
		{
			name: "first parentless node",
			rsm:  &RSM{RootNode: "missing", Nodes: []RSMNode{{Name: "a", Parent: "b"}, {Name: "b"}}},
			want: "b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := tt.rsm.Root()
			if root == nil || root.Name != tt.want {
				t.Errorf("Root() = %+v, want %q", root, tt.want)
			}
		})
	}

	if (&RSM{}).Root() != nil {
		t.Error("Root() of an empty model should be nil")
	}
}

func TestRSM_ChildrenOf(t *testing.T) {
	rsm := &RSM{
		Nodes: []RSMNode{
			{Name: "root", Parent: ""},
			{Name: "child1", Parent: "root"},
			{Name: "child2", Parent: "root"},
			{Name: "grandchild", Parent: "child1"},
			{Name: "loop", Parent: "loop"},
		},
	}

	if got := len(rsm.ChildrenOf("root")); got != 2 {
		t.Errorf("got %d children, want 2", got)
	}
	if got := len(rsm.ChildrenOf("child1")); got != 1 {
		t.Errorf("got %d children of child1, want 1", got)
	}
	if got := len(rsm.ChildrenOf("nonexistent")); got != 0 {
		t.Errorf("got %d children of nonexistent, want 0", got)
	}
	if got := len(rsm.ChildrenOf("loop")); got != 0 {
		t.Errorf("self-parented node listed as its own child")
	}
}

func TestRSM_HasAnimation(t *testing.T) {
	tests := []struct {
		name  string
		nodes []RSMNode
		want  bool
	}{
		{"no animation", []RSMNode{{Name: "node"}}, false},
		{"has rotation keys", []RSMNode{{Name: "node", RotKeys: []RSMRotKeyframe{{Frame: 0}}}}, true},
		{"has position keys", []RSMNode{{Name: "node", PosKeys: []RSMPosKeyframe{{Frame: 0}}}}, true},
		{"has scale keys", []RSMNode{{Name: "node", ScaleKeys: []RSMScaleKeyframe{{Frame: 0}}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rsm := &RSM{Nodes: tt.nodes}
			if got := rsm.HasAnimation(); got != tt.want {
				t.Errorf("HasAnimation() = %v, want %v", got, tt.want)
			}
		})
	}
}

// Helper functions for creating test data

func makeRSMHeader(magic string, major, minor uint8) []byte {
	data := make([]byte, 200)
	copy(data[0:4], magic)
	data[4] = major
	data[5] = minor
	return data
}

type testRSMNode = RSMNode

func triangleNode(name, parent string) testRSMNode {
	return testRSMNode{
		Name:      name,
		Parent:    parent,
		Matrix:    [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1},
		Scale:     [3]float32{1, 1, 1},
		Vertices:  [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		TexCoords: []RSMTexCoord{{Color: [4]uint8{255, 255, 255, 255}}},
		Faces:     []RSMFace{{VertexIDs: [3]uint16{0, 1, 2}}},
	}
}

// rsmBuilder serializes a model in the on-disk layout for its version.
type rsmBuilder struct {
	version   RSMVersion
	shading   RSMShadingType
	alpha     uint8
	textures  []string
	root      string
	nodes     []testRSMNode
	nodeCount int32 // overrides len(nodes) when non-zero
	boxes     []RSMVolumeBox
}

func newRSMBuilder(major, minor uint8) *rsmBuilder {
	return &rsmBuilder{version: RSMVersion{major, minor}, alpha: 255}
}

func (b *rsmBuilder) bytes() []byte {
	var buf bytes.Buffer
	w := func(v interface{}) { binary.Write(&buf, binary.LittleEndian, v) }

	buf.WriteString("GRSM")
	w(b.version.Major)
	w(b.version.Minor)
	w(int32(0)) // animation length
	w(int32(b.shading))
	if b.version.AtLeast(1, 4) {
		w(b.alpha)
	}
	buf.Write(make([]byte, 16))

	w(int32(len(b.textures)))
	for _, tex := range b.textures {
		buf.Write(encoding.UTF8ToFixedString(tex, 40))
	}
	buf.Write(encoding.UTF8ToFixedString(b.root, 40))

	count := int32(len(b.nodes))
	if b.nodeCount != 0 {
		count = b.nodeCount
	}
	w(count)
	for _, n := range b.nodes {
		b.writeNode(&buf, n)
	}

	w(int32(len(b.boxes)))
	for _, box := range b.boxes {
		w(box.Size)
		w(box.Position)
		w(box.Rotation)
		if b.version.AtLeast(1, 3) {
			w(box.Flag)
		}
	}
	return buf.Bytes()
}

func (b *rsmBuilder) writeNode(buf *bytes.Buffer, n testRSMNode) {
	w := func(v interface{}) { binary.Write(buf, binary.LittleEndian, v) }

	buf.Write(encoding.UTF8ToFixedString(n.Name, 40))
	buf.Write(encoding.UTF8ToFixedString(n.Parent, 40))
	w(int32(len(n.TextureIDs)))
	w(n.TextureIDs)
	w(n.Matrix)
	w(n.Offset)
	w(n.Position)
	w(n.RotAngle)
	w(n.RotAxis)
	w(n.Scale)

	w(int32(len(n.Vertices)))
	w(n.Vertices)

	w(int32(len(n.TexCoords)))
	for _, tc := range n.TexCoords {
		if b.version.AtLeast(1, 2) {
			w(tc.Color)
		}
		w(tc.U)
		w(tc.V)
	}

	w(int32(len(n.Faces)))
	for _, f := range n.Faces {
		w(f.VertexIDs)
		w(f.TexCoordIDs)
		w(f.TextureID)
		w(uint16(0))
		w(f.TwoSide)
		if b.version.AtLeast(1, 2) {
			w(f.SmoothGroup)
		}
	}

	if !b.version.AtLeast(1, 5) {
		w(int32(len(n.PosKeys)))
		for _, k := range n.PosKeys {
			w(k.Frame)
			w(k.Position)
		}
	}
	w(int32(len(n.RotKeys)))
	for _, k := range n.RotKeys {
		w(k.Frame)
		w(k.Quaternion)
	}
	if b.version.AtLeast(1, 5) {
		w(int32(len(n.ScaleKeys)))
		for _, k := range n.ScaleKeys {
			w(k.Frame)
			w(k.Scale)
		}
	}
}
