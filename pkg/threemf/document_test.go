package threemf

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/go-cmp/cmp"
)

func TestDocument_WriteObjects(t *testing.T) {
	tests := []struct {
		name      string
		nodes     func() []Node
		wantItems int
		wantObjs  int
	}{
		{
			name:      "none",
			nodes:     func() []Node { return nil },
			wantItems: 0,
			wantObjs:  0,
		},
		{
			name: "single",
			nodes: func() []Node {
				return []Node{newFake("a", KindMesh)}
			},
			wantItems: 1,
			wantObjs:  1,
		},
		{
			name: "nested",
			nodes: func() []Node {
				parent := newFake("parent", KindMesh)
				child := parent.add(newFake("child", KindMesh))
				return []Node{parent, child}
			},
			wantItems: 1,
			wantObjs:  2,
		},
		{
			name: "object types",
			nodes: func() []Node {
				return []Node{
					newFake("mesh", KindMesh),
					newFake("empty", KindEmpty),
					newFake("camera", KindCamera),
					newFake("light", KindLight),
					newFake("curve", KindCurve),
					newFake("armature", KindArmature),
				}
			},
			wantItems: 1,
			wantObjs:  1,
		},
		{
			name: "multiple",
			nodes: func() []Node {
				return []Node{newFake("a", KindMesh), newFake("b", KindMesh), newFake("c", KindMesh)}
			},
			wantItems: 3,
			wantObjs:  3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := NewDocument(DefaultOptions(), nil)
			doc.WriteObjects(tt.nodes(), 1)

			if got := doc.ItemCount(); got != tt.wantItems {
				t.Errorf("items = %d, want %d", got, tt.wantItems)
			}
			if got := len(doc.Model.Resources.Objects); got != tt.wantObjs {
				t.Errorf("objects = %d, want %d", got, tt.wantObjs)
			}
			for _, item := range doc.Model.Build.Items {
				found := false
				for _, o := range doc.Model.Resources.Objects {
					found = found || o.ID == item.ObjectID
				}
				if !found {
					t.Errorf("item references missing object %d", item.ObjectID)
				}
			}
		})
	}
}

func TestDocument_WriteObjectsUniqueIDs(t *testing.T) {
	var nodes []Node
	for i := 0; i < 400; i++ {
		n := newFake(fmt.Sprintf("flat%d", i), KindMesh)
		n.mesh = triangleMesh(n.name)
		nodes = append(nodes, n)
	}
	for i := 0; i < 100; i++ {
		var parent *fakeNode
		for depth := 0; depth < 8; depth++ {
			n := newFake(fmt.Sprintf("chain%d_%d", i, depth), KindMesh)
			n.mesh = triangleMesh(n.name)
			if parent != nil {
				parent.add(n)
			}
			parent = n
			nodes = append(nodes, n)
		}
	}

	doc := NewDocument(DefaultOptions(), nil)
	doc.WriteObjects(nodes, 1)

	// Chain nodes with a child split into a components object and a mesh
	// object: 400 + 100*(7*2+1).
	objects := doc.Model.Resources.Objects
	if len(objects) != 1900 {
		t.Fatalf("objects = %d, want 1900", len(objects))
	}
	if got := doc.ItemCount(); got != 500 {
		t.Errorf("items = %d, want 500", got)
	}

	defined := make(map[int]bool)
	for _, o := range objects {
		if o.ID <= 0 {
			t.Fatalf("object id %d is not positive", o.ID)
		}
		if defined[o.ID] {
			t.Fatalf("object id %d used twice", o.ID)
		}
		if o.Components != nil {
			for _, c := range o.Components.Component {
				if !defined[c.ObjectID] {
					t.Errorf("object %d references %d before it is defined", o.ID, c.ObjectID)
				}
			}
		}
		defined[o.ID] = true
	}
	for _, item := range doc.Model.Build.Items {
		if !defined[item.ObjectID] {
			t.Errorf("item references missing object %d", item.ObjectID)
		}
	}
}

func TestDocument_WriteObjectsTransformation(t *testing.T) {
	const globalScale = 2.0
	node := newFake("moved", KindMesh)
	node.local = mgl64.Translate3D(10, 20, 30)

	doc := NewDocument(DefaultOptions(), nil)
	doc.WriteObjects([]Node{node}, globalScale)

	expected := UniformScale(globalScale).Mul4(mgl64.Translate3D(10, 20, 30))
	cells := strings.Fields(doc.Model.Build.Items[0].Transform)
	if len(cells) != 12 {
		t.Fatalf("transform %q has %d cells, want 12", doc.Model.Build.Items[0].Transform, len(cells))
	}
	i := 0
	for col := 0; col < 4; col++ {
		for row := 0; row < 3; row++ {
			if want := FormatNumber(expected.At(row, col), 4); cells[i] != want {
				t.Errorf("cell (%d,%d) = %q, want %q", row, col, cells[i], want)
			}
			i++
		}
	}
}

func TestDocument_WriteObjectsIdentityItem(t *testing.T) {
	doc := NewDocument(DefaultOptions(), nil)
	doc.WriteObjects([]Node{newFake("a", KindMesh)}, 1)

	if tr := doc.Model.Build.Items[0].Transform; tr != "" {
		t.Errorf("identity item transform = %q, want omitted", tr)
	}
}

func TestDocument_WriteObjectsItemMetadata(t *testing.T) {
	node := newFake("Lincoln", KindMesh)
	node.metadata = []MetadataEntry{{Name: "Description", Value: "Skinny", Datatype: "mostly fur"}}

	doc := NewDocument(DefaultOptions(), nil)
	doc.WriteObjects([]Node{node}, 1)

	want := &MetadataGroup{Metadata: []Metadata{
		{Name: "Title", Type: "xs:string", Preserve: "1", Value: "Lincoln"},
		{Name: "Description", Type: "mostly fur", Value: "Skinny"},
	}}
	if diff := cmp.Diff(want, doc.Model.Build.Items[0].MetadataGroup); diff != "" {
		t.Errorf("item metadata mismatch (-want +got):\n%s", diff)
	}
}

func TestDocument_WriteMaterials(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		doc := NewDocument(DefaultOptions(), nil)
		index := doc.WriteMaterials([]Node{newFake("a", KindMesh)})
		if len(index) != 0 {
			t.Errorf("index = %v, want empty", index)
		}
		if len(doc.Model.Resources.BaseMaterials) != 0 {
			t.Error("no basematerials group should be written")
		}
		if doc.ResourceCount() != 0 {
			t.Errorf("allocated %d ids, want 0", doc.ResourceCount())
		}
	})

	t.Run("dedup in order", func(t *testing.T) {
		a := newFake("a", KindMesh)
		a.materials = []Material{{Name: "red", Color: [4]float64{1, 0, 0, 1}}, {Name: "blue", Color: [4]float64{0, 0, 1, 0.5}}}
		b := newFake("b", KindMesh)
		b.materials = []Material{{Name: "blue"}, {Name: "green", Color: [4]float64{0, 1, 0, 1}}}

		doc := NewDocument(DefaultOptions(), nil)
		index := doc.WriteMaterials([]Node{a, b})

		wantIndex := map[string]int{"red": 0, "blue": 1, "green": 2}
		if diff := cmp.Diff(wantIndex, index); diff != "" {
			t.Errorf("index mismatch (-want +got):\n%s", diff)
		}
		groups := doc.Model.Resources.BaseMaterials
		if len(groups) != 1 {
			t.Fatalf("got %d groups, want 1", len(groups))
		}
		wantBases := []Base{
			{Name: "red", DisplayColor: "#FF0000FF"},
			{Name: "blue", DisplayColor: "#0000FF80"},
			{Name: "green", DisplayColor: "#00FF00FF"},
		}
		if diff := cmp.Diff(wantBases, groups[0].Bases); diff != "" {
			t.Errorf("bases mismatch (-want +got):\n%s", diff)
		}
		if groups[0].ID != 1 {
			t.Errorf("group id = %d, want 1", groups[0].ID)
		}
	})

	t.Run("ids stay unique", func(t *testing.T) {
		a := newFake("a", KindMesh)
		a.materials = []Material{{Name: "red"}}
		a.mesh = triangleMesh("a")
		a.mesh.Triangles[0].Material = 0

		doc := NewDocument(DefaultOptions(), nil)
		doc.WriteMaterials([]Node{a})
		doc.WriteObjects([]Node{a}, 1)

		obj := doc.Model.Resources.Objects[0]
		if obj.ID == doc.Model.Resources.BaseMaterials[0].ID {
			t.Error("object and material group share an id")
		}
		if obj.PID != doc.Model.Resources.BaseMaterials[0].ID || obj.PIndex != "0" {
			t.Errorf("object pid=%d pindex=%q", obj.PID, obj.PIndex)
		}
	})
}

func TestDocument_SceneMetadata(t *testing.T) {
	doc := NewDocument(DefaultOptions(), nil)
	doc.WriteSceneMetadata([]MetadataEntry{
		{Name: "Designer", Value: "Ghent", Preserve: true},
		{Name: "", Value: "ignored"},
	})

	want := []Metadata{{Name: "Designer", Type: "xs:string", Preserve: "1", Value: "Ghent"}}
	if diff := cmp.Diff(want, doc.Model.Metadata); diff != "" {
		t.Errorf("scene metadata mismatch (-want +got):\n%s", diff)
	}
}

func TestDocument_Encode(t *testing.T) {
	node := newFake("Lincoln", KindMesh)
	node.mesh = triangleMesh("Lincoln")
	node.local = mgl64.Translate3D(1, 0, 0)

	doc := NewDocument(DefaultOptions(), nil)
	doc.WriteObjects([]Node{node}, 1)

	var buf bytes.Buffer
	if err := doc.Encode(&buf); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`xmlns="` + CoreNamespace + `"`,
		`unit="millimeter"`,
		`<vertex x="1" y="0" z="0"></vertex>`,
		`<triangle v1="0" v2="1" v3="2"></triangle>`,
		`transform="1 0 0 0 1 0 0 0 1 1 0 0"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("encoded model missing %s\n%s", want, out)
		}
	}

	var decoded Model
	if err := xml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decoding encoded model: %v", err)
	}
	if len(decoded.Resources.Objects) != 1 || len(decoded.Build.Items) != 1 {
		t.Errorf("decoded %d objects and %d items", len(decoded.Resources.Objects), len(decoded.Build.Items))
	}
}

func TestDisplayColor(t *testing.T) {
	tests := []struct {
		in   [4]float64
		want string
	}{
		{[4]float64{0, 0, 0, 0}, "#00000000"},
		{[4]float64{1, 1, 1, 1}, "#FFFFFFFF"},
		{[4]float64{2, -1, 0.5, 1}, "#FF0080FF"},
	}
	for _, tt := range tests {
		if got := displayColor(tt.in); got != tt.want {
			t.Errorf("displayColor(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
