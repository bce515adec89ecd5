package threemf

import "encoding/xml"

// Model is the root element of the 3D model part.
type Model struct {
	XMLName   xml.Name   `xml:"model"`
	Xmlns     string     `xml:"xmlns,attr"`
	Unit      string     `xml:"unit,attr"`
	Lang      string     `xml:"xml:lang,attr,omitempty"`
	Metadata  []Metadata `xml:"metadata"`
	Resources Resources  `xml:"resources"`
	Build     Build      `xml:"build"`
}

type Resources struct {
	BaseMaterials []*BaseMaterials `xml:"basematerials"`
	Objects       []*Object        `xml:"object"`
}

type BaseMaterials struct {
	ID    int    `xml:"id,attr"`
	Bases []Base `xml:"base"`
}

type Base struct {
	Name         string `xml:"name,attr"`
	DisplayColor string `xml:"displaycolor,attr"`
}

type Object struct {
	ID            int            `xml:"id,attr"`
	Type          string         `xml:"type,attr,omitempty"`
	PID           int            `xml:"pid,attr,omitempty"`
	PIndex        string         `xml:"pindex,attr,omitempty"`
	MetadataGroup *MetadataGroup `xml:"metadatagroup"`
	Mesh          *MeshElement   `xml:"mesh"`
	Components    *Components    `xml:"components"`
}

type MeshElement struct {
	Vertices  Vertices  `xml:"vertices"`
	Triangles Triangles `xml:"triangles"`
}

type Vertices struct {
	Vertex []VertexElement `xml:"vertex"`
}

type VertexElement struct {
	X string `xml:"x,attr"`
	Y string `xml:"y,attr"`
	Z string `xml:"z,attr"`
}

type Triangles struct {
	Triangle []TriangleElement `xml:"triangle"`
}

type TriangleElement struct {
	V1  int    `xml:"v1,attr"`
	V2  int    `xml:"v2,attr"`
	V3  int    `xml:"v3,attr"`
	PID int    `xml:"pid,attr,omitempty"`
	P1  string `xml:"p1,attr,omitempty"`
}

type Components struct {
	Component []Component `xml:"component"`
}

type Component struct {
	ObjectID  int    `xml:"objectid,attr"`
	Transform string `xml:"transform,attr,omitempty"`
}

type Build struct {
	Items []*Item `xml:"item"`
}

type Item struct {
	ObjectID      int            `xml:"objectid,attr"`
	Transform     string         `xml:"transform,attr,omitempty"`
	MetadataGroup *MetadataGroup `xml:"metadatagroup"`
}

type MetadataGroup struct {
	Metadata []Metadata `xml:"metadata"`
}

type Metadata struct {
	Name     string `xml:"name,attr"`
	Type     string `xml:"type,attr,omitempty"`
	Preserve string `xml:"preserve,attr,omitempty"`
	Value    string `xml:",chardata"`
}
