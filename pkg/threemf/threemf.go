// Package threemf builds 3MF packages from an in-memory scene graph.
//
// A 3MF package is a ZIP container holding an XML model part plus the OPC
// bookkeeping parts ([Content_Types].xml and _rels/.rels) that point readers
// at the model.
package threemf

// Namespaces and part locations.
const (
	CoreNamespace         = "http://schemas.microsoft.com/3dmanufacturing/core/2015/02"
	ContentTypesNamespace = "http://schemas.openxmlformats.org/package/2006/content-types"
	RelationshipNamespace = "http://schemas.openxmlformats.org/package/2006/relationships"

	ContentTypesLocation = "[Content_Types].xml"
	RelsLocation         = "_rels/.rels"
	ModelLocation        = "3D/3dmodel.model"

	ModelRelationshipType = "http://schemas.microsoft.com/3dmanufacturing/2013/01/3dmodel"
	ModelContentType      = "application/vnd.ms-package.3dmanufacturing-3dmodel+xml"
	RelsContentType       = "application/vnd.openxmlformats-package.relationships+xml"

	// DefaultUnit is the model unit every export is written in.
	DefaultUnit = "millimeter"
	// DefaultLanguage is written as xml:lang on the model root.
	DefaultLanguage = "en-US"
)

// Options controls a single export.
type Options struct {
	// Precision is the number of decimal digits written for coordinates and
	// transformation cells.
	Precision int
	// GlobalScale is multiplied into every build item transformation.
	GlobalScale float64
	// ApplyModifiers is passed to Node.MeshData.
	ApplyModifiers bool
}

// DefaultOptions returns the options used when the caller sets none.
func DefaultOptions() Options {
	return Options{
		Precision:      4,
		GlobalScale:    1.0,
		ApplyModifiers: true,
	}
}
