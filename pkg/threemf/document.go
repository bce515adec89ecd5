package threemf

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"

	"go.uber.org/zap"
)

// Document assembles one 3MF model. It is built entirely in memory and is
// not safe for concurrent use; independent exports use independent
// documents.
type Document struct {
	Model   *Model
	opts    Options
	ids     *IDAllocator
	builder *ResourceBuilder
	log     *zap.Logger
}

// NewDocument creates an empty model document.
func NewDocument(opts Options, log *zap.Logger) *Document {
	if log == nil {
		log = zap.NewNop()
	}
	model := &Model{
		Xmlns: CoreNamespace,
		Unit:  DefaultUnit,
		Lang:  DefaultLanguage,
	}
	ids := NewIDAllocator()
	return &Document{
		Model:   model,
		opts:    opts,
		ids:     ids,
		builder: NewResourceBuilder(&model.Resources, ids, opts, log),
		log:     log,
	}
}

// WriteSceneMetadata adds model-level metadata entries.
func (d *Document) WriteSceneMetadata(entries []MetadataEntry) {
	for _, entry := range entries {
		if entry.Name == "" {
			continue
		}
		d.Model.Metadata = append(d.Model.Metadata, metadataElement(entry))
	}
}

// WriteMaterials writes one basematerials group holding every distinct
// material found on nodes, in order of first appearance. It returns the
// index assigned to each material name. Nothing is written when no node has
// a material.
func (d *Document) WriteMaterials(nodes []Node) map[string]int {
	index := make(map[string]int)
	var bases []Base
	for _, node := range nodes {
		for _, m := range node.Materials() {
			if _, ok := index[m.Name]; ok {
				continue
			}
			index[m.Name] = len(bases)
			bases = append(bases, Base{Name: m.Name, DisplayColor: displayColor(m.Color)})
		}
	}
	if len(bases) == 0 {
		return index
	}

	group := &BaseMaterials{ID: d.ids.Next(), Bases: bases}
	d.Model.Resources.BaseMaterials = append(d.Model.Resources.BaseMaterials, group)
	d.builder.materials = materialTable{groupID: group.ID, index: index}
	d.log.Debug("wrote materials", zap.Int("id", group.ID), zap.Int("count", len(bases)))
	return index
}

// WriteObjects writes a resource and a build item for every top-level
// eligible node. Nodes with a parent are reached through their parent's
// resource instead. scale is the combined unit and global scale factor.
func (d *Document) WriteObjects(nodes []Node, scale float64) {
	outer := UniformScale(scale)
	for _, node := range nodes {
		if node.Parent() != nil {
			continue
		}
		if !node.Kind().Eligible() {
			d.log.Debug("skipping node", zap.String("name", node.Name()), zap.Stringer("kind", node.Kind()))
			continue
		}

		id, transform := d.builder.WriteObjectResource(node)
		item := &Item{
			ObjectID:      id,
			Transform:     transformAttr(Compose(outer, transform), d.opts.Precision),
			MetadataGroup: writeMetadata(node.Name(), node.Metadata()),
		}
		d.Model.Build.Items = append(d.Model.Build.Items, item)
	}
}

// ResourceCount returns the number of resource IDs allocated so far.
func (d *Document) ResourceCount() int {
	return d.ids.Allocated()
}

// ItemCount returns the number of build items.
func (d *Document) ItemCount() int {
	return len(d.Model.Build.Items)
}

// Encode writes the model as an XML document.
func (d *Document) Encode(w io.Writer) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	if err := enc.Encode(d.Model); err != nil {
		return err
	}
	return enc.Flush()
}

// displayColor formats an RGBA colour as #RRGGBBAA.
func displayColor(c [4]float64) string {
	var b [4]uint8
	for i, v := range c {
		b[i] = uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
	}
	return fmt.Sprintf("#%02X%02X%02X%02X", b[0], b[1], b[2], b[3])
}
