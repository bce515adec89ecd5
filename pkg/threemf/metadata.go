package threemf

const (
	titleKey        = "Title"
	defaultDatatype = "xs:string"
	preserveMarker  = "1"
)

// writeMetadata builds the metadata group for an entity with the given
// display name and stored entries. It returns nil when there is nothing to
// write, so callers never emit an empty group.
func writeMetadata(name string, entries []MetadataEntry) *MetadataGroup {
	elements := metadataElements(name, entries)
	if len(elements) == 0 {
		return nil
	}
	return &MetadataGroup{Metadata: elements}
}

func metadataElements(name string, entries []MetadataEntry) []Metadata {
	var elements []Metadata

	// Names are always preserved.
	if name != "" {
		elements = append(elements, Metadata{
			Name:     titleKey,
			Type:     defaultDatatype,
			Preserve: preserveMarker,
			Value:    name,
		})
	}

	for _, entry := range entries {
		if entry.Name == titleKey && name != "" {
			continue
		}
		elements = append(elements, metadataElement(entry))
	}
	return elements
}

func metadataElement(entry MetadataEntry) Metadata {
	m := Metadata{
		Name:  entry.Name,
		Type:  entry.Datatype,
		Value: entry.Value,
	}
	if m.Type == "" {
		m.Type = defaultDatatype
	}
	if entry.Preserve {
		m.Preserve = preserveMarker
	}
	return m
}
