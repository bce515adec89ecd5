package threemf

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Archive is a 3MF package being written.
type Archive struct {
	file   *os.File
	zw     *zip.Writer
	parts  []string
	closed bool
}

type contentTypes struct {
	XMLName  xml.Name      `xml:"Types"`
	Xmlns    string        `xml:"xmlns,attr"`
	Defaults []contentType `xml:"Default"`
}

type contentType struct {
	Extension   string `xml:"Extension,attr"`
	ContentType string `xml:"ContentType,attr"`
}

type relationships struct {
	XMLName       xml.Name       `xml:"Relationships"`
	Xmlns         string         `xml:"xmlns,attr"`
	Relationships []relationship `xml:"Relationship"`
}

type relationship struct {
	ID     string `xml:"Id,attr"`
	Target string `xml:"Target,attr"`
	Type   string `xml:"Type,attr"`
}

// CreateArchive creates the package file at path and writes the content
// types and relationships parts. When the file cannot be created, the
// returned archive is nil and nothing is left open.
func CreateArchive(path string) (*Archive, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "creating archive")
	}

	a := &Archive{
		file: file,
		zw:   zip.NewWriter(file),
	}

	if err := a.writeBookkeeping(); err != nil {
		a.Close()
		os.Remove(path)
		return nil, err
	}
	return a, nil
}

func (a *Archive) writeBookkeeping() error {
	types := contentTypes{
		Xmlns: ContentTypesNamespace,
		Defaults: []contentType{
			{Extension: "rels", ContentType: RelsContentType},
			{Extension: "model", ContentType: ModelContentType},
		},
	}
	if err := a.writeXMLPart(ContentTypesLocation, types); err != nil {
		return err
	}

	rels := relationships{
		Xmlns: RelationshipNamespace,
		Relationships: []relationship{
			{ID: "rel0", Target: "/" + ModelLocation, Type: ModelRelationshipType},
		},
	}
	return a.writeXMLPart(RelsLocation, rels)
}

func (a *Archive) writeXMLPart(name string, v interface{}) error {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(v); err != nil {
		return errors.Wrapf(err, "encoding %s", name)
	}
	return a.WritePart(name, buf.Bytes())
}

// WritePart adds a part with the given content.
func (a *Archive) WritePart(name string, data []byte) error {
	if a.closed {
		return errors.Errorf("writing %s: archive closed", name)
	}
	w, err := a.zw.Create(name)
	if err != nil {
		return errors.Wrapf(err, "creating part %s", name)
	}
	if _, err := w.Write(data); err != nil {
		return errors.Wrapf(err, "writing part %s", name)
	}
	a.parts = append(a.parts, name)
	return nil
}

// WriteModel serializes doc into the model part.
func (a *Archive) WriteModel(doc *Document) error {
	var buf bytes.Buffer
	if err := doc.Encode(&buf); err != nil {
		return errors.Wrap(err, "encoding model")
	}
	return a.WritePart(ModelLocation, buf.Bytes())
}

// Parts returns the names of the parts written so far.
func (a *Archive) Parts() []string {
	return append([]string(nil), a.parts...)
}

// Close finalizes the ZIP directory and closes the file. Calling it again is
// a no-op.
func (a *Archive) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	zerr := a.zw.Close()
	ferr := a.file.Close()
	if zerr != nil {
		return errors.Wrap(zerr, "finalizing archive")
	}
	if ferr != nil {
		return errors.Wrap(ferr, "closing archive")
	}
	return nil
}

// Package is a read-only view of a written 3MF package.
type Package struct {
	Parts []string
	Model *Model
}

// OpenPackage lists the parts of the package at path and decodes its model
// part, if present.
func OpenPackage(path string) (*Package, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening package")
	}
	defer r.Close()

	pkg := &Package{}
	for _, f := range r.File {
		pkg.Parts = append(pkg.Parts, f.Name)
		if strings.TrimPrefix(f.Name, "/") != ModelLocation {
			continue
		}
		model, err := readModel(f)
		if err != nil {
			return nil, err
		}
		pkg.Model = model
	}
	return pkg, nil
}

func readModel(f *zip.File) (*Model, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, errors.Wrap(err, "opening model part")
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrap(err, "reading model part")
	}
	model := &Model{}
	if err := xml.Unmarshal(data, model); err != nil {
		return nil, errors.Wrap(err, "decoding model part")
	}
	return model, nil
}
