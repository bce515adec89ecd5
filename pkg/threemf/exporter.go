package threemf

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Exporter writes scenes to 3MF files.
type Exporter struct {
	opts Options
	log  *zap.Logger
}

// NewExporter creates an exporter. A nil logger discards output.
func NewExporter(opts Options, log *zap.Logger) *Exporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Exporter{opts: opts, log: log}
}

// Options returns the options the exporter was created with.
func (e *Exporter) Options() Options {
	return e.opts
}

// Export writes sc to path. The package is assembled in a temporary file
// next to path and moved into place only once it is complete; on failure
// the temporary file is removed and path is left untouched.
func (e *Exporter) Export(path string, sc Scene) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return errors.Wrapf(err, "exporting %s", path)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer func() {
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	archive, err := CreateArchive(tmpPath)
	if err != nil {
		return errors.Wrapf(err, "exporting %s", path)
	}
	defer func() {
		if cerr := archive.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	doc := e.Build(sc)
	if err := archive.WriteModel(doc); err != nil {
		return errors.Wrapf(err, "exporting %s", path)
	}
	if err := archive.Close(); err != nil {
		return errors.Wrapf(err, "exporting %s", path)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return errors.Wrapf(err, "exporting %s", path)
	}

	e.log.Info("exported 3MF",
		zap.String("path", path),
		zap.Int("resources", doc.ResourceCount()),
		zap.Int("items", doc.ItemCount()))
	return nil
}

// Build assembles the model document for sc without writing it anywhere.
func (e *Exporter) Build(sc Scene) *Document {
	doc := NewDocument(e.opts, e.log)
	objects := sc.Objects()

	doc.WriteSceneMetadata(sc.Metadata())
	doc.WriteMaterials(objects)

	scale := UnitScale(sc.Units(), e.opts.GlobalScale)
	e.log.Debug("resolved unit scale",
		zap.Float64("scale", scale), zap.String("unit", string(sc.Units().LengthUnit)))
	doc.WriteObjects(objects, scale)
	return doc
}
