// Package mapscene converts Ragnarok Online maps into exportable scene
// graphs: the GND ground becomes one mesh object and every RSW model
// placement becomes an instance of the converted RSM model.
//
// The scene is built in the client's Y-down map space, centred on the map
// origin. A single root object carries the rotation to 3MF's Z-up space.
package mapscene

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard3mf/internal/rsmscene"
	"github.com/Faultbox/midgard3mf/pkg/formats"
	"github.com/Faultbox/midgard3mf/pkg/scene"
	"github.com/Faultbox/midgard3mf/pkg/threemf"
)

// ErrEmptyMap is returned when neither ground nor models are left to export.
var ErrEmptyMap = errors.New("map has no geometry")

// wallThreshold is the altitude difference below which no wall is built
// between neighbouring tiles.
const wallThreshold = 0.001

// axisFix turns the Y-down map space into 3MF's Z-up space.
var axisFix = mgl64.HomogRotate3DX(-math.Pi / 2)

// ModelSource loads RSM models by archive path.
type ModelSource interface {
	LoadRSM(path string) (*formats.RSM, error)
}

// Source reads map files and models, as assets.Manager does.
type Source interface {
	ModelSource
	Read(path string) ([]byte, error)
}

// Options controls the conversion.
type Options struct {
	// Model is applied to every placed model. Its SkipAxisFix is ignored.
	Model       rsmscene.Options
	SkipGround  bool
	SkipModels  bool
	SkipAxisFix bool
	Log         *zap.Logger
}

// Load reads data/<name>.rsw and the ground it references from src and
// converts them.
func Load(name string, src Source, opts Options) (*scene.Scene, error) {
	name = strings.TrimSuffix(name, ".rsw")

	data, err := src.Read("data/" + name + ".rsw")
	if err != nil {
		return nil, errors.Wrapf(err, "reading map %s", name)
	}
	rsw, err := formats.ParseRSW(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s.rsw", name)
	}

	var gnd *formats.GND
	if !opts.SkipGround {
		gndFile := rsw.GndFile
		if gndFile == "" {
			gndFile = name + ".gnd"
		}
		data, err := src.Read("data/" + gndFile)
		if err != nil {
			return nil, errors.Wrapf(err, "reading ground %s", gndFile)
		}
		if gnd, err = formats.ParseGND(data); err != nil {
			return nil, errors.Wrapf(err, "parsing %s", gndFile)
		}
	}

	var models ModelSource = src
	if opts.SkipModels {
		models = nil
	}
	return FromMap(name, rsw, gnd, models, opts)
}

// FromMap builds a scene named name. A nil gnd leaves out the ground and a
// nil models source leaves out the placed models. Models that fail to load
// are logged and skipped.
func FromMap(name string, rsw *formats.RSW, gnd *formats.GND, models ModelSource, opts Options) (*scene.Scene, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	modelOpts := opts.Model
	modelOpts.SkipAxisFix = true
	if modelOpts.Log == nil {
		modelOpts.Log = log
	}

	root := scene.NewObject(name, threemf.KindMesh)
	if !opts.SkipAxisFix {
		root.SetLocal(axisFix)
	}

	var width, height float64
	if gnd != nil {
		width = float64(gnd.Width) * float64(gnd.Zoom)
		height = float64(gnd.Height) * float64(gnd.Zoom)
		if ground := Ground(gnd); ground != nil {
			root.AddChild(ground)
		}
	}

	placed, missing := 0, 0
	if models != nil {
		for i, m := range rsw.Models() {
			obj, err := instance(i, m, models, modelOpts)
			if err != nil {
				log.Warn("skipping map model", zap.String("model", m.ModelName), zap.Error(err))
				missing++
				continue
			}
			root.AddChild(obj)
			placed++
		}
	}

	if len(root.Children()) == 0 {
		return nil, errors.Wrap(ErrEmptyMap, name)
	}

	sc := scene.New()
	sc.SetMetadata(threemf.MetadataEntry{Name: "Title", Value: name})
	desc := fmt.Sprintf("RSW %s map, %d models", rsw.Version, placed)
	if gnd != nil {
		desc = fmt.Sprintf("RSW %s map, %dx%d tiles, %d models", rsw.Version, gnd.Width, gnd.Height, placed)
	}
	sc.SetMetadata(threemf.MetadataEntry{Name: "Description", Value: desc})
	sc.Add(root)

	log.Debug("converted map",
		zap.String("name", name),
		zap.Float64("width", width),
		zap.Float64("height", height),
		zap.Int("models", placed),
		zap.Int("missing", missing))
	return sc, nil
}

// instance converts one placed model into an object holding the model's
// roots.
func instance(i int, m *formats.RSWModel, models ModelSource, opts rsmscene.Options) (*scene.Object, error) {
	rsm, err := models.LoadRSM("data/model/" + m.ModelName)
	if err != nil {
		return nil, err
	}
	sub := rsmscene.FromRSM(m.ModelName, rsm, opts)
	if len(sub.Roots) == 0 {
		return nil, errors.New("model has no nodes")
	}

	name := m.Name
	if name == "" {
		name = fmt.Sprintf("model_%d", i)
	}
	cx, cz := centerXZ(sub)
	obj := scene.NewObject(name, threemf.KindMesh).
		SetLocal(InstanceMatrix(m, cx, cz)).
		SetMetadata(threemf.MetadataEntry{Name: "Model", Value: m.ModelName})
	for _, r := range sub.Roots {
		obj.AddChild(r)
	}
	return obj, nil
}

// InstanceMatrix places a model in map space:
// Translate(Position) * RotY * RotX * RotZ * Scale * Translate(-cx, 0, -cz).
// Rotations are in degrees. The X and Z rotations are negated because map
// space is Y-down.
func InstanceMatrix(m *formats.RSWModel, cx, cz float64) mgl64.Mat4 {
	rx := mgl64.DegToRad(float64(m.Rotation[0]))
	ry := mgl64.DegToRad(float64(m.Rotation[1]))
	rz := mgl64.DegToRad(float64(m.Rotation[2]))

	return threemf.Compose(
		mgl64.Translate3D(float64(m.Position[0]), float64(m.Position[1]), float64(m.Position[2])),
		mgl64.HomogRotate3DY(ry),
		mgl64.HomogRotate3DX(-rx),
		mgl64.HomogRotate3DZ(-rz),
		mgl64.Scale3D(float64(m.Scale[0]), float64(m.Scale[1]), float64(m.Scale[2])),
		mgl64.Translate3D(-cx, 0, -cz),
	)
}

// centerXZ returns the centre of the model's bounding box in X and Z.
func centerXZ(sc *scene.Scene) (float64, float64) {
	minX, minZ := math.Inf(1), math.Inf(1)
	maxX, maxZ := math.Inf(-1), math.Inf(-1)
	for _, node := range sc.Objects() {
		mesh := node.MeshData(false)
		if mesh == nil {
			continue
		}
		world := node.World()
		for _, v := range mesh.Vertices {
			p := mgl64.TransformCoordinate(mgl64.Vec3(v), world)
			minX, maxX = math.Min(minX, p[0]), math.Max(maxX, p[0])
			minZ, maxZ = math.Min(minZ, p[2]), math.Max(maxZ, p[2])
		}
	}
	if math.IsInf(minX, 1) {
		return 0, 0
	}
	return (minX + maxX) / 2, (minZ + maxZ) / 2
}
