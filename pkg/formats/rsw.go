package formats

import (
	"errors"
	"fmt"
	"os"
)

// RSW format errors.
var (
	ErrInvalidRSWMagic       = errors.New("invalid RSW magic: expected 'GRSW'")
	ErrUnsupportedRSWVersion = errors.New("unsupported RSW version")
	ErrTruncatedRSWData      = errors.New("truncated RSW data")
	ErrUnknownObjectType     = errors.New("unknown RSW object type")
)

const (
	rswMagic          = "GRSW"
	rswFileNameLength = 40
	rswLongNameLength = 80
	maxRSWObjects     = 100000
)

// RSWVersion represents the RSW file version.
type RSWVersion struct {
	Major       uint8
	Minor       uint8
	BuildNumber uint32 // v2.2+ (uint8 for v2.2-2.4, uint32 for v2.5+)
}

// String returns the version as "Major.Minor", with the build number when
// there is one.
func (v RSWVersion) String() string {
	if v.BuildNumber > 0 {
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.BuildNumber)
	}
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast returns true if version is >= major.minor.
func (v RSWVersion) AtLeast(major, minor uint8) bool {
	return v.Major > major || (v.Major == major && v.Minor >= minor)
}

// RSWObjectType represents the type of object in the world.
type RSWObjectType int32

const (
	RSWObjectModel  RSWObjectType = 1 // RSM model instance
	RSWObjectLight  RSWObjectType = 2
	RSWObjectSound  RSWObjectType = 3
	RSWObjectEffect RSWObjectType = 4
)

// String returns a human-readable object type name.
func (t RSWObjectType) String() string {
	switch t {
	case RSWObjectModel:
		return "Model"
	case RSWObjectLight:
		return "Light"
	case RSWObjectSound:
		return "Sound"
	case RSWObjectEffect:
		return "Effect"
	default:
		return fmt.Sprintf("Unknown(%d)", t)
	}
}

// RSWWater contains water settings (v1.3 to v2.5).
type RSWWater struct {
	Level      float32
	Type       int32
	WaveHeight float32
	WaveSpeed  float32
	WavePitch  float32
	AnimSpeed  int32
}

// RSWLight contains global lighting settings.
type RSWLight struct {
	Longitude int32 // degrees
	Latitude  int32 // degrees
	Diffuse   [3]float32
	Ambient   [3]float32
	Opacity   float32 // v1.7+
}

// RSWGround contains ground view bounds.
type RSWGround struct {
	Top    int32
	Bottom int32
	Left   int32
	Right  int32
}

// RSWModel is an RSM model placed in the world. Position is relative to the
// map centre in the Y-down map space; Rotation is in degrees.
type RSWModel struct {
	Name      string
	AnimType  int32
	AnimSpeed float32
	BlockType int32
	ModelName string // path below data/model/
	NodeName  string
	Position  [3]float32
	Rotation  [3]float32
	Scale     [3]float32
}

// RSWLightSource is a point light.
type RSWLightSource struct {
	Name     string
	Position [3]float32
	Color    [3]float32
	Range    float32
}

// RSWSoundSource is a sound emitter.
type RSWSoundSource struct {
	Name     string
	File     string
	Position [3]float32
	Volume   float32
	Width    int32
	Height   int32
	Range    float32
	Cycle    float32 // v2.0+
}

// RSWEffectSource is a visual effect emitter.
type RSWEffectSource struct {
	Name     string
	Position [3]float32
	EffectID int32
	Delay    float32
	Param    [4]float32
}

// RSWObject is any object in the world. Exactly one of the pointers is set,
// matching Type.
type RSWObject struct {
	Type   RSWObjectType
	Model  *RSWModel
	Light  *RSWLightSource
	Sound  *RSWSoundSource
	Effect *RSWEffectSource
}

// RSW is a parsed Resource World file.
type RSW struct {
	Version RSWVersion
	IniFile string
	GndFile string // ground mesh, below data/
	GatFile string // v1.4+
	SrcFile string // v1.4+
	Water   RSWWater
	Light   RSWLight
	Ground  RSWGround
	Objects []RSWObject
}

// CountByType returns the count of objects for each type.
func (r *RSW) CountByType() map[RSWObjectType]int {
	counts := make(map[RSWObjectType]int)
	for _, obj := range r.Objects {
		counts[obj.Type]++
	}
	return counts
}

// Models returns all model objects in file order.
func (r *RSW) Models() []*RSWModel {
	var models []*RSWModel
	for _, obj := range r.Objects {
		if obj.Model != nil {
			models = append(models, obj.Model)
		}
	}
	return models
}

// Lights returns all light source objects in file order.
func (r *RSW) Lights() []*RSWLightSource {
	var lights []*RSWLightSource
	for _, obj := range r.Objects {
		if obj.Light != nil {
			lights = append(lights, obj.Light)
		}
	}
	return lights
}

// ParseRSW parses an RSW file from raw bytes. Versions 1.2 through 2.6 are
// supported. The trailing quadtree of v2.1+ files is not read.
func ParseRSW(data []byte) (*RSW, error) {
	if len(data) < 6 {
		return nil, ErrTruncatedRSWData
	}
	if string(data[:4]) != rswMagic {
		return nil, ErrInvalidRSWMagic
	}

	r := newBinaryReader(data[4:], ErrTruncatedRSWData)
	rsw := &RSW{
		Version: RSWVersion{Major: r.uint8(), Minor: r.uint8()},
	}
	v := rsw.Version
	if v.Major < 1 || v.Major > 2 || (v.Major == 2 && v.Minor > 6) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRSWVersion, v)
	}

	if v.AtLeast(2, 5) {
		rsw.Version.BuildNumber = r.uint32()
		r.skip(1) // render flag
	} else if v.AtLeast(2, 2) {
		rsw.Version.BuildNumber = uint32(r.uint8())
	}
	v = rsw.Version

	rsw.IniFile = r.name(rswFileNameLength)
	rsw.GndFile = r.name(rswFileNameLength)
	if v.AtLeast(1, 4) {
		rsw.GatFile = r.name(rswFileNameLength)
		rsw.SrcFile = r.name(rswFileNameLength)
	}

	// Water moved to the GND in v2.6.
	if v.AtLeast(1, 3) && !v.AtLeast(2, 6) {
		w := &rsw.Water
		w.Level = r.float32()
		w.Type = r.int32()
		w.WaveHeight = r.float32()
		w.WaveSpeed = r.float32()
		w.WavePitch = r.float32()
		w.AnimSpeed = r.int32()
	}

	if v.AtLeast(1, 5) {
		rsw.Light.Longitude = r.int32()
		rsw.Light.Latitude = r.int32()
		r.float32s(rsw.Light.Diffuse[:])
		r.float32s(rsw.Light.Ambient[:])
	}
	if v.AtLeast(1, 7) {
		rsw.Light.Opacity = r.float32()
	}
	if v.AtLeast(1, 6) {
		rsw.Ground.Top = r.int32()
		rsw.Ground.Bottom = r.int32()
		rsw.Ground.Left = r.int32()
		rsw.Ground.Right = r.int32()
	}
	if r.err != nil {
		return nil, fmt.Errorf("reading header: %w", r.err)
	}

	objectCount, err := r.count(maxRSWObjects)
	if err != nil {
		return nil, fmt.Errorf("object count: %w", err)
	}
	rsw.Objects = make([]RSWObject, 0, objectCount)
	for i := 0; i < objectCount; i++ {
		obj, err := parseRSWObject(r, v)
		if err != nil {
			return nil, fmt.Errorf("parsing object %d: %w", i, err)
		}
		rsw.Objects = append(rsw.Objects, obj)
	}

	return rsw, nil
}

func parseRSWObject(r *binaryReader, v RSWVersion) (RSWObject, error) {
	obj := RSWObject{Type: RSWObjectType(r.int32())}

	switch obj.Type {
	case RSWObjectModel:
		m := &RSWModel{Name: r.name(rswFileNameLength)}
		m.AnimType = r.int32()
		m.AnimSpeed = r.float32()
		m.BlockType = r.int32()
		if v.AtLeast(2, 6) && v.BuildNumber >= 162 {
			r.skip(1) // collision flags
		}
		m.ModelName = r.name(rswLongNameLength)
		m.NodeName = r.name(rswLongNameLength)
		r.float32s(m.Position[:])
		r.float32s(m.Rotation[:])
		r.float32s(m.Scale[:])
		obj.Model = m

	case RSWObjectLight:
		l := &RSWLightSource{Name: r.name(rswLongNameLength)}
		r.float32s(l.Position[:])
		r.float32s(l.Color[:])
		l.Range = r.float32()
		obj.Light = l

	case RSWObjectSound:
		s := &RSWSoundSource{
			Name: r.name(rswLongNameLength),
			File: r.name(rswLongNameLength),
		}
		r.float32s(s.Position[:])
		s.Volume = r.float32()
		s.Width = r.int32()
		s.Height = r.int32()
		s.Range = r.float32()
		if v.AtLeast(2, 0) {
			s.Cycle = r.float32()
		}
		obj.Sound = s

	case RSWObjectEffect:
		e := &RSWEffectSource{Name: r.name(rswLongNameLength)}
		r.float32s(e.Position[:])
		e.EffectID = r.int32()
		e.Delay = r.float32()
		r.float32s(e.Param[:])
		obj.Effect = e

	default:
		if r.err != nil {
			return RSWObject{}, r.err
		}
		return RSWObject{}, fmt.Errorf("%w: %d", ErrUnknownObjectType, obj.Type)
	}

	if r.err != nil {
		return RSWObject{}, r.err
	}
	return obj, nil
}

// ParseRSWFile parses an RSW file from disk.
func ParseRSWFile(path string) (*RSW, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading RSW file: %w", err)
	}
	return ParseRSW(data)
}
