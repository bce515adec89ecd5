package formats

import (
	"errors"
	"fmt"
	"os"
)

// GND format errors.
var (
	ErrInvalidGNDMagic       = errors.New("invalid GND magic: expected 'GRGN'")
	ErrUnsupportedGNDVersion = errors.New("unsupported GND version")
	ErrTruncatedGNDData      = errors.New("truncated GND data")
	ErrInvalidGNDDimensions  = errors.New("invalid GND dimensions")
)

const (
	gndMagic         = "GRGN"
	maxGNDDimension  = 1024
	maxGNDTextures   = 4096
	maxGNDNameLength = 1024
	maxGNDSurfaces   = 4 * maxGNDDimension * maxGNDDimension
	maxGNDLightmaps  = 4 * maxGNDDimension * maxGNDDimension
)

// GNDVersion represents the GND file version.
type GNDVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v GNDVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// GNDSurface is a textured tile face.
type GNDSurface struct {
	U          [4]float32
	V          [4]float32
	TextureID  int16 // -1 = no texture
	LightmapID int16
	Color      [4]uint8 // BGRA
}

// GNDTile is one cell of the ground grid. Corners are ordered bottom-left,
// bottom-right, top-left, top-right.
type GNDTile struct {
	Altitude     [4]float32
	TopSurface   int32 // -1 = none
	FrontSurface int32 // wall towards the next row
	RightSurface int32 // wall towards the next column
}

// GND is a parsed ground mesh. Lightmap pixels are skipped; only their
// layout is kept.
type GND struct {
	Version        GNDVersion
	Width          uint32
	Height         uint32
	Zoom           float32 // tile edge length in world units
	Textures       []string
	LightmapCount  uint32
	LightmapWidth  uint32
	LightmapHeight uint32
	Surfaces       []GNDSurface
	Tiles          []GNDTile
}

// Tile returns the tile at the given coordinates, or nil when they are out of
// bounds.
func (g *GND) Tile(x, y int) *GNDTile {
	if x < 0 || y < 0 || x >= int(g.Width) || y >= int(g.Height) {
		return nil
	}
	return &g.Tiles[y*int(g.Width)+x]
}

// Surface returns the surface with the given ID, or nil for -1 and out of
// range IDs.
func (g *GND) Surface(id int32) *GNDSurface {
	if id < 0 || int(id) >= len(g.Surfaces) {
		return nil
	}
	return &g.Surfaces[id]
}

// AltitudeRange returns the minimum and maximum corner altitude.
func (g *GND) AltitudeRange() (min, max float32) {
	if len(g.Tiles) == 0 {
		return 0, 0
	}
	min = g.Tiles[0].Altitude[0]
	max = min
	for _, tile := range g.Tiles {
		for _, h := range tile.Altitude {
			if h < min {
				min = h
			}
			if h > max {
				max = h
			}
		}
	}
	return min, max
}

// CountSurfacesByTexture returns the number of surfaces using each texture.
func (g *GND) CountSurfacesByTexture() map[int]int {
	counts := make(map[int]int)
	for _, surface := range g.Surfaces {
		if surface.TextureID >= 0 {
			counts[int(surface.TextureID)]++
		}
	}
	return counts
}

// ParseGND parses a GND file from raw bytes. Versions 1.5 through 1.9 are
// supported.
func ParseGND(data []byte) (*GND, error) {
	if len(data) < 6 {
		return nil, ErrTruncatedGNDData
	}
	if string(data[:4]) != gndMagic {
		return nil, ErrInvalidGNDMagic
	}

	version := GNDVersion{Major: data[4], Minor: data[5]}
	if version.Major != 1 || version.Minor < 5 || version.Minor > 9 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGNDVersion, version)
	}

	r := newBinaryReader(data[6:], ErrTruncatedGNDData)
	gnd := &GND{
		Version: version,
		Width:   r.uint32(),
		Height:  r.uint32(),
		Zoom:    r.float32(),
	}
	if r.err != nil {
		return nil, fmt.Errorf("reading header: %w", r.err)
	}
	if gnd.Width == 0 || gnd.Height == 0 || gnd.Width > maxGNDDimension || gnd.Height > maxGNDDimension {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidGNDDimensions, gnd.Width, gnd.Height)
	}

	textureCount, err := r.count(maxGNDTextures)
	if err != nil {
		return nil, fmt.Errorf("texture count: %w", err)
	}
	nameLen, err := r.count(maxGNDNameLength)
	if err != nil {
		return nil, fmt.Errorf("texture name length: %w", err)
	}
	gnd.Textures = make([]string, textureCount)
	for i := range gnd.Textures {
		gnd.Textures[i] = r.name(nameLen)
	}
	if r.err != nil {
		return nil, fmt.Errorf("reading textures: %w", r.err)
	}

	lightmapCount, err := r.count(maxGNDLightmaps)
	if err != nil {
		return nil, fmt.Errorf("lightmap count: %w", err)
	}
	gnd.LightmapCount = uint32(lightmapCount)
	gnd.LightmapWidth = r.uint32()
	gnd.LightmapHeight = r.uint32()
	cells := r.uint32()
	if r.err != nil {
		return nil, fmt.Errorf("reading lightmap header: %w", r.err)
	}
	// Brightness plus RGB per pixel.
	pixels := uint64(gnd.LightmapWidth) * uint64(gnd.LightmapHeight) * uint64(cells)
	lightmapBytes := uint64(lightmapCount) * pixels * 4
	if lightmapBytes > uint64(r.remaining()) {
		return nil, fmt.Errorf("%w: reading lightmaps", ErrTruncatedGNDData)
	}
	r.skip(int(lightmapBytes))

	surfaceCount, err := r.count(maxGNDSurfaces)
	if err != nil {
		return nil, fmt.Errorf("surface count: %w", err)
	}
	gnd.Surfaces = make([]GNDSurface, surfaceCount)
	for i := range gnd.Surfaces {
		s := &gnd.Surfaces[i]
		r.float32s(s.U[:])
		r.float32s(s.V[:])
		s.TextureID = int16(r.uint16())
		s.LightmapID = int16(r.uint16())
		r.bytes(s.Color[:])
	}
	if r.err != nil {
		return nil, fmt.Errorf("reading surfaces: %w", r.err)
	}

	gnd.Tiles = make([]GNDTile, int(gnd.Width)*int(gnd.Height))
	for i := range gnd.Tiles {
		t := &gnd.Tiles[i]
		r.float32s(t.Altitude[:])
		t.TopSurface = r.int32()
		t.FrontSurface = r.int32()
		t.RightSurface = r.int32()
	}
	if r.err != nil {
		return nil, fmt.Errorf("reading tiles: %w", r.err)
	}

	return gnd, nil
}

// ParseGNDFile parses a GND file from disk.
func ParseGNDFile(path string) (*GND, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading GND file: %w", err)
	}
	return ParseGND(data)
}
