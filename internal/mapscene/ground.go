package mapscene

import (
	"fmt"
	"math"

	"github.com/Faultbox/midgard3mf/pkg/formats"
	"github.com/Faultbox/midgard3mf/pkg/scene"
	"github.com/Faultbox/midgard3mf/pkg/threemf"
)

// Ground builds the ground mesh object, centred on the map origin. Each tile
// with a top surface becomes a quad; walls fill the height steps towards the
// next row and column and are exported double-sided. It returns nil when the
// ground has no faces.
func Ground(gnd *formats.GND) *scene.Object {
	g := &groundBuilder{
		gnd:   gnd,
		mesh:  &threemf.Mesh{Name: "ground"},
		slots: make(map[int16]int),
		size:  float64(gnd.Zoom),
		offX:  float64(gnd.Width) * float64(gnd.Zoom) / 2,
		offZ:  float64(gnd.Height) * float64(gnd.Zoom) / 2,
	}

	for y := 0; y < int(gnd.Height); y++ {
		for x := 0; x < int(gnd.Width); x++ {
			g.tile(x, y)
		}
	}
	if len(g.mesh.Triangles) == 0 {
		return nil
	}

	obj := scene.NewMeshObject("ground", g.mesh)
	for _, m := range g.materials {
		obj.AddMaterial(m)
	}
	if len(g.walls) > 0 {
		obj.AddModifier(scene.DoubleSidedFaces(g.walls))
	}
	obj.AddModifier(scene.DropDegenerate)
	return obj
}

type groundBuilder struct {
	gnd        *formats.GND
	mesh       *threemf.Mesh
	materials  []threemf.Material
	slots      map[int16]int
	walls      []int
	size       float64
	offX, offZ float64
}

// corners returns the tile's corners in map space, ordered bottom-left,
// bottom-right, top-left, top-right like GND altitudes.
func (g *groundBuilder) corners(x, y int, alt [4]float32) [4]threemf.Vertex {
	bx := float64(x)*g.size - g.offX
	bz := float64(y)*g.size - g.offZ
	return [4]threemf.Vertex{
		{bx, float64(alt[0]), bz + g.size},
		{bx + g.size, float64(alt[1]), bz + g.size},
		{bx, float64(alt[2]), bz},
		{bx + g.size, float64(alt[3]), bz},
	}
}

func (g *groundBuilder) tile(x, y int) {
	tile := g.gnd.Tile(x, y)
	c := g.corners(x, y, tile.Altitude)
	top := g.gnd.Surface(tile.TopSurface)

	if top != nil {
		// Wound so the normal points to -Y, which is up in map space.
		g.quad(c[0], c[1], c[2], c[3], g.slot(top), false)
	}

	if next := g.gnd.Tile(x, y+1); next != nil && steps(tile.Altitude[0]-next.Altitude[2], tile.Altitude[1]-next.Altitude[3]) {
		n := g.corners(x, y+1, next.Altitude)
		if s := g.wallSurface(tile.FrontSurface, top); s != nil {
			g.quad(c[0], c[1], n[2], n[3], g.slot(s), true)
		}
	}

	if next := g.gnd.Tile(x+1, y); next != nil && steps(tile.Altitude[1]-next.Altitude[0], tile.Altitude[3]-next.Altitude[2]) {
		n := g.corners(x+1, y, next.Altitude)
		if s := g.wallSurface(tile.RightSurface, top); s != nil {
			g.quad(c[3], c[1], n[2], n[0], g.slot(s), true)
		}
	}
}

// wallSurface returns the wall's own surface, falling back to the tile's top
// surface.
func (g *groundBuilder) wallSurface(id int32, top *formats.GNDSurface) *formats.GNDSurface {
	if s := g.gnd.Surface(id); s != nil {
		return s
	}
	return top
}

func steps(d0, d1 float32) bool {
	return math.Abs(float64(d0)) > wallThreshold || math.Abs(float64(d1)) > wallThreshold
}

// quad appends v0..v3 as the triangles (0, 2, 1) and (2, 3, 1).
func (g *groundBuilder) quad(v0, v1, v2, v3 threemf.Vertex, material int, wall bool) {
	base := len(g.mesh.Vertices)
	g.mesh.Vertices = append(g.mesh.Vertices, v0, v1, v2, v3)
	if wall {
		g.walls = append(g.walls, len(g.mesh.Triangles), len(g.mesh.Triangles)+1)
	}
	g.mesh.Triangles = append(g.mesh.Triangles,
		threemf.Triangle{V: [3]int{base, base + 2, base + 1}, Material: material},
		threemf.Triangle{V: [3]int{base + 2, base + 3, base + 1}, Material: material},
	)
}

// slot returns the material slot of the surface's texture, adding the slot
// on first use. Untextured surfaces get threemf.NoMaterial.
func (g *groundBuilder) slot(s *formats.GNDSurface) int {
	if s.TextureID < 0 || int(s.TextureID) >= len(g.gnd.Textures) {
		return threemf.NoMaterial
	}
	if slot, ok := g.slots[s.TextureID]; ok {
		return slot
	}
	name := g.gnd.Textures[s.TextureID]
	if name == "" {
		name = fmt.Sprintf("ground_texture_%d", s.TextureID)
	}
	slot := len(g.materials)
	g.materials = append(g.materials, threemf.Material{Name: name, Color: [4]float64{1, 1, 1, 1}})
	g.slots[s.TextureID] = slot
	return slot
}
