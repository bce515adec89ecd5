// Package testfixture builds small Ragnarok Online data files and GRF
// archives for tests.
package testfixture

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"os"
	"sort"

	"github.com/Faultbox/midgard3mf/pkg/encoding"
)

var le = binary.LittleEndian

func fixedName(s string) []byte {
	return encoding.UTF8ToFixedString(s, 40)
}

// TriangleRSM returns a version 1.4 model holding one node called root with a
// single triangle textured with texture.
func TriangleRSM(root, texture string) []byte {
	var buf bytes.Buffer
	buf.WriteString("GRSM")
	buf.Write([]byte{1, 4})
	binary.Write(&buf, le, int32(0)) // anim length
	binary.Write(&buf, le, int32(1)) // flat shading
	buf.WriteByte(255)               // alpha
	buf.Write(make([]byte, 16))

	binary.Write(&buf, le, int32(1))
	buf.Write(fixedName(texture))
	buf.Write(fixedName(root))
	binary.Write(&buf, le, int32(1))

	buf.Write(fixedName(root))
	buf.Write(fixedName(""))
	binary.Write(&buf, le, int32(1))
	binary.Write(&buf, le, int32(0))
	binary.Write(&buf, le, [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1})
	binary.Write(&buf, le, [3]float32{}) // offset
	binary.Write(&buf, le, [3]float32{}) // position
	binary.Write(&buf, le, float32(0))   // rotation angle
	binary.Write(&buf, le, [3]float32{})
	binary.Write(&buf, le, [3]float32{1, 1, 1})

	binary.Write(&buf, le, int32(3))
	binary.Write(&buf, le, [3][3]float32{{0, 0, 0}, {10, 0, 0}, {0, 0, 10}})

	binary.Write(&buf, le, int32(1))
	buf.Write([]byte{255, 255, 255, 255})
	binary.Write(&buf, le, [2]float32{0, 0})

	binary.Write(&buf, le, int32(1))
	binary.Write(&buf, le, [3]uint16{0, 1, 2})
	binary.Write(&buf, le, [3]uint16{0, 0, 0})
	binary.Write(&buf, le, uint16(0)) // texture
	binary.Write(&buf, le, uint16(0)) // padding
	binary.Write(&buf, le, int32(0))  // two side
	binary.Write(&buf, le, int32(0))  // smooth group

	binary.Write(&buf, le, int32(0)) // position keys
	binary.Write(&buf, le, int32(0)) // rotation keys
	return buf.Bytes()
}

// GRF returns a version 0x200 archive holding files, stored uncompressed.
// Names are written in EUC-KR, in sorted order.
func GRF(files map[string][]byte) ([]byte, error) {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var data, table bytes.Buffer
	for _, name := range names {
		content := files[name]
		offset := uint32(data.Len())
		data.Write(content)
		table.Write(encoding.UTF8ToEUCKR(name))
		table.WriteByte(0)
		binary.Write(&table, le, uint32(len(content)))
		binary.Write(&table, le, uint32(len(content)))
		binary.Write(&table, le, uint32(len(content)))
		table.WriteByte(0x01)
		binary.Write(&table, le, offset)
	}

	var out bytes.Buffer
	out.Write(encoding.UTF8ToFixedString("Master of Magic", 15))
	out.Write(make([]byte, 15))
	binary.Write(&out, le, uint32(data.Len()))   // table offset
	binary.Write(&out, le, uint32(0))            // seed
	binary.Write(&out, le, uint32(len(files)+7)) // file count
	binary.Write(&out, le, uint32(0x200))        // version
	out.Write(data.Bytes())

	var compressed bytes.Buffer
	w := zlib.NewWriter(&compressed)
	if _, err := w.Write(table.Bytes()); err != nil {
		return nil, fmt.Errorf("compressing file table: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compressing file table: %w", err)
	}
	binary.Write(&out, le, uint32(compressed.Len()))
	binary.Write(&out, le, uint32(table.Len()))
	out.Write(compressed.Bytes())
	return out.Bytes(), nil
}

// WriteGRF writes the archive built by GRF to path.
func WriteGRF(path string, files map[string][]byte) error {
	data, err := GRF(files)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Placement is a model instance written by RSW.
type Placement struct {
	Name     string
	File     string // path below data/model/
	Position [3]float32
	Rotation [3]float32
	Scale    [3]float32
}

// RSW returns a version 2.1 world using ground gndFile and holding one model
// object per placement, followed by a single light.
func RSW(gndFile string, placements []Placement) []byte {
	var buf bytes.Buffer
	buf.WriteString("GRSW")
	buf.Write([]byte{2, 1})
	buf.Write(fixedName("")) // ini
	buf.Write(fixedName(gndFile))
	buf.Write(fixedName(""))                                   // gat
	buf.Write(fixedName(""))                                   // src
	binary.Write(&buf, le, [6]float32{})                       // water
	binary.Write(&buf, le, [2]int32{45, 45})                   // light angles
	binary.Write(&buf, le, [6]float32{1, 1, 1, 0.3, 0.3, 0.3}) // diffuse, ambient
	binary.Write(&buf, le, float32(1))                         // opacity
	binary.Write(&buf, le, [4]int32{-500, 500, -500, 500})     // ground bounds

	binary.Write(&buf, le, int32(len(placements)+1))
	for _, p := range placements {
		binary.Write(&buf, le, int32(1))
		buf.Write(fixedName(p.Name))
		binary.Write(&buf, le, int32(0))   // anim type
		binary.Write(&buf, le, float32(1)) // anim speed
		binary.Write(&buf, le, int32(0))   // block type
		buf.Write(encoding.UTF8ToFixedString(p.File, 80))
		buf.Write(encoding.UTF8ToFixedString("", 80))
		binary.Write(&buf, le, p.Position)
		binary.Write(&buf, le, p.Rotation)
		binary.Write(&buf, le, p.Scale)
	}

	binary.Write(&buf, le, int32(2))
	buf.Write(encoding.UTF8ToFixedString("lamp", 80))
	binary.Write(&buf, le, [3]float32{0, -20, 0})
	binary.Write(&buf, le, [3]float32{1, 0.8, 0.6})
	binary.Write(&buf, le, float32(50))
	return buf.Bytes()
}

// GroundTile is one GND cell. Surface fields index the surfaces passed to
// GND, -1 for none.
type GroundTile struct {
	Altitude [4]float32
	Top      int32
	Front    int32
	Right    int32
}

// GND returns a version 1.7 ground. surfaces holds the texture index of each
// surface; tiles are row-major and must number width*height.
func GND(width, height int, zoom float32, textures []string, surfaces []int16, tiles []GroundTile) []byte {
	var buf bytes.Buffer
	buf.WriteString("GRGN")
	buf.Write([]byte{1, 7})
	binary.Write(&buf, le, uint32(width))
	binary.Write(&buf, le, uint32(height))
	binary.Write(&buf, le, zoom)

	binary.Write(&buf, le, uint32(len(textures)))
	binary.Write(&buf, le, uint32(80))
	for _, tex := range textures {
		buf.Write(encoding.UTF8ToFixedString(tex, 80))
	}

	// One 2x2 lightmap.
	binary.Write(&buf, le, [4]uint32{1, 2, 2, 1})
	buf.Write(make([]byte, 2*2*4))

	binary.Write(&buf, le, uint32(len(surfaces)))
	for _, tex := range surfaces {
		binary.Write(&buf, le, [8]float32{0, 1, 0, 1, 0, 0, 1, 1})
		binary.Write(&buf, le, tex)
		binary.Write(&buf, le, int16(0))
		buf.Write([]byte{255, 255, 255, 255})
	}

	for _, t := range tiles {
		binary.Write(&buf, le, t.Altitude)
		binary.Write(&buf, le, [3]int32{t.Top, t.Front, t.Right})
	}
	return buf.Bytes()
}

// FlatGND returns a width x height ground at altitude 0 whose every tile has
// a top face textured with texture.
func FlatGND(width, height int, zoom float32, texture string) []byte {
	tiles := make([]GroundTile, width*height)
	for i := range tiles {
		tiles[i] = GroundTile{Top: 0, Front: -1, Right: -1}
	}
	return GND(width, height, zoom, []string{texture}, []int16{0}, tiles)
}
