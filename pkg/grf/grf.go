// Package grf provides reading functionality for Ragnarok Online GRF archives.
package grf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"

	"github.com/Faultbox/midgard3mf/pkg/encoding"
)

const (
	grfMagic      = "Master of Magic"
	grfVersion    = 0x200
	headerSize    = 46
	entryInfoSize = 17

	flagFile      = 0x01
	flagEncrypted = 0x02
)

// GRF errors.
var (
	ErrInvalidMagic       = errors.New("invalid GRF magic")
	ErrUnsupportedVersion = errors.New("unsupported GRF version")
	ErrNotFound           = errors.New("file not found")
	ErrEncrypted          = errors.New("encrypted entries are not supported")
)

// Archive represents an opened GRF archive.
type Archive struct {
	file     *os.File
	header   Header
	fileList map[string]*Entry
}

// Header contains GRF file header information.
type Header struct {
	Magic         [15]byte
	EncryptionKey [15]byte
	TableOffset   uint32
	Seed          uint32
	FileCount     uint32
	Version       uint32
}

// Entry represents a file entry in the archive. Name is UTF-8, lower case and
// slash separated.
type Entry struct {
	Name             string
	CompressedSize   uint32
	AlignedSize      uint32
	UncompressedSize uint32
	Flags            uint8
	Offset           uint32
}

// Open opens a GRF archive for reading.
func Open(path string) (*Archive, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}

	archive := &Archive{
		file:     file,
		fileList: make(map[string]*Entry),
	}

	if err := archive.readHeader(); err != nil {
		file.Close()
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if err := archive.readFileTable(); err != nil {
		file.Close()
		return nil, fmt.Errorf("reading file table: %w", err)
	}
	return archive, nil
}

// Close closes the archive.
func (a *Archive) Close() error {
	if a.file != nil {
		return a.file.Close()
	}
	return nil
}

// Version returns the archive format version.
func (a *Archive) Version() uint32 {
	return a.header.Version
}

func (a *Archive) readHeader() error {
	if _, err := a.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if err := binary.Read(a.file, binary.LittleEndian, &a.header); err != nil {
		return err
	}
	if string(a.header.Magic[:]) != grfMagic {
		return ErrInvalidMagic
	}
	if a.header.Version != grfVersion {
		return fmt.Errorf("%w: 0x%x", ErrUnsupportedVersion, a.header.Version)
	}
	return nil
}

func (a *Archive) readFileTable() error {
	if _, err := a.file.Seek(int64(a.header.TableOffset)+headerSize, io.SeekStart); err != nil {
		return err
	}

	var sizes struct {
		Compressed   uint32
		Uncompressed uint32
	}
	if err := binary.Read(a.file, binary.LittleEndian, &sizes); err != nil {
		return err
	}

	compressed := make([]byte, sizes.Compressed)
	if _, err := io.ReadFull(a.file, compressed); err != nil {
		return err
	}
	table, err := inflate(compressed, sizes.Uncompressed)
	if err != nil {
		return err
	}

	fileCount := int(a.header.FileCount) - int(a.header.Seed) - 7
	offset := 0
	for i := 0; i < fileCount; i++ {
		nameEnd := bytes.IndexByte(table[offset:], 0)
		if nameEnd < 0 {
			break
		}
		raw := table[offset : offset+nameEnd]
		offset += nameEnd + 1
		if offset+entryInfoSize > len(table) {
			break
		}

		entry := &Entry{
			Name:             encoding.NormalizeGRFPath(encoding.EUCKRToUTF8(raw)),
			CompressedSize:   binary.LittleEndian.Uint32(table[offset:]),
			AlignedSize:      binary.LittleEndian.Uint32(table[offset+4:]),
			UncompressedSize: binary.LittleEndian.Uint32(table[offset+8:]),
			Flags:            table[offset+12],
			Offset:           binary.LittleEndian.Uint32(table[offset+13:]),
		}
		offset += entryInfoSize

		if entry.Flags&flagFile != 0 {
			a.fileList[entry.Name] = entry
		}
	}
	return nil
}

// List returns all file paths in the archive, sorted.
func (a *Archive) List() []string {
	result := make([]string, 0, len(a.fileList))
	for p := range a.fileList {
		result = append(result, p)
	}
	sort.Strings(result)
	return result
}

// Glob returns the sorted paths whose base name matches pattern, using
// path.Match syntax. Matching is case-insensitive.
func (a *Archive) Glob(pattern string) ([]string, error) {
	pattern = encoding.NormalizeGRFPath(pattern)
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("pattern %q: %w", pattern, err)
	}
	var result []string
	for _, p := range a.List() {
		if ok, _ := path.Match(pattern, path.Base(p)); ok {
			result = append(result, p)
		}
	}
	return result, nil
}

// Contains checks if a file exists.
func (a *Archive) Contains(name string) bool {
	_, ok := a.fileList[encoding.NormalizeGRFPath(name)]
	return ok
}

// Entry returns the table entry for name.
func (a *Archive) Entry(name string) (*Entry, bool) {
	entry, ok := a.fileList[encoding.NormalizeGRFPath(name)]
	return entry, ok
}

// Read reads a file from the archive.
func (a *Archive) Read(name string) ([]byte, error) {
	entry, ok := a.Entry(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if entry.Flags&flagEncrypted != 0 {
		return nil, fmt.Errorf("%w: %s", ErrEncrypted, name)
	}

	if _, err := a.file.Seek(int64(entry.Offset)+headerSize, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seeking to %s: %w", name, err)
	}
	stored := make([]byte, entry.AlignedSize)
	if _, err := io.ReadFull(a.file, stored); err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	if entry.CompressedSize == entry.UncompressedSize {
		return stored[:entry.UncompressedSize], nil
	}
	data, err := inflate(stored[:entry.CompressedSize], entry.UncompressedSize)
	if err != nil {
		return nil, fmt.Errorf("decompressing %s: %w", name, err)
	}
	return data, nil
}

func inflate(compressed []byte, size uint32) ([]byte, error) {
	reader, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	out := make([]byte, size)
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, err
	}
	return out, nil
}
