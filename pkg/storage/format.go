package storage

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/adfharrison1/go-odm/pkg/domain"
)

const (
	// Magic bytes to identify our snapshot format
	MagicBytes = "GODM"
	// Current version
	FormatVersion = 1
	// File extension for snapshot files
	FileExtension = ".godm"
)

// FileHeader represents the header of a snapshot file
type FileHeader struct {
	Magic    [4]byte // "GODM"
	Version  uint8   // Format version
	Flags    uint8   // Reserved for future use
	Reserved [2]byte // Reserved for future use
}

// WriteHeader writes the file header to the given writer
func WriteHeader(w io.Writer) error {
	header := FileHeader{
		Magic:    [4]byte{'G', 'O', 'D', 'M'},
		Version:  FormatVersion,
		Flags:    0,
		Reserved: [2]byte{0, 0},
	}
	return binary.Write(w, binary.LittleEndian, header)
}

// ReadHeader reads and validates the file header
func ReadHeader(r io.Reader) (*FileHeader, error) {
	var header FileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if string(header.Magic[:]) != MagicBytes {
		return nil, fmt.Errorf("invalid file format: expected %s, got %s", MagicBytes, string(header.Magic[:]))
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported file version: %d", header.Version)
	}
	return &header, nil
}

// snapshot is the persisted shape of the whole engine: documents, their
// insertion order, and index specs per collection. Inverted indexes are
// rebuilt on load rather than stored.
type snapshot struct {
	Collections map[string]map[string]map[string]interface{} `msgpack:"collections"`
	Order       map[string][]string                          `msgpack:"order"`
	Indexes     map[string][]domain.IndexSpec                `msgpack:"indexes"`
	NextIDs     map[string]int64                             `msgpack:"next_ids"`
}

func newSnapshot() *snapshot {
	return &snapshot{
		Collections: make(map[string]map[string]map[string]interface{}),
		Order:       make(map[string][]string),
		Indexes:     make(map[string][]domain.IndexSpec),
		NextIDs:     make(map[string]int64),
	}
}
