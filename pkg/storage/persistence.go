package storage

import (
	"fmt"
	"io"
	"os"

	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// SaveToFile writes an lz4-compressed msgpack snapshot of every collection
// to a single file.
func (se *StorageEngine) SaveToFile(filename string) error {
	snap := newSnapshot()

	se.mu.RLock()
	for name, coll := range se.collections {
		coll.mu.RLock()
		docs := make(map[string]map[string]interface{}, len(coll.docs))
		for id, doc := range coll.docs {
			docs[id] = map[string]interface{}(doc)
		}
		snap.Collections[name] = docs
		snap.Order[name] = append([]string(nil), coll.order...)
		snap.Indexes[name] = append(snap.Indexes[name], coll.specs...)
		snap.NextIDs[name] = coll.nextID
		coll.mu.RUnlock()
	}
	se.mu.RUnlock()

	msgpackData, err := msgpack.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode MessagePack: %w", err)
	}
	compressedData := make([]byte, lz4.CompressBlockBound(len(msgpackData)))
	var hashTable [1 << 16]int
	n, err := lz4.CompressBlock(msgpackData, compressedData, hashTable[:])
	if err != nil {
		return fmt.Errorf("failed to compress data: %w", err)
	}
	compressedData = compressedData[:n]

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()
	if err := WriteHeader(file); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := file.Write(compressedData); err != nil {
		return fmt.Errorf("failed to write compressed data: %w", err)
	}

	se.markClean()
	return nil
}

// LoadFromFile restores the engine from a snapshot file. A missing file is
// not an error: the engine simply starts empty. Inverted indexes are
// rebuilt from the restored documents and specs.
func (se *StorageEngine) LoadFromFile(filename string) error {
	se.dataFile = filename

	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if _, err = ReadHeader(file); err != nil {
		return fmt.Errorf("invalid file header: %w", err)
	}
	compressedData, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("failed to read compressed data: %w", err)
	}

	decompressed, err := decompressBlock(compressedData)
	if err != nil {
		return fmt.Errorf("failed to decompress data: %w", err)
	}
	var snap snapshot
	if err := msgpack.Unmarshal(decompressed, &snap); err != nil {
		return fmt.Errorf("failed to decode MessagePack: %w", err)
	}

	se.mu.Lock()
	defer se.mu.Unlock()
	se.collections = make(map[string]*collectionData, len(snap.Collections))
	for name, rawDocs := range snap.Collections {
		coll := &collectionData{
			name:    name,
			docs:    make(map[string]Document, len(rawDocs)),
			indexes: make(map[string]*Index),
			nextID:  snap.NextIDs[name],
		}
		for id, raw := range rawDocs {
			coll.docs[id] = Document(raw)
		}
		if order, ok := snap.Order[name]; ok && len(order) == len(coll.docs) {
			coll.order = order
		} else {
			for id := range coll.docs {
				coll.order = append(coll.order, id)
			}
		}
		for _, spec := range snap.Indexes[name] {
			idx := newIndex(spec)
			idx.build(coll)
			coll.indexes[spec.Name] = idx
			coll.specs = append(coll.specs, spec)
		}
		se.collections[name] = coll
	}
	return nil
}

// decompressBlock inflates an lz4 block, growing the output buffer until
// the block fits.
func decompressBlock(compressed []byte) ([]byte, error) {
	size := len(compressed) * 4
	if size < 1024 {
		size = 1024
	}
	for {
		out := make([]byte, size)
		n, err := lz4.UncompressBlock(compressed, out)
		if err == nil {
			return out[:n], nil
		}
		if size > 1<<30 {
			return nil, err
		}
		size *= 2
	}
}

// markClean clears the dirty flag on every collection after a full save.
func (se *StorageEngine) markClean() {
	se.mu.RLock()
	defer se.mu.RUnlock()
	for _, coll := range se.collections {
		coll.mu.Lock()
		coll.dirty = false
		coll.mu.Unlock()
	}
}

// hasDirtyCollections reports whether any collection changed since the
// last save.
func (se *StorageEngine) hasDirtyCollections() bool {
	se.mu.RLock()
	defer se.mu.RUnlock()
	for _, coll := range se.collections {
		coll.mu.RLock()
		dirty := coll.dirty
		coll.mu.RUnlock()
		if dirty {
			return true
		}
	}
	return false
}
