package vector

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/hyperjump/kotae/pkg/utils"
)

// MemoryIndex is an in-memory index using brute-force cosine distance.
type MemoryIndex struct {
	dimensions int
	ids        []string
	vectors    [][]float32
	pos        map[string]int
	mu         sync.RWMutex
}

// NewMemoryIndex creates an in-memory vector index with the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{
		dimensions: dimensions,
		pos:        make(map[string]int),
	}, nil
}

// Dimensions returns the vector width the index accepts.
func (m *MemoryIndex) Dimensions() int {
	return m.dimensions
}

// Add stores copies of vectors under ids.
func (m *MemoryIndex) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch")
	}
	for i := range vectors {
		if len(vectors[i]) != m.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vectors[i]), m.dimensions)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, id := range ids {
		vec := make([]float32, m.dimensions)
		copy(vec, vectors[i])
		if p, ok := m.pos[id]; ok {
			m.vectors[p] = vec
			continue
		}
		m.pos[id] = len(m.ids)
		m.ids = append(m.ids, id)
		m.vectors = append(m.vectors, vec)
	}
	return nil
}

// Search ranks every stored vector by distance to query. Ties keep insertion order.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int) ([]*Result, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.ids) == 0 {
		return nil, nil
	}
	results := make([]*Result, len(m.ids))
	for i, vec := range m.vectors {
		results[i] = &Result{ID: m.ids[i], Distance: utils.CosineDistance(query, vec)}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// Distances computes the distance from query to each stored id.
func (m *MemoryIndex) Distances(ctx context.Context, query []float32, ids []string) (map[string]float64, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]float64, len(ids))
	for _, id := range ids {
		if p, ok := m.pos[id]; ok {
			out[id] = utils.CosineDistance(query, m.vectors[p])
		}
	}
	return out, nil
}

// Remove deletes vectors by id. Unknown ids are ignored.
func (m *MemoryIndex) Remove(ctx context.Context, ids []string) error {
	removeSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		removeSet[id] = true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	newIDs := make([]string, 0, len(m.ids))
	newVectors := make([][]float32, 0, len(m.vectors))
	for i, id := range m.ids {
		if !removeSet[id] {
			newIDs = append(newIDs, id)
			newVectors = append(newVectors, m.vectors[i])
		}
	}
	m.ids = newIDs
	m.vectors = newVectors
	m.reindex()
	return nil
}

func (m *MemoryIndex) reindex() {
	m.pos = make(map[string]int, len(m.ids))
	for i, id := range m.ids {
		m.pos[id] = i
	}
}

// fileMagic starts every saved index so a stale or foreign file fails Load instead of
// being read as vectors.
const fileMagic = "KVX1"

// ErrBadIndexFile is returned by Load for files that are not saved MemoryIndex files.
var ErrBadIndexFile = errors.New("not a vector index file")

// Save persists the index to path through a temporary file and a rename. Directory is created
// if needed. Format: magic (4), dimension (4), n (4), then per vector: idLen (4), id bytes,
// vector (dimension*4 bytes). Integers are little endian.
func (m *MemoryIndex) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	if err := m.write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close index file: %w", err)
	}
	return os.Rename(tmp, path)
}

func (m *MemoryIndex) write(w io.Writer) error {
	if _, err := io.WriteString(w, fileMagic); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(m.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(m.ids))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i, id := range m.ids {
		if err := binary.Write(w, binary.LittleEndian, uint32(len(id))); err != nil {
			return fmt.Errorf("write id len: %w", err)
		}
		if _, err := io.WriteString(w, id); err != nil {
			return fmt.Errorf("write id: %w", err)
		}
		if _, err := w.Write(float32SliceToBytes(m.vectors[i])); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// Load reads the index from path and replaces the in-memory contents. Dimensions must match.
// If the file does not exist, no error is returned and the index is unchanged.
func (m *MemoryIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	magic := make([]byte, len(fileMagic))
	if _, err := io.ReadFull(f, magic); err != nil || string(magic) != fileMagic {
		return fmt.Errorf("%w: %s", ErrBadIndexFile, path)
	}
	var dim, n uint32
	if err := binary.Read(f, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("read dimensions: %w", err)
	}
	if int(dim) != m.dimensions {
		return fmt.Errorf("dimension mismatch: file has %d, index expects %d", dim, m.dimensions)
	}
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("read count: %w", err)
	}
	ids := make([]string, 0, n)
	vectors := make([][]float32, 0, n)
	buf := make([]byte, m.dimensions*4)
	for i := uint32(0); i < n; i++ {
		var idLen uint32
		if err := binary.Read(f, binary.LittleEndian, &idLen); err != nil {
			return fmt.Errorf("read id len: %w", err)
		}
		idBytes := make([]byte, idLen)
		if _, err := io.ReadFull(f, idBytes); err != nil {
			return fmt.Errorf("read id: %w", err)
		}
		if _, err := io.ReadFull(f, buf); err != nil {
			return fmt.Errorf("read vector: %w", err)
		}
		ids = append(ids, string(idBytes))
		vectors = append(vectors, bytesToFloat32Slice(buf))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = ids
	m.vectors = vectors
	m.reindex()
	return nil
}

func float32SliceToBytes(s []float32) []byte {
	out := make([]byte, len(s)*4)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

// Size returns the number of vectors in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}
