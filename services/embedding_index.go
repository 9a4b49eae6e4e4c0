package services

import (
	"sync"

	"github.com/coder/hnsw"

	"github.com/calebwray/attendsysbackend/models"
)

const indexMaxNeighbors = 16

// indexEntry ties an indexed embedding back to its owning student
type indexEntry struct {
	studentID uint
	embedding []float32
}

// EmbeddingIndex wraps an HNSW graph over all stored face encodings, keyed
// by encoding ID. It is used to shortlist candidate students before exact
// distance scoring.
type EmbeddingIndex struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[uint]
	entries map[uint]indexEntry
}

func NewEmbeddingIndex() *EmbeddingIndex {
	return &EmbeddingIndex{entries: make(map[uint]indexEntry)}
}

// BuildFromEncodings rebuilds the index from scratch
func (ix *EmbeddingIndex) BuildFromEncodings(encodings []models.FaceEncoding) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if len(encodings) == 0 {
		ix.graph = nil
		ix.entries = make(map[uint]indexEntry)
		return
	}

	g := hnsw.NewGraph[uint]()
	g.M = indexMaxNeighbors
	g.Ml = 1.0 / float64(indexMaxNeighbors)
	g.Distance = hnsw.CosineDistance

	ix.entries = make(map[uint]indexEntry, len(encodings))
	for i := range encodings {
		emb := encodings[i].GetEmbedding()
		if len(emb) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(encodings[i].ID, emb))
		ix.entries[encodings[i].ID] = indexEntry{studentID: encodings[i].StudentID, embedding: emb}
	}
	ix.graph = g
}

// Add inserts a single encoding into the index
func (ix *EmbeddingIndex) Add(encodingID, studentID uint, embedding []float32) {
	if len(embedding) == 0 {
		return
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.graph == nil {
		g := hnsw.NewGraph[uint]()
		g.M = indexMaxNeighbors
		g.Ml = 1.0 / float64(indexMaxNeighbors)
		g.Distance = hnsw.CosineDistance
		ix.graph = g
	}
	ix.graph.Add(hnsw.MakeNode(encodingID, embedding))
	ix.entries[encodingID] = indexEntry{studentID: studentID, embedding: embedding}
}

// CandidateStudents returns the distinct student IDs owning the k nearest
// indexed encodings. Returns nil when the index is empty, which callers
// treat as "scan everything".
func (ix *EmbeddingIndex) CandidateStudents(query []float32, k int) []uint {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.graph == nil || len(ix.entries) == 0 {
		return nil
	}

	neighbors := ix.graph.Search(query, k)
	seen := make(map[uint]bool, len(neighbors))
	students := make([]uint, 0, len(neighbors))
	for _, n := range neighbors {
		entry, ok := ix.entries[n.Key]
		if !ok || seen[entry.studentID] {
			continue
		}
		seen[entry.studentID] = true
		students = append(students, entry.studentID)
	}
	return students
}

// Count returns the number of indexed encodings
func (ix *EmbeddingIndex) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}
