package index

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/samueljklee/codescout/internal/store"
)

// SemanticHit is one chunk scored by vector similarity.
type SemanticHit struct {
	Chunk store.Chunk
	Score float64
}

// Semantic is a brute-force cosine index over chunk vectors. Exhaustive
// scan keeps recall exact; approximate structures only pay off well past
// the corpus sizes a single codebase produces.
type Semantic struct {
	mu      sync.RWMutex
	byFile  map[int64][]string // fileID -> chunk IDs
	chunks  map[string]store.Chunk
	vectors map[string][]float32
	dim     int
}

func NewSemantic() *Semantic {
	return &Semantic{
		byFile:  make(map[int64][]string),
		chunks:  make(map[string]store.Chunk),
		vectors: make(map[string][]float32),
	}
}

// ReplaceFile swaps a file's chunks and vectors in one critical section.
// Chunks with no embedding are kept without a vector so they still serve
// snippet lookups.
func (s *Semantic) ReplaceFile(fileID int64, chunks []store.Chunk, embeddings []store.Embedding) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(fileID)

	vecs := make(map[string][]byte, len(embeddings))
	for _, e := range embeddings {
		vecs[e.ChunkID] = e.Vector
		if s.dim == 0 {
			s.dim = e.Dim
		}
	}

	ids := make([]string, 0, len(chunks))
	for _, c := range chunks {
		ids = append(ids, c.ChunkID)
		s.chunks[c.ChunkID] = c
		if raw, ok := vecs[c.ChunkID]; ok {
			if vec, err := DecodeVector(raw); err == nil {
				s.vectors[c.ChunkID] = vec
			}
		}
	}
	s.byFile[fileID] = ids
}

func (s *Semantic) RemoveFile(fileID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(fileID)
}

func (s *Semantic) removeLocked(fileID int64) {
	for _, id := range s.byFile[fileID] {
		delete(s.chunks, id)
		delete(s.vectors, id)
	}
	delete(s.byFile, fileID)
}

// Search scores every embedded chunk against the query vector and returns
// the top matches, best first. Ties break on chunk ID so repeated queries
// return identical orderings.
func (s *Semantic) Search(queryVec []float32, limit int) []SemanticHit {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := make([]SemanticHit, 0, len(s.vectors))
	for id, vec := range s.vectors {
		score := cosineSimilarity(queryVec, vec)
		if score <= 0 {
			continue
		}
		hits = append(hits, SemanticHit{Chunk: s.chunks[id], Score: score})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Chunk.ChunkID < hits[j].Chunk.ChunkID
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// ChunkByID returns an indexed chunk.
func (s *Semantic) ChunkByID(id string) (store.Chunk, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chunks[id]
	return c, ok
}

func (s *Semantic) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}

// EncodeVector encodes a float32 vector to little-endian bytes for storage.
func EncodeVector(vector []float32) []byte {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, vector); err != nil {
		// Cannot happen with float32 slices.
		panic(fmt.Sprintf("failed to encode vector: %v", err))
	}
	return buf.Bytes()
}

// DecodeVector decodes a stored vector.
func DecodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid vector data length: %d", len(data))
	}
	vector := make([]float32, len(data)/4)
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &vector); err != nil {
		return nil, fmt.Errorf("failed to decode vector: %w", err)
	}
	return vector, nil
}

// cosineSimilarity computes the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}
	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
