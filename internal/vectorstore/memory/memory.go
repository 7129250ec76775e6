package memory

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"trueneutral/internal/domain"
)

// Storage is a simple in-memory vector store using brute-force cosine similarity.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float64
	tags      []int
	byTag     map[int]struct{}
}

func NewStorage() *Storage { return &Storage{} }

func (s *Storage) Init(dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.vectors = nil
	s.tags = nil
	s.byTag = make(map[int]struct{})
	return nil
}

func (s *Storage) Upsert(tags []int, vectors [][]float64) error {
	if len(tags) != len(vectors) {
		return errors.New("tags and vectors length mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension == 0 {
		return errors.New("storage not initialized")
	}
	for i, v := range vectors {
		if len(v) != s.dimension {
			return errors.New("vector dimension mismatch")
		}
		if _, dup := s.byTag[tags[i]]; dup {
			return fmt.Errorf("duplicate tag %d", tags[i])
		}
	}
	for _, tag := range tags {
		s.byTag[tag] = struct{}{}
	}
	s.tags = append(s.tags, tags...)
	s.vectors = append(s.vectors, vectors...)
	return nil
}

// Search returns the topK most similar documents by cosine similarity, highest first.
// Equal scores are ordered by ascending tag.
func (s *Storage) Search(vector []float64, topK int) ([]domain.Neighbor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("query dimension %d, store dimension %d", len(vector), s.dimension)
	}
	if topK <= 0 {
		topK = 5
	}
	results := make([]domain.Neighbor, len(s.vectors))
	qn := norm(vector)
	for i := range s.vectors {
		results[i] = domain.Neighbor{Tag: s.tags[i], Score: cosine(s.vectors[i], vector, qn)}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Tag < results[j].Tag
	})
	if topK > len(results) {
		topK = len(results)
	}
	return results[:topK], nil
}

func (s *Storage) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = nil
	s.tags = nil
	s.byTag = make(map[int]struct{})
	return nil
}

// Len reports the number of stored vectors.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}

// cosine of a and b; zero vectors score 0.
func cosine(a, b []float64, bn float64) float64 {
	an := norm(a)
	if an == 0 || bn == 0 {
		return 0
	}
	return dot(a, b) / (an * bn)
}

func norm(v []float64) float64 {
	return math.Sqrt(dot(v, v))
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
