package session

import (
	"encoding/json"
	"sort"
	"sync"

	"lms_backend/internal/model"
)

// AnswerStore is the single in-memory source of truth for an attempt's
// answers. Writes are last-write-wins; changed question IDs are tracked
// until drained by a sync round.
type AnswerStore struct {
	mu      sync.Mutex
	answers model.Answers
	pending map[uint]struct{}
}

func NewAnswerStore() *AnswerStore {
	return &AnswerStore{
		answers: make(model.Answers),
		pending: make(map[uint]struct{}),
	}
}

// Seed replaces the contents with answers already known to the server.
// Seeded answers are not pending.
func (s *AnswerStore) Seed(answers model.Answers) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers = answers.Clone()
	s.pending = make(map[uint]struct{})
}

func (s *AnswerStore) Set(questionID uint, value json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers[questionID] = value
	s.pending[questionID] = struct{}{}
}

func (s *AnswerStore) Get(questionID uint) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.answers[questionID]
	return v, ok
}

// All returns a snapshot of every answer.
func (s *AnswerStore) All() model.Answers {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answers.Clone()
}

func (s *AnswerStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers)
}

// DrainPending returns and clears the IDs changed since the last drain.
func (s *AnswerStore) DrainPending() []uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drainLocked()
}

func (s *AnswerStore) HasPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending) > 0
}

// Batch is a drained set of changes together with their values.
type Batch struct {
	IDs     []uint
	Answers model.Answers
}

// Take drains pending IDs and snapshots their values in one step, so a Set
// racing with a flush either lands in this batch or stays pending.
func (s *AnswerStore) Take() Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.drainLocked()
	b := Batch{IDs: ids, Answers: make(model.Answers, len(ids))}
	for _, id := range ids {
		b.Answers[id] = s.answers[id]
	}
	return b
}

// Requeue marks ids as pending again after a failed flush.
func (s *AnswerStore) Requeue(ids []uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.pending[id] = struct{}{}
	}
}

func (s *AnswerStore) drainLocked() []uint {
	ids := make([]uint, 0, len(s.pending))
	for id := range s.pending {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	s.pending = make(map[uint]struct{})
	return ids
}
