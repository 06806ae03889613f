package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStateRepository backs the state machine without a database.
// Tests and single-node dev setups use it.
type MemoryStateRepository struct {
	mu     sync.Mutex
	states map[uuid.UUID]*State
}

func NewMemoryStateRepository() *MemoryStateRepository {
	return &MemoryStateRepository{states: make(map[uuid.UUID]*State)}
}

func (r *MemoryStateRepository) GetOrCreate(_ context.Context, patientID uuid.UUID) (*State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.states[patientID]; ok {
		cp := *s
		cp.Answers = copyAnswers(s.Answers)
		return &cp, nil
	}
	now := time.Now()
	s := &State{
		PatientID:      patientID,
		Phase:          PhaseIdle,
		Answers:        map[string]string{},
		LastActivityAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	r.states[patientID] = s
	cp := *s
	cp.Answers = copyAnswers(s.Answers)
	return &cp, nil
}

func (r *MemoryStateRepository) Save(_ context.Context, s *State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	cp.Answers = copyAnswers(s.Answers)
	cp.UpdatedAt = time.Now()
	r.states[s.PatientID] = &cp
	return nil
}

func copyAnswers(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// MemoryProcessedRepository is the in-process dedupe set.
type MemoryProcessedRepository struct {
	mu   sync.Mutex
	seen map[string]bool
}

func NewMemoryProcessedRepository() *MemoryProcessedRepository {
	return &MemoryProcessedRepository{seen: make(map[string]bool)}
}

func (r *MemoryProcessedRepository) AlreadyProcessed(_ context.Context, messageID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seen[messageID], nil
}

func (r *MemoryProcessedRepository) MarkProcessed(_ context.Context, messageID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seen[messageID] {
		return false, nil
	}
	r.seen[messageID] = true
	return true, nil
}
