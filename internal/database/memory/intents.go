package memory

import (
	"context"
	"sync"

	"tutora_back_end/internal/models"
)

type IntentStore struct {
	mu      sync.Mutex
	records map[string]models.PaymentIntentRecord
}

func NewIntentStore(seed ...models.PaymentIntentRecord) *IntentStore {
	s := &IntentStore{records: make(map[string]models.PaymentIntentRecord)}
	for _, rec := range seed {
		s.records[rec.IntentID] = rec
	}
	return s
}

// Save écrase un enregistrement existant : le processeur renvoie le même intent pour une même clé
func (s *IntentStore) Save(ctx context.Context, rec models.PaymentIntentRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.IntentID] = rec
	return nil
}

func (s *IntentStore) Find(ctx context.Context, intentID string) (*models.PaymentIntentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[intentID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}
