// Package idgen provides the account id strategies used by the ledger.
package idgen

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	interfaces "github.com/sheikh-saqib/mini-banking-ledger/internal/interfaces"
	"github.com/sheikh-saqib/mini-banking-ledger/internal/models"
)

const (
	StrategySequence = "sequence"
	StrategyUUID     = "uuid"

	// DefaultStart gives 8 digit account numbers.
	DefaultStart uint64 = 10000001
)

// Sequence issues increasing account numbers, zero padded to 8 digits.
type Sequence struct {
	next atomic.Uint64
}

// NewSequence returns a Sequence whose first id is start.
func NewSequence(start uint64) *Sequence {
	s := &Sequence{}
	s.next.Store(start)
	return s
}

func (s *Sequence) NewID() models.AccountID {
	n := s.next.Add(1) - 1
	return models.AccountID(fmt.Sprintf("%08d", n))
}

// UUID issues random v4 uuids.
type UUID struct{}

func NewUUID() UUID {
	return UUID{}
}

func (UUID) NewID() models.AccountID {
	return models.AccountID(uuid.NewString())
}

// New picks a generator by strategy name.
func New(strategy string, start uint64) (interfaces.IDGenerator, error) {
	switch strategy {
	case StrategySequence, "":
		return NewSequence(start), nil
	case StrategyUUID:
		return NewUUID(), nil
	default:
		return nil, fmt.Errorf("unknown id strategy %q", strategy)
	}
}

var (
	_ interfaces.IDGenerator = (*Sequence)(nil)
	_ interfaces.IDGenerator = UUID{}
)
