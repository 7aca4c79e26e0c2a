package session

import (
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/models"
)

// SelectionPolicy picks the starting team. teams is never empty.
type SelectionPolicy interface {
	Pick(teams []models.Team) int
}

// RandomPolicy picks uniformly at random.
type RandomPolicy struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandomPolicy seeds a random policy. Equal seeds pick the same sequence.
func NewRandomPolicy(seed uint64) *RandomPolicy {
	return &RandomPolicy{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (p *RandomPolicy) Pick(teams []models.Team) int {
	if p.rnd == nil {
		return rand.IntN(len(teams))
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rnd.IntN(len(teams))
}

// FixedPolicy always picks TeamID, falling back to the first team when it is not present.
type FixedPolicy struct {
	TeamID uuid.UUID
}

func (p FixedPolicy) Pick(teams []models.Team) int {
	for i, t := range teams {
		if t.ID == p.TeamID {
			return i
		}
	}
	return 0
}

// FirstPolicy picks the first team of the ordering.
type FirstPolicy struct{}

func (FirstPolicy) Pick([]models.Team) int {
	return 0
}

// PolicyFor maps a room setting to a policy.
func PolicyFor(p models.StartPolicy) SelectionPolicy {
	if p == models.StartPolicyFirst {
		return FirstPolicy{}
	}
	return &RandomPolicy{}
}
