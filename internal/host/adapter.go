// Package host implements the host-side half of the pairing protocol: the
// bridge that interprets control messages arriving over the room topic,
// and the adapter boundary behind which the actual game application lives.
package host

import (
	"sync"

	"github.com/tablelink/tablelink/pkg/dice"
	"github.com/tablelink/tablelink/pkg/protocol"
)

// EntityRef is a resolved handle to one controllable entity.
type EntityRef struct {
	EntityID    string
	ContainerID string
	Name        string
	OwnerID     string
	OwnerName   string
	SystemID    string
	X           float64
	Y           float64
	// GridStep is the distance one MOVE covers.
	GridStep float64
}

// AbilityResult reports the outcome of using an ability.
type AbilityResult struct {
	Success bool
	Message string
}

// Adapter is the boundary to the host application's internal object
// graph. The bridge and the pairing protocol never see past it.
type Adapter interface {
	ResolveEntity(containerID, entityID string) (EntityRef, error)
	ApplyMovement(ref EntityRef, x, y float64) error
	UseAbility(ref EntityRef, abilityID string) (AbilityResult, error)
	RollDice(formula string) (dice.RollResult, error)
	ExtractPanelData(ref EntityRef) (protocol.ActorPayload, error)
	// ListEntities returns the entities a logged-in user may control.
	ListEntities(ownerID string) []protocol.EntitySummary
	// PostChatMessage publishes text to the host's chat log.
	PostChatMessage(text string) error
}

// SystemAdapter normalizes one game system's native actor attributes into
// the panel payload. Adding a ruleset means adding one adapter.
type SystemAdapter interface {
	SystemID() string
	Normalize(ref EntityRef, stats []protocol.StatBar, abilities []protocol.AbilityRef) protocol.ActorPayload
}

// SystemRegistry maps system identifiers to their normalization adapters.
type SystemRegistry struct {
	mu       sync.RWMutex
	adapters map[string]SystemAdapter
}

func NewSystemRegistry() *SystemRegistry {
	return &SystemRegistry{adapters: make(map[string]SystemAdapter)}
}

func (r *SystemRegistry) Register(a SystemAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.adapters[a.SystemID()]; exists {
		panic("host: system adapter already registered: " + a.SystemID())
	}
	r.adapters[a.SystemID()] = a
}

func (r *SystemRegistry) Lookup(systemID string) (SystemAdapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[systemID]
	return a, ok
}
