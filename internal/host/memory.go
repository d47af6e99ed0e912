package host

import (
	"fmt"
	"sync"

	"github.com/tablelink/tablelink/pkg/dice"
	"github.com/tablelink/tablelink/pkg/protocol"
)

// Stat is one gauge attribute of an entity (HP, mana, ...).
type Stat struct {
	Label string
	Value float64
	Max   float64
}

// Ability is one usable item with a limited number of uses; Uses < 0
// means unlimited.
type Ability struct {
	ID   string
	Name string
	Uses int
}

// Entity is one controllable token on the in-memory grid.
type Entity struct {
	ID          string
	ContainerID string
	Name        string
	OwnerID     string
	OwnerName   string
	X           float64
	Y           float64
	Stats       []Stat
	Abilities   []Ability
}

const gridSystemID = "grid"

// gridSystem is the built-in normalization adapter for the memory grid.
type gridSystem struct{}

func (gridSystem) SystemID() string { return gridSystemID }

func (gridSystem) Normalize(ref EntityRef, stats []protocol.StatBar, abilities []protocol.AbilityRef) protocol.ActorPayload {
	return protocol.ActorPayload{
		EntityID:  ref.EntityID,
		Name:      ref.Name,
		SystemID:  gridSystemID,
		Stats:     stats,
		Abilities: abilities,
	}
}

// MemoryAdapter is a complete in-process Adapter: entities on a square
// grid with stats, limited-use abilities, a dice roller, and a chat log.
// It backs tests and the demo host binary.
type MemoryAdapter struct {
	mu       sync.Mutex
	step     float64
	entities map[string]*Entity // containerID/entityID
	chat     []string
	src      dice.Source
	systems  *SystemRegistry
}

var _ Adapter = (*MemoryAdapter)(nil)

func NewMemoryAdapter(src dice.Source) *MemoryAdapter {
	systems := NewSystemRegistry()
	systems.Register(gridSystem{})
	return &MemoryAdapter{
		step:     50,
		entities: make(map[string]*Entity),
		src:      src,
		systems:  systems,
	}
}

func key(containerID, entityID string) string {
	return containerID + "/" + entityID
}

// AddEntity places an entity on the grid.
func (a *MemoryAdapter) AddEntity(e Entity) {
	a.mu.Lock()
	defer a.mu.Unlock()
	clone := e
	a.entities[key(e.ContainerID, e.ID)] = &clone
}

func (a *MemoryAdapter) ResolveEntity(containerID, entityID string) (EntityRef, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	e, ok := a.entities[key(containerID, entityID)]
	if !ok {
		return EntityRef{}, fmt.Errorf("entity %s not found in %s", entityID, containerID)
	}
	return EntityRef{
		EntityID:    e.ID,
		ContainerID: e.ContainerID,
		Name:        e.Name,
		OwnerID:     e.OwnerID,
		OwnerName:   e.OwnerName,
		SystemID:    gridSystemID,
		X:           e.X,
		Y:           e.Y,
		GridStep:    a.step,
	}, nil
}

func (a *MemoryAdapter) ApplyMovement(ref EntityRef, x, y float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	e, ok := a.entities[key(ref.ContainerID, ref.EntityID)]
	if !ok {
		return fmt.Errorf("entity %s not found in %s", ref.EntityID, ref.ContainerID)
	}
	e.X = x
	e.Y = y
	return nil
}

func (a *MemoryAdapter) UseAbility(ref EntityRef, abilityID string) (AbilityResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	e, ok := a.entities[key(ref.ContainerID, ref.EntityID)]
	if !ok {
		return AbilityResult{}, fmt.Errorf("entity %s not found in %s", ref.EntityID, ref.ContainerID)
	}
	for i := range e.Abilities {
		ab := &e.Abilities[i]
		if ab.ID != abilityID {
			continue
		}
		if ab.Uses == 0 {
			return AbilityResult{Success: false, Message: fmt.Sprintf("%s has no uses of %s left", e.Name, ab.Name)}, nil
		}
		if ab.Uses > 0 {
			ab.Uses--
		}
		return AbilityResult{Success: true, Message: fmt.Sprintf("%s uses %s", e.Name, ab.Name)}, nil
	}
	return AbilityResult{Success: false, Message: fmt.Sprintf("%s does not have %s", e.Name, abilityID)}, nil
}

func (a *MemoryAdapter) RollDice(formula string) (dice.RollResult, error) {
	return dice.RollFormula(formula, a.src)
}

func (a *MemoryAdapter) ExtractPanelData(ref EntityRef) (protocol.ActorPayload, error) {
	a.mu.Lock()
	e, ok := a.entities[key(ref.ContainerID, ref.EntityID)]
	if !ok {
		a.mu.Unlock()
		return protocol.ActorPayload{}, fmt.Errorf("entity %s not found in %s", ref.EntityID, ref.ContainerID)
	}

	stats := make([]protocol.StatBar, 0, len(e.Stats))
	for _, s := range e.Stats {
		stats = append(stats, protocol.StatBar{Label: s.Label, Value: s.Value, Max: s.Max})
	}
	abilities := make([]protocol.AbilityRef, 0, len(e.Abilities))
	for _, ab := range e.Abilities {
		abilities = append(abilities, protocol.AbilityRef{ItemID: ab.ID, Name: ab.Name})
	}
	a.mu.Unlock()

	system, ok := a.systems.Lookup(ref.SystemID)
	if !ok {
		return protocol.ActorPayload{}, fmt.Errorf("no system adapter for %q", ref.SystemID)
	}
	return system.Normalize(ref, stats, abilities), nil
}

func (a *MemoryAdapter) ListEntities(ownerID string) []protocol.EntitySummary {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []protocol.EntitySummary
	for _, e := range a.entities {
		if e.OwnerID == ownerID {
			out = append(out, protocol.EntitySummary{
				EntityID:    e.ID,
				EntityName:  e.Name,
				ContainerID: e.ContainerID,
			})
		}
	}
	return out
}

func (a *MemoryAdapter) PostChatMessage(text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.chat = append(a.chat, text)
	return nil
}

// ChatLog returns a copy of all posted chat messages.
func (a *MemoryAdapter) ChatLog() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.chat))
	copy(out, a.chat)
	return out
}
