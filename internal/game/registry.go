package game

import (
	"fmt"
	"sync"

	"arcade-bot/internal/model"
)

// Registry manages game registration and lookup by type or command.
// It is safe for concurrent use.
type Registry struct {
	games map[model.GameType]Game
	order []model.GameType
	mu    sync.RWMutex
}

// NewRegistry creates a new game registry.
func NewRegistry() *Registry {
	return &Registry{games: make(map[model.GameType]Game)}
}

// Register adds a game to the registry.
// If a game with the same type already exists, it is replaced in place.
func (r *Registry) Register(g Game) error {
	if g == nil {
		return fmt.Errorf("cannot register nil game")
	}
	if g.Type() == "" || g.Command() == "" {
		return fmt.Errorf("game type and command cannot be empty")
	}
	if g.Draws() < 1 || g.Faces() < 1 {
		return fmt.Errorf("game %s has an empty outcome space", g.Type())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.games[g.Type()]; !ok {
		r.order = append(r.order, g.Type())
	}
	r.games[g.Type()] = g
	return nil
}

// Get retrieves a game by its type.
func (r *Registry) Get(t model.GameType) (Game, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.games[t]
	return g, ok
}

// Resolve looks up the game and resolves the outcomes in one step.
func (r *Registry) Resolve(t model.GameType, outcomes []int) (*Result, error) {
	g, ok := r.Get(t)
	if !ok {
		return nil, fmt.Errorf("game %q is not registered", t)
	}
	return g.Resolve(outcomes)
}

// List returns all registered games in registration order.
func (r *Registry) List() []Game {
	r.mu.RLock()
	defer r.mu.RUnlock()

	games := make([]Game, len(r.order))
	for i, t := range r.order {
		games[i] = r.games[t]
	}
	return games
}

// Commands returns all registered game commands.
func (r *Registry) Commands() []string {
	games := r.List()
	commands := make([]string, len(games))
	for i, g := range games {
		commands[i] = g.Command()
	}
	return commands
}

// Count returns the number of registered games.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games)
}
