package hostfuncs

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MinTickDuration is the shortest tick setTickDuration accepts.
const MinTickDuration = 10 * time.Millisecond

// SimulationControl is the part of the game engine the system module drives.
type SimulationControl interface {
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	TickDuration(ctx context.Context) (time.Duration, error)
	SetTickDuration(ctx context.Context, d time.Duration) error
}

// Simulation is an in-process SimulationControl for engines that poll
// their own pause flag and tick rate. Safe for concurrent use.
type Simulation struct {
	mu     sync.RWMutex
	paused bool
	tick   time.Duration
}

// NewSimulation returns a running simulation with the given tick duration.
func NewSimulation(tick time.Duration) *Simulation {
	if tick < MinTickDuration {
		tick = MinTickDuration
	}
	return &Simulation{tick: tick}
}

func (s *Simulation) Pause(context.Context) error {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
	return nil
}

func (s *Simulation) Resume(context.Context) error {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
	return nil
}

// Paused reports whether the simulation is paused.
func (s *Simulation) Paused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused
}

func (s *Simulation) TickDuration(context.Context) (time.Duration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tick, nil
}

func (s *Simulation) SetTickDuration(_ context.Context, d time.Duration) error {
	if d < MinTickDuration {
		return &ArgumentError{Index: 0, Reason: fmt.Sprintf("tick duration must be at least %dms", MinTickDuration.Milliseconds())}
	}
	s.mu.Lock()
	s.tick = d
	s.mu.Unlock()
	return nil
}

func systemHandlers(sim SimulationControl) map[string]ByteHandler {
	return map[string]ByteHandler{
		"system.pauseSimulation": NewJSONHandler(func(ctx context.Context, _ Args) (string, error) {
			if err := sim.Pause(ctx); err != nil {
				return "", err
			}
			return "OK", nil
		}),
		"system.resumeSimulation": NewJSONHandler(func(ctx context.Context, _ Args) (string, error) {
			if err := sim.Resume(ctx); err != nil {
				return "", err
			}
			return "OK", nil
		}),
		"system.getTickDuration": NewJSONHandler(func(ctx context.Context, _ Args) (int64, error) {
			d, err := sim.TickDuration(ctx)
			if err != nil {
				return 0, err
			}
			return d.Milliseconds(), nil
		}),
		"system.setTickDuration": NewJSONHandler(func(ctx context.Context, args Args) (string, error) {
			ms, err := args.Int(0)
			if err != nil {
				return "", err
			}
			if err := sim.SetTickDuration(ctx, time.Duration(ms)*time.Millisecond); err != nil {
				return "", err
			}
			return fmt.Sprintf("OK, tick duration is %dms", ms), nil
		}),
	}
}
