package game

import (
	"fmt"

	"go.uber.org/zap"
)

// Replay rebuilds an engine from a journal header and re-applies every frame.
// Identical frames from the same seed and epoch reproduce the session exactly,
// so the returned engine's snapshot matches the recorded one.
func Replay(j *Journal, logger *zap.Logger) (*Engine, error) {
	if j == nil {
		return nil, fmt.Errorf("replay: nil journal")
	}
	if j.Header.Version != EventVersion {
		return nil, fmt.Errorf("replay: unsupported journal version %d", j.Header.Version)
	}
	placement, err := PlacementByName(j.Header.Placement)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	e := NewEngine(EngineOptions{
		Tuning:    j.Header.Tuning,
		Placement: placement,
		Seed:      j.Header.Seed,
		Epoch:     j.Header.Epoch,
		Logger:    logger,
	})
	for _, f := range j.Frames {
		e.Apply(f)
	}
	return e, nil
}
