package game

import (
	"encoding/json"

	"github.com/njyeung/sprunki/fullscreen"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type EventType int

const (
	EventFullscreenChange EventType = iota
	EventHidden
	EventNavigation
	EventStarted
)

func (t EventType) String() string {
	switch t {
	case EventFullscreenChange:
		return "fullscreenchange"
	case EventHidden:
		return "hidden"
	case EventNavigation:
		return "navigation"
	case EventStarted:
		return "started"
	}
	return "unknown"
}

// Event is something the page reported
type Event struct {
	Type   EventType
	Active bool // native fullscreen state for EventFullscreenChange
}

func parseEvent(payload string) (Event, error) {
	var raw struct {
		Type   string `json:"type"`
		Active bool   `json:"active"`
	}
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return Event{}, errors.Wrap(err, "decode page event")
	}
	for _, t := range []EventType{EventFullscreenChange, EventHidden, EventNavigation, EventStarted} {
		if t.String() == raw.Type {
			return Event{Type: t, Active: raw.Active}, nil
		}
	}
	return Event{}, errors.Errorf("unknown page event %q", raw.Type)
}

// Drive feeds page events into the fullscreen machine until events closes
func Drive(events <-chan Event, m *fullscreen.Machine, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for ev := range events {
		var err error
		switch ev.Type {
		case EventFullscreenChange:
			err = m.SyncNative(ev.Active)
		case EventHidden:
			err = m.ForceNormal(fullscreen.ReasonHidden)
		case EventNavigation:
			err = m.ForceNormal(fullscreen.ReasonNavigation)
		case EventStarted:
			m.SetStarted(true)
		}
		if err != nil {
			logger.Warn("page event not applied", zap.Stringer("event", ev.Type), zap.Error(err))
		}
	}
}
