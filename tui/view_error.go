package tui

import (
	"fmt"

	"github.com/njyeung/sprunki/backend"
)

func (m Model) viewError() string {
	return fmt.Sprintf("\n\n   %s\n\n   Press q to quit.\n", errorStyle.Render(backend.UserMessage(m.err)))
}
