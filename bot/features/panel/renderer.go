package panel

import (
	"dusko/player"
	"dusko/service"
)

// Renderer is the pure render half of the panel feature. It holds no state
// and touches no connection; everything it needs is in the snapshot.
type Renderer struct{}

// NewRenderer creates a panel renderer
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render produces the full panel content for a session snapshot. A nil
// snapshot renders the placeholder panel with only the Play control live.
func (r *Renderer) Render(snapshot *player.Snapshot) service.PanelContent {
	return service.PanelContent{
		Embeds:     buildEmbeds(snapshot),
		Components: buildComponents(snapshot),
	}
}
