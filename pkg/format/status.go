package format

import (
	"strconv"

	"github.com/chickenjockey/sitestatus/pkg/types"
)

// TroubleNotice is shown on a card when a feed could not be reached.
const TroubleNotice = "Trouble reaching the API. Showing what we can."

// StatusLabel renders the status pill of a card. A nil status means the
// latest feed has not answered yet.
func StatusLabel(s *types.LatestStatus) string {
	switch {
	case s == nil:
		return "Loading…"
	case s.Up:
		return "Online"
	default:
		return "Offline"
	}
}

// BannerMessage renders the game-server banner line.
func BannerMessage(up bool) string {
	if up {
		return "The server is currently up!"
	}
	return "The server is currently down!"
}

// Latency renders a latency reading as "123ms", or the placeholder.
func Latency(ms *float64) string {
	if ms == nil {
		return Placeholder
	}
	return Number(*ms) + "ms"
}

// Players renders "online/max", or the placeholder unless both are known.
func Players(online, capacity *int) string {
	if online == nil || capacity == nil {
		return Placeholder
	}
	return strconv.Itoa(*online) + "/" + strconv.Itoa(*capacity)
}
