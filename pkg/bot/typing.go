package bot

import (
	"time"
)

// Discord's typing indicator lasts about ten seconds.
const typingRefresh = 8 * time.Second

// typingDuration turns the persona's delay hint into how long the bot
// actually shows "typing", capped so a realistic fifteen minute delay does
// not hold a goroutine for fifteen minutes.
func typingDuration(delaySeconds int, limit time.Duration) time.Duration {
	d := time.Duration(delaySeconds) * time.Second
	if d > limit {
		d = limit
	}
	if d < 0 {
		return 0
	}
	return d
}

// simulateTyping shows the typing indicator for d, refreshing as needed.
func (h *Handler) simulateTyping(s Session, channelID string, d time.Duration) {
	if d <= 0 {
		return
	}
	s.ChannelTyping(channelID)

	elapsed := time.Duration(0)
	for elapsed < d {
		step := d - elapsed
		if step > typingRefresh {
			step = typingRefresh
		}
		h.sleep(step)
		elapsed += step

		if elapsed < d {
			s.ChannelTyping(channelID)
		}
	}
}
