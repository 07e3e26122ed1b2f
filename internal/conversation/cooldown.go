package conversation

import (
	"time"

	"companion-chat/backend/internal/models"
)

// DefaultCooldown is the minimum gap between two photos
const DefaultCooldown = 8 * time.Minute

// Cooldown describes whether the character may send another photo
type Cooldown struct {
	Active       bool
	MinutesSince int
	Window       time.Duration
}

// CheckCooldown finds the newest photo the character sent and reports
// whether it is younger than window. Timestamps in the future count as
// just sent.
func CheckCooldown(history []models.Message, now time.Time, window time.Duration) Cooldown {
	cd := Cooldown{Window: window}

	for i := len(history) - 1; i >= 0; i-- {
		if !history[i].IsModelImage() {
			continue
		}

		elapsed := now.Sub(history[i].Time())
		if elapsed < window {
			cd.Active = true
			if elapsed > 0 {
				cd.MinutesSince = int(elapsed / time.Minute)
			}
		}
		break
	}

	return cd
}

// CountImages returns how many photos the character has sent so far
func CountImages(history []models.Message) int {
	n := 0
	for _, m := range history {
		if m.IsModelImage() {
			n++
		}
	}
	return n
}
