package conversation

import (
	"strings"

	"companion-chat/backend/internal/models"
)

// Voice is a prebuilt speech voice. The values are the Gemini voice names;
// other providers map them onto their own catalog.
type Voice string

const (
	VoiceSoftFemale Voice = "Aoede"
	VoiceFemale     Voice = "Kore"
	VoiceDeepMale   Voice = "Charon"
	VoiceMale       Voice = "Puck"
)

var (
	femaleCues = []string{"female", "woman", "girl", "she", "her"}
	softCues   = []string{"soft", "gentle", "shy"}
	deepCues   = []string{"deep", "strong", "rough"}
)

// SelectVoice picks a voice from keywords in the character's profile. Cues
// are plain substrings, so "her" also matches words such as "other".
func SelectVoice(c models.Character) Voice {
	profile := strings.ToLower(c.Description + " " + c.Personality + " " + c.Appearance)

	if containsAny(profile, femaleCues) {
		if containsAny(profile, softCues) {
			return VoiceSoftFemale
		}
		return VoiceFemale
	}

	if containsAny(profile, deepCues) {
		return VoiceDeepMale
	}
	return VoiceMale
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
