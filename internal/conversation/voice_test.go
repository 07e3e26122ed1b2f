package conversation

import (
	"testing"

	"companion-chat/backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestSelectVoice(t *testing.T) {
	tests := []struct {
		name      string
		character models.Character
		want      Voice
	}{
		{
			name:      "female soft",
			character: models.Character{Appearance: "she has soft gentle eyes"},
			want:      VoiceSoftFemale,
		},
		{
			name:      "female default",
			character: models.Character{Description: "A woman who runs a bakery"},
			want:      VoiceFemale,
		},
		{
			name:      "male deep",
			character: models.Character{Personality: "deep rough voice"},
			want:      VoiceDeepMale,
		},
		{
			name:      "male default",
			character: models.Character{Description: "A guy who likes hiking", Personality: "funny", Appearance: "tall"},
			want:      VoiceMale,
		},
		{
			name:      "case insensitive",
			character: models.Character{Description: "GIRL next door", Personality: "SHY"},
			want:      VoiceSoftFemale,
		},
		{
			name:      "female cue wins over deep cue",
			character: models.Character{Description: "strong woman"},
			want:      VoiceFemale,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectVoice(tt.character))
			// pure: same input, same output
			assert.Equal(t, SelectVoice(tt.character), SelectVoice(tt.character))
		})
	}
}
