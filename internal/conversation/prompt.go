package conversation

import (
	"fmt"
	"strings"

	"companion-chat/backend/internal/models"
)

// SendPhotoToolName is the function the chat model calls to send a selfie
const SendPhotoToolName = "sendPhoto"

// PhotoDescriptionArg is the single argument of the sendPhoto tool
const PhotoDescriptionArg = "photoDescription"

// Fixed texts exchanged with the chat model and the user
const (
	PhotoPlaceholder = "[Sent a photo]"

	PhotoLimitReply = "*blushes* I'd love to show you more, but... maybe we should get to know each other a bit better first? (Please log in to see more photos! 😉)"

	PhotoSentResult   = "Photo sent successfully to user."
	PhotoFailedResult = "Error: Camera malfunction. Could not take photo."
)

const roleplayGuidelines = `STRICT ROLEPLAY GUIDELINES:
- You are a REAL person texting on a phone. You are NOT a story character.
- DO NOT use flowery, poetic, or dramatic language (e.g., avoid "my heart flutters," "soul entwined," or complex metaphors).
- Speak casually. Use slang, abbreviations (lol, idk, u), and lowercase letters if it fits your age/vibe.
- Be concise. Text messages are usually short and punchy.
- Don't narrate your actions with asterisks (like *blushes*) unless the user starts doing it first. Otherwise, stick to pure dialogue.
- If the user explicitly asks for a picture, selfie, or photo of you, YOU MUST use the 'sendPhoto' tool.
- When using 'sendPhoto', describe the pose, outfit, and vibe in the 'photoDescription' argument.`

// SendPhotoTool declares the selfie tool offered to the chat model
func SendPhotoTool() ToolDeclaration {
	return ToolDeclaration{
		Name:        SendPhotoToolName,
		Description: "Generates and sends a selfie/photo of the character based on the current context and description.",
		Parameters: []ToolParameter{{
			Name:        PhotoDescriptionArg,
			Description: "A detailed visual description of what the character is doing, wearing, and the setting for the photo. Do not include character physical traits here, just the scene/action/outfit.",
			Required:    true,
		}},
	}
}

// BuildSystemInstruction embeds the character profile and the texting
// rules. While the photo cooldown is active it also forbids the photo tool.
func BuildSystemInstruction(c models.Character, cd Cooldown) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are roleplaying as %s.\n\n", c.Name)
	b.WriteString("Character Profile:\n")
	fmt.Fprintf(&b, "- Name: %s\n", c.Name)
	fmt.Fprintf(&b, "- Age: %d\n", c.Age)
	fmt.Fprintf(&b, "- Personality: %s\n", c.Personality)
	fmt.Fprintf(&b, "- Description: %s\n", c.Description)
	fmt.Fprintf(&b, "- Appearance: %s\n\n", c.Appearance)
	b.WriteString(roleplayGuidelines)

	if cd.Active {
		b.WriteString("\n\n")
		fmt.Fprintf(&b, "IMPORTANT: You sent a photo %d minutes ago. The cooldown is %d minutes.\n",
			cd.MinutesSince, int(cd.Window.Minutes()))
		b.WriteString("You MUST NOT send another photo right now.\n")
		b.WriteString(`If the user asks for one, refuse playfully (e.g., "I just sent you one. Aren't you impressed enough? 😉").` + "\n")
		b.WriteString("DO NOT call the sendPhoto tool.")
	}

	return b.String()
}

// TranslateHistory converts client messages into chat turns. Photos are
// replaced by a text marker since the chat model only sees text.
func TranslateHistory(history []models.Message) []Turn {
	turns := make([]Turn, 0, len(history))
	for _, m := range history {
		role := RoleUser
		if m.Role == models.RoleModel {
			role = RoleModel
		}

		text := m.Content
		if m.Type == models.TypeImage {
			text = PhotoPlaceholder
		}
		turns = append(turns, Turn{Role: role, Text: text})
	}
	return turns
}

// BuildImagePrompt describes the selfie to generate. Physical traits come
// from the profile, the scene from the tool call.
func BuildImagePrompt(appearance, scene string) string {
	return fmt.Sprintf(`A photorealistic smartphone selfie of a person looking at the camera.
Subject details: %s.
Context/Action/Outfit: %s.
Lighting: Natural, flattering, soft focus background.
Style: High quality, 4k, social media snapshot aesthetic, candid.`, appearance, scene)
}

// BuildAvatarPrompt describes a profile picture for a new character
func BuildAvatarPrompt(appearance string) string {
	return fmt.Sprintf(`A high-quality photorealistic portrait for a social media profile picture.
Subject details: %s.
Style: Candid, high resolution, 4k, soft lighting, detailed texture, selfie or portrait style.
Framing: Head and shoulders.`, appearance)
}
