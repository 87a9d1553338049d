package chat

import "github.com/spigell/matchagig/internal/store"

// LastUserMessage returns the content of the most recent user turn. The
// boolean is false when the transcript has no user turn yet.
func LastUserMessage(transcript []store.ChatMessage) (string, bool) {
	for i := len(transcript) - 1; i >= 0; i-- {
		if transcript[i].Role == store.RoleUser {
			return transcript[i].Content, true
		}
	}
	return "", false
}
