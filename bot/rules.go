package bot

import (
	"fmt"
	"strings"
)

// Replies holds the trigger phrases and message templates. Templates take the user's
// display name (or the link) as their single %s verb.
type Replies struct {
	TriggerPhrase string
	TriggerReply  string

	LurkCommand string
	LurkReply   string

	GitHubCommand string
	GitHubReply   string
	GitHubMissing string

	SubscribeReply string
	FollowReply    string
}

func DefaultReplies() Replies {
	return Replies{
		TriggerPhrase:  "HeyGuys",
		TriggerReply:   "VoHiYo",
		LurkCommand:    "!lurk",
		LurkReply:      "Viel Spaß im Lurk, %s!",
		GitHubCommand:  "!github",
		GitHubReply:    "GitHub: %s",
		GitHubMissing:  "GitHub-Link fehlt. Bitte GITHUB_URL in der .env setzen.",
		SubscribeReply: "Danke für den Sub, %s!",
		FollowReply:    "Danke fürs Folgen, %s!",
	}
}

// ForChat evaluates every chat rule on its own, more than one reply may be returned.
func (r Replies) ForChat(text, displayName, gitHubURL string) []string {
	var out []string

	trimmed := strings.TrimSpace(text)

	if trimmed == r.TriggerPhrase {
		out = append(out, r.TriggerReply)
	}

	if strings.EqualFold(trimmed, r.LurkCommand) {
		out = append(out, fmt.Sprintf(r.LurkReply, displayName))
	}

	if strings.EqualFold(trimmed, r.GitHubCommand) {
		if gitHubURL == "" {
			out = append(out, r.GitHubMissing)
		} else {
			out = append(out, fmt.Sprintf(r.GitHubReply, gitHubURL))
		}
	}

	return out
}

func (r Replies) ForSubscribe(userName string) string {
	return fmt.Sprintf(r.SubscribeReply, userName)
}

func (r Replies) ForFollow(userName string) string {
	return fmt.Sprintf(r.FollowReply, userName)
}
