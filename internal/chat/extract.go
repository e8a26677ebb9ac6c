package chat

import "strings"

// MentionToken returns the token Slack uses when a message addresses botID.
func MentionToken(botID string) string {
	return "<@" + botID + ">:"
}

// Extractor finds the first eligible message in a batch of events.
type Extractor struct {
	mention string
}

// NewExtractor builds an Extractor for the given bot user id.
func NewExtractor(botID string) *Extractor {
	if botID == "" {
		return &Extractor{}
	}
	return &Extractor{mention: MentionToken(botID)}
}

// Extract scans events in order and returns the first event that has a text
// field and is not a profile event. A mention of the bot is stripped along
// with everything before it; the result is lower-cased either way. ok is false
// when nothing qualifies.
func (e *Extractor) Extract(events []Event) (msg Message, ok bool) {
	for _, ev := range events {
		if !ev.HasText || ev.UserProfile {
			continue
		}
		text := ev.Text
		if e.mention != "" && strings.Contains(text, e.mention) {
			_, after, _ := strings.Cut(text, e.mention)
			if i := strings.Index(after, e.mention); i >= 0 {
				after = after[:i]
			}
			text = strings.TrimSpace(after)
		}
		return Message{
			Text:    strings.ToLower(text),
			Sender:  ev.User,
			Channel: ev.Channel,
		}, true
	}
	return Message{}, false
}
