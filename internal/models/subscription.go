package models

import "strings"

// Subscription is one (category, topic) pair a subscriber follows.
// The pair doubles as the arXiv search query ("cs.AI") and as the
// dedup scope key.
type Subscription struct {
	Category string `json:"category"`
	Topic    string `json:"topic"`
}

// ParseTopic splits "cs.AI" into a Subscription{Category: "cs", Topic: "AI"}.
// A bare topic without a dot gets the "all" pseudo-category.
func ParseTopic(s string) Subscription {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "."); i > 0 {
		return Subscription{Category: s[:i], Topic: s[i+1:]}
	}
	return Subscription{Category: "all", Topic: s}
}

// String renders the subscription back into query form.
func (s Subscription) String() string {
	if s.Category == "" {
		return "all." + s.Topic
	}
	return s.Category + "." + s.Topic
}

// Equal compares case-insensitively, matching the add/remove command
// semantics of the bot front-end.
func (s Subscription) Equal(other Subscription) bool {
	return strings.EqualFold(s.Category, other.Category) && strings.EqualFold(s.Topic, other.Topic)
}

// IsEmail reports whether a subscriber ID is a verified email address
// rather than a chat-platform user ID.
func IsEmail(subscriber string) bool {
	return strings.Contains(subscriber, "@")
}
