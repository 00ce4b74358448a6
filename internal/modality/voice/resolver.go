// Package voice turns recognized speech into dispatchable intents. A
// Resolver maps a raw phrase to an action name; the Runner drives a
// Recognizer in a loop and emits voice command events.
package voice

import (
	"context"
	"sort"
	"strings"
)

// Resolver maps a spoken phrase to an intent name. An empty intent with a
// nil error means the phrase was not recognized.
type Resolver interface {
	Resolve(ctx context.Context, phrase string) (string, error)
}

// politenessPrefixes are stripped before keyword matching so "please copy"
// resolves the same as "copy".
var politenessPrefixes = []string{"please ", "could you ", "would you ", "hey "}

// DefaultKeywords returns the built-in phrase fragment to intent table.
func DefaultKeywords() map[string]string {
	return map[string]string{
		"next":        "next_tab",
		"previous":    "previous_tab",
		"prev":        "previous_tab",
		"back":        "previous_tab",
		"close":       "close_tab",
		"new":         "new_tab",
		"tab":         "next_tab",
		"copy":        "copy",
		"paste":       "paste",
		"cut":         "cut",
		"undo":        "undo",
		"redo":        "redo",
		"play":        "play_pause",
		"pause":       "play_pause",
		"stop":        "play_pause",
		"mute":        "mute",
		"unmute":      "volume_up",
		"volume up":   "volume_up",
		"louder":      "volume_up",
		"volume down": "volume_down",
		"quieter":     "volume_down",
		"screenshot":  "screenshot",
		"capture":     "screenshot",
		"snap":        "screenshot",
		"escape":      "escape",
		"exit":        "escape",
		"enter":       "enter",
		"return":      "enter",
	}
}

// KeywordResolver resolves intents by substring matching against a keyword
// table. Keywords are tried longest first, so "unmute" wins over "mute"
// and "volume down" wins over "down".
type KeywordResolver struct {
	intents map[string]string
	ordered []string
}

// NewKeywordResolver builds a resolver over the given table. A nil table
// uses DefaultKeywords.
func NewKeywordResolver(keywords map[string]string) *KeywordResolver {
	if keywords == nil {
		keywords = DefaultKeywords()
	}
	intents := make(map[string]string, len(keywords))
	ordered := make([]string, 0, len(keywords))
	for kw, intent := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || intent == "" {
			continue
		}
		intents[kw] = intent
		ordered = append(ordered, kw)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if len(ordered[i]) != len(ordered[j]) {
			return len(ordered[i]) > len(ordered[j])
		}
		return ordered[i] < ordered[j]
	})
	return &KeywordResolver{intents: intents, ordered: ordered}
}

// Resolve returns the intent for the first (longest) keyword contained in
// the phrase, or "" if none match.
func (r *KeywordResolver) Resolve(_ context.Context, phrase string) (string, error) {
	phrase = Normalize(phrase)
	if phrase == "" {
		return "", nil
	}
	for _, kw := range r.ordered {
		if strings.Contains(phrase, kw) {
			return r.intents[kw], nil
		}
	}
	return "", nil
}

// Normalize lowercases a phrase, trims it, and strips leading politeness
// prefixes.
func Normalize(phrase string) string {
	phrase = strings.ToLower(strings.TrimSpace(phrase))
	for changed := true; changed; {
		changed = false
		for _, prefix := range politenessPrefixes {
			if strings.HasPrefix(phrase, prefix) {
				phrase = strings.TrimSpace(strings.TrimPrefix(phrase, prefix))
				changed = true
			}
		}
	}
	return phrase
}

// Chain tries each resolver in order and returns the first non-empty
// intent. Resolver errors are returned immediately.
type Chain []Resolver

func (c Chain) Resolve(ctx context.Context, phrase string) (string, error) {
	for _, r := range c {
		intent, err := r.Resolve(ctx, phrase)
		if err != nil {
			return "", err
		}
		if intent != "" {
			return intent, nil
		}
	}
	return "", nil
}
