package intent

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultInitiativeTriggers are the phrases that flip an utterance into
// initiative mode when no structured metadata is attached.
var DefaultInitiativeTriggers = []string{
	"roll for initiative",
	"roll initiative",
	"combat begins",
	"initiative",
}

var dialogueCues = []string{"says", "asks you", "speaks to"}

// Alias maps a name token to the actor identity it addresses.
type Alias struct {
	Token   string
	ActorID string
}

// Classifier derives a director intent from an utterance.
//
// Classification is resolved in priority order, first match wins:
// structured metadata, a registered actor alias as a standalone token, a
// configured initiative trigger phrase, and finally the open fallback.
// Text sniffing exists only for director collaborators that do not attach
// metadata; when metadata is present it always wins.
type Classifier struct {
	triggers []string
}

// NewClassifier creates a classifier with the given initiative trigger
// phrases. Empty input falls back to DefaultInitiativeTriggers.
func NewClassifier(triggers []string) *Classifier {
	if len(triggers) == 0 {
		triggers = DefaultInitiativeTriggers
	}
	lowered := make([]string, len(triggers))
	for i, phrase := range triggers {
		lowered[i] = strings.ToLower(strings.TrimSpace(phrase))
	}
	return &Classifier{triggers: lowered}
}

// Classify derives the intent for a director utterance. Aliases must map
// name tokens to registered actor identities; names that are not registered
// never produce a directed intent and fall through to the open path.
func (c *Classifier) Classify(text string, meta *Metadata, aliases []Alias) Intent {
	if meta != nil && meta.Mode.IsValid() {
		return Intent{
			Mode:     meta.Mode,
			TargetID: directedTarget(meta),
			Context:  contextForMode(meta.Mode, text),
		}
	}

	lowered := strings.ToLower(text)

	if target, ok := earliestAlias(lowered, aliases); ok {
		return Intent{Mode: ModeDirected, TargetID: target, Context: contextTag(lowered)}
	}

	for _, phrase := range c.triggers {
		if phrase != "" && strings.Contains(lowered, phrase) {
			return Intent{Mode: ModeInitiative, Context: ContextCombat}
		}
	}

	return Intent{Mode: ModeOpen, Context: contextTag(lowered)}
}

func directedTarget(meta *Metadata) string {
	if meta.Mode != ModeDirected {
		return ""
	}
	return meta.TargetID
}

func contextForMode(mode Mode, text string) string {
	if mode == ModeInitiative {
		return ContextCombat
	}
	return contextTag(strings.ToLower(text))
}

func contextTag(lowered string) string {
	for _, cue := range dialogueCues {
		if strings.Contains(lowered, cue) {
			return ContextDialogue
		}
	}
	return ContextExploration
}

// earliestAlias finds the alias whose standalone token appears first by text
// position. When several actors are named, the first position wins; this is
// the documented tie-break for ambiguous director phrasing.
func earliestAlias(lowered string, aliases []Alias) (string, bool) {
	bestIndex := -1
	bestActor := ""
	for _, alias := range aliases {
		token := strings.ToLower(strings.TrimSpace(alias.Token))
		if token == "" {
			continue
		}
		index := standaloneIndex(lowered, token)
		if index < 0 {
			continue
		}
		if bestIndex < 0 || index < bestIndex {
			bestIndex = index
			bestActor = alias.ActorID
		}
	}
	return bestActor, bestIndex >= 0
}

// standaloneIndex returns the byte index of the first occurrence of token in
// text that is not embedded in a larger word, or -1.
func standaloneIndex(text, token string) int {
	offset := 0
	for {
		index := strings.Index(text[offset:], token)
		if index < 0 {
			return -1
		}
		index += offset
		if boundaryBefore(text, index) && boundaryAfter(text, index+len(token)) {
			return index
		}
		offset = index + 1
	}
}

func boundaryBefore(text string, index int) bool {
	if index <= 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:index])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(text string, index int) bool {
	if index >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[index:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
