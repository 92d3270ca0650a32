// Package disclose turns inline markdown links in a reply into numbered
// citations and remembers, per rendered message, the source list that a
// reveal reaction can later toggle.
package disclose

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

var inlineLink = regexp.MustCompile(`\[(.*?)\]\((.*?)\)`)

// Process rewrites every inline markdown link `[label](url)` in text as
// `label[n]`, numbering occurrences 1..N in order of appearance without
// de-duplicating repeated URLs. It returns the rewritten text and the
// disclosure body ("Source n: url" lines); disclosure is empty when the text
// contains no links.
func Process(text string) (display, disclosure string) {
	matches := inlineLink.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text, ""
	}

	var out, sources strings.Builder
	prev := 0
	for i, m := range matches {
		label := text[m[2]:m[3]]
		url := text[m[4]:m[5]]
		out.WriteString(text[prev:m[0]])
		fmt.Fprintf(&out, "%s[%d]", label, i+1)
		fmt.Fprintf(&sources, "Source %d: %s\n", i+1, url)
		prev = m[1]
	}
	out.WriteString(text[prev:])
	return out.String(), sources.String()
}

// Tracker associates rendered message ids with their disclosure text.
// Records live for the process lifetime; there is no explicit deletion.
type Tracker struct {
	mu      sync.Mutex
	records map[string]string
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{records: make(map[string]string)}
}

// Remember stores the disclosure text for a rendered message.
func (t *Tracker) Remember(messageID, disclosure string) {
	t.mu.Lock()
	t.records[messageID] = disclosure
	t.mu.Unlock()
}

// Lookup returns the disclosure text for a rendered message, and whether the
// message is tracked at all.
func (t *Tracker) Lookup(messageID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.records[messageID]
	return d, ok
}
