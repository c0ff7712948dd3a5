package agent

import "sync"

// ledgerKeyLen truncates prompt text used as ledger keys.
const ledgerKeyLen = 50

// tokenLedger records output tokens per prompt so the session can report
// total spend at the end of a task.
type tokenLedger struct {
	mu     sync.Mutex
	counts map[string]int
	order  []string
}

func newTokenLedger() *tokenLedger {
	return &tokenLedger{counts: make(map[string]int)}
}

// Record stores the token count for a prompt, keyed by its first
// ledgerKeyLen characters.
func (l *tokenLedger) Record(prompt string, tokens int) {
	key := prompt
	if len(key) > ledgerKeyLen {
		key = key[:ledgerKeyLen]
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.counts[key]; !ok {
		l.order = append(l.order, key)
	}
	l.counts[key] = tokens
}

// Total sums all recorded counts.
func (l *tokenLedger) Total() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := 0
	for _, n := range l.counts {
		total += n
	}
	return total
}

// Entries returns the recorded prompts and counts in insertion order.
func (l *tokenLedger) Entries() []TokenEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := make([]TokenEntry, 0, len(l.order))
	for _, key := range l.order {
		entries = append(entries, TokenEntry{Prompt: key, Tokens: l.counts[key]})
	}
	return entries
}

// TokenEntry is one ledger row.
type TokenEntry struct {
	Prompt string `json:"prompt"`
	Tokens int    `json:"tokens"`
}
