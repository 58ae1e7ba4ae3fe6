package state

import "sync"

// Input holds the current input text.
type Input struct {
	mu   sync.RWMutex
	text string
}

// NewInput creates an empty input.
func NewInput() *Input {
	return &Input{}
}

// Set replaces the input text unconditionally.
func (in *Input) Set(text string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.text = text
}

// Get returns the current input text.
func (in *Input) Get() string {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.text
}
