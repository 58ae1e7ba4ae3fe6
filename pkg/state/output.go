package state

import "sync"

// DefaultSubscriberBuffer is the number of replacements a slow subscriber may lag behind.
const DefaultSubscriberBuffer = 16

// Output holds the most recently rendered text. The zero value is an empty output.
// Observers registered with Subscribe are notified of each replacement.
type Output struct {
	mu          sync.RWMutex
	text        string
	subscribers map[chan string]struct{}
}

// NewOutput creates an empty output.
func NewOutput() *Output {
	return &Output{
		subscribers: make(map[chan string]struct{}),
	}
}

// Set replaces the output text unconditionally and notifies subscribers.
// Notification never blocks: a subscriber whose buffer is full misses the update.
func (o *Output) Set(text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.text = text
	for ch := range o.subscribers {
		select {
		case ch <- text:
		default:
		}
	}
}

// Get returns the current output text.
func (o *Output) Get() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.text
}

// Subscribe returns a channel receiving every subsequent replacement and a
// function that ends the subscription and closes the channel.
func (o *Output) Subscribe() (<-chan string, func()) {
	ch := make(chan string, DefaultSubscriberBuffer)

	o.mu.Lock()
	if o.subscribers == nil {
		o.subscribers = make(map[chan string]struct{})
	}
	o.subscribers[ch] = struct{}{}
	o.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			delete(o.subscribers, ch)
			close(ch)
		})
	}
}
