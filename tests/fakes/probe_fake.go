package fakes

import (
	"context"
	"sync"
)

// Probe is a scripted connectivity probe. Each call consumes the next
// scripted outcome; the last outcome repeats once the script is exhausted.
// An empty script reports success with no identity.
type Probe struct {
	mu       sync.Mutex
	outcomes []ProbeOutcome
	callIdx  int
	calls    int

	// PanicWith, when non-nil, makes every call panic with this value.
	PanicWith interface{}

	// Block, when non-nil, is closed by the test to release in-flight calls.
	Block chan struct{}
}

// ProbeOutcome is one scripted probe result.
type ProbeOutcome struct {
	Identity string
	Err      error
}

// NewProbe creates a probe with the given script.
func NewProbe(outcomes ...ProbeOutcome) *Probe {
	return &Probe{outcomes: outcomes}
}

// Script replaces the outcome sequence and resets the cursor.
func (p *Probe) Script(outcomes ...ProbeOutcome) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outcomes = outcomes
	p.callIdx = 0
}

// Calls returns how many times TestConnectivity was invoked.
func (p *Probe) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// TestConnectivity implements providers.Probe.
func (p *Probe) TestConnectivity(ctx context.Context) (string, error) {
	p.mu.Lock()
	p.calls++
	if p.PanicWith != nil {
		p.mu.Unlock()
		panic(p.PanicWith)
	}
	block := p.Block
	var outcome ProbeOutcome
	if len(p.outcomes) > 0 {
		idx := p.callIdx
		if idx >= len(p.outcomes) {
			idx = len(p.outcomes) - 1
		}
		p.callIdx++
		outcome = p.outcomes[idx]
	}
	p.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	return outcome.Identity, outcome.Err
}
