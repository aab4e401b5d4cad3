// Package output provides StepOutputPort implementations: a simulated
// port for tests and dry runs, and a serial-framed port talking to an
// external pulse-generator board.
package output

import (
	"sync"

	"github.com/Davec6505/Pic32mzCNC-V2-sub004/motion"
)

// SimPort records the most recent rate and direction per axis. It is
// safe to read from a different goroutine than the tick context.
type SimPort struct {
	mu      sync.Mutex
	rates   [motion.NumAxes]float64
	forward [motion.NumAxes]bool
	enabled bool
}

func NewSimPort() *SimPort {
	p := &SimPort{}
	for i := range p.forward {
		p.forward[i] = true
	}
	return p
}

func (p *SimPort) SetStepRate(axis int, stepsPerSecond float64) {
	p.mu.Lock()
	p.rates[axis] = stepsPerSecond
	p.mu.Unlock()
}

func (p *SimPort) SetDirection(axis int, forward bool) {
	p.mu.Lock()
	p.forward[axis] = forward
	p.mu.Unlock()
}

func (p *SimPort) Enable() error {
	p.mu.Lock()
	p.enabled = true
	p.mu.Unlock()
	return nil
}

func (p *SimPort) Disable() error {
	p.mu.Lock()
	p.enabled = false
	p.mu.Unlock()
	return nil
}

func (p *SimPort) Rate(axis int) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rates[axis]
}

func (p *SimPort) Forward(axis int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.forward[axis]
}

func (p *SimPort) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

var _ motion.StepOutputPort = (*SimPort)(nil)
