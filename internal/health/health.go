// Package health implements the Brain's background health prober (spec
// §4.7, C7): a single task woken every second so Stop observes the
// running flag with <=1s latency, but which only probes every 5th tick.
package health

import (
	"strings"
	"sync/atomic"
	"time"

	"karen/internal/core"
	"karen/internal/registry"
	"karen/internal/wireclient"
)

const tickInterval = 1 * time.Second
const ticksPerProbe = 5

// Prober periodically GETs <container.url>/status for every active
// registry record and applies the two-strike demotion policy (spec §4.7,
// invariant P6) — fixing the source's latent bug of probing with no base
// URL (spec §9 redesign flags).
type Prober struct {
	reg    *registry.Registry
	wire   *wireclient.Client
	logger *core.Logger

	stop    chan struct{}
	done    chan struct{}
	running atomic.Bool
}

func New(reg *registry.Registry, wire *wireclient.Client, logger *core.Logger) *Prober {
	return &Prober{reg: reg, wire: wire, logger: logger}
}

// Start launches the background goroutine. Calling Start twice is a no-op.
func (p *Prober) Start() {
	if !p.running.CompareAndSwap(false, true) {
		return
	}
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go p.loop()
}

// Stop signals the goroutine to exit and waits for it (spec §4.8 step 3,
// "Join the health-prober task"). Idempotent.
func (p *Prober) Stop() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.stop)
	<-p.done
}

func (p *Prober) loop() {
	defer close(p.done)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	count := 0
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			count++
			if count >= ticksPerProbe {
				count = 0
				p.probeOnce()
			}
		}
	}
}

func (p *Prober) probeOnce() {
	for _, url := range p.reg.ActiveURLsForProbe() {
		env, err := p.wire.GetJSON(strings.TrimRight(url, "/") + "/status")
		if err != nil {
			p.logger.Error("Unable to connect to device @ %s", url)
			p.reg.MarkTransportFailure(url)
			continue
		}
		p.reg.MarkProbeResult(url, env.Error)
		if env.Error {
			p.logger.Warning("(%s) %s", url, env.Message)
		}
	}
}
