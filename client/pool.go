package client

import (
	"crypto/tls"
	"sync"

	"github.com/rs/zerolog"
)

// pool is a per-Target set of transports, each independently reusable
// once Idle(). The number of transports per Target is not capped: a
// new one is dialed whenever none is idle.
type pool struct {
	mu        sync.Mutex
	byTarget  map[string][]Transport
	tlsConfig *tls.Config
	log       zerolog.Logger
}

func newPool(tlsConfig *tls.Config, log zerolog.Logger) *pool {
	return &pool{byTarget: make(map[string][]Transport), tlsConfig: tlsConfig, log: log}
}

// acquire returns a usable transport for t: an idle pooled one if one
// exists, else a freshly dialed one.
func (p *pool) acquire(t Target) (Transport, error) {
	p.mu.Lock()
	bucket := p.byTarget[t.key()]
	for i, tr := range bucket {
		if tr.Closed() {
			bucket = append(bucket[:i], bucket[i+1:]...)
			p.byTarget[t.key()] = bucket
			continue
		}
		if tr.Idle() {
			p.mu.Unlock()
			return tr, nil
		}
	}
	p.mu.Unlock()

	tr, err := dial(t, p.tlsConfig, p.log)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.byTarget[t.key()] = append(p.byTarget[t.key()], tr)
	p.mu.Unlock()
	return tr, nil
}

// closeAll tears down every pooled transport, for Client.Close.
func (p *pool) closeAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, bucket := range p.byTarget {
		for _, tr := range bucket {
			_ = tr.Close()
		}
	}
	p.byTarget = make(map[string][]Transport)
}
