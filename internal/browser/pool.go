package browser

import (
	"log/slog"
	"sync"
)

// SessionPool hands out one shared Session and replaces it when the
// underlying browser has died. Callers never hold a Session across
// runs; they ask the pool at the start of each one.
type SessionPool struct {
	mu      sync.Mutex
	opts    *Options
	session *Session
	logger  *slog.Logger
}

func NewSessionPool(opts *Options) *SessionPool {
	return &SessionPool{
		opts:   opts,
		logger: slog.Default().With("component", "browser-pool"),
	}
}

// Get returns a live session, launching or relaunching as needed.
func (p *SessionPool) Get() (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session != nil {
		if p.session.Alive() {
			return p.session, nil
		}
		p.logger.Warn("browser is gone, relaunching")
		p.session.Close()
		p.session = nil
	}

	session, err := NewSession(p.opts)
	if err != nil {
		return nil, err
	}
	p.session = session
	return session, nil
}

func (p *SessionPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == nil {
		return nil
	}
	err := p.session.Close()
	p.session = nil
	return err
}
