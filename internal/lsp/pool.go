package lsp

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/joss/pairkit/internal/conversation"
	"github.com/joss/pairkit/internal/domain"
	"github.com/joss/pairkit/internal/logging"
)

// Dialer opens the backend connection for one workspace
type Dialer func(ctx context.Context, ws domain.WorkspaceInfo) (*Client, error)

// Pool keeps one client per workspace, dialing lazily. It implements
// conversation.Locator.
type Pool struct {
	dial    Dialer
	log     *logging.Logger
	group   singleflight.Group
	mu      sync.Mutex
	clients map[string]*Client
	closed  bool
}

var _ conversation.Locator = (*Pool)(nil)

func NewPool(dial Dialer) *Pool {
	return &Pool{
		dial:    dial,
		log:     logging.New("lsp.pool"),
		clients: make(map[string]*Client),
	}
}

// Connection returns the live client for ws, dialing when there is none.
// Concurrent lookups for one workspace share a single dial.
func (p *Pool) Connection(ctx context.Context, ws domain.WorkspaceInfo) (conversation.Connection, bool) {
	c, err := p.Client(ctx, ws)
	if err != nil {
		return nil, false
	}
	return c, true
}

func (p *Pool) Client(ctx context.Context, ws domain.WorkspaceInfo) (*Client, error) {
	key := ws.Key()
	if key == "" {
		return nil, errors.New("workspace has no identity")
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, errors.New("pool closed")
	}
	if c, ok := p.clients[key]; ok {
		if c.alive() {
			p.mu.Unlock()
			return c, nil
		}
		delete(p.clients, key)
		p.log.Warn("lsp.client_dead", map[string]any{"workspace": key}, nil)
	}
	p.mu.Unlock()

	v, err, _ := p.group.Do(key, func() (any, error) {
		p.mu.Lock()
		if c, ok := p.clients[key]; ok && c.alive() {
			p.mu.Unlock()
			return c, nil
		}
		p.mu.Unlock()

		c, err := p.dial(ctx, ws)
		if err != nil {
			p.log.Error("lsp.dial_failed", map[string]any{"workspace": key}, err)
			return nil, err
		}

		p.mu.Lock()
		defer p.mu.Unlock()
		if p.closed {
			_ = c.Close()
			return nil, errors.New("pool closed")
		}
		p.clients[key] = c
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Client), nil
}

// Clients returns the live clients
func (p *Pool) Clients() []*Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Client, 0, len(p.clients))
	for _, c := range p.clients {
		out = append(out, c)
	}
	return out
}

// Close tears down every client. Later lookups fail.
func (p *Pool) Close() error {
	p.mu.Lock()
	p.closed = true
	clients := p.clients
	p.clients = make(map[string]*Client)
	p.mu.Unlock()

	var errs []error
	for _, c := range clients {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
