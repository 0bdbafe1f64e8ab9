package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/opmodel/hal/internal/cluster"
	oerrors "github.com/opmodel/hal/internal/errors"
	"github.com/opmodel/hal/internal/output"
)

// ClientFactory connects to the cluster of a deployment.
type ClientFactory func(ctx context.Context, deployment string) (cluster.Client, error)

// SessionManager hands out one Session per deployment. Concurrent Opens of
// the same deployment share a single connection attempt.
type SessionManager struct {
	newClient ClientFactory
	backoff   wait.Backoff

	mu       sync.Mutex
	sessions map[string]*Session
	group    singleflight.Group
}

// NewSessionManager returns a manager that connects with newClient.
func NewSessionManager(newClient ClientFactory) *SessionManager {
	return &SessionManager{
		newClient: newClient,
		backoff:   DefaultBackoff,
		sessions:  make(map[string]*Session),
	}
}

// Open returns the session of deployment, creating it when absent.
func (m *SessionManager) Open(ctx context.Context, deployment string) (*Session, error) {
	if s := m.lookup(deployment); s != nil {
		return s, nil
	}
	v, err, _ := m.group.Do(deployment, func() (any, error) {
		// A caller may have finished creating it while we waited.
		if s := m.lookup(deployment); s != nil {
			return s, nil
		}
		client, err := m.newClient(ctx, deployment)
		if err != nil {
			return nil, err
		}
		s := &Session{Deployment: deployment, Client: client, manager: m}
		m.mu.Lock()
		m.sessions[deployment] = s
		m.mu.Unlock()
		output.Debug("opened session", "deployment", deployment)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

func (m *SessionManager) lookup(deployment string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[deployment]
}

func (m *SessionManager) evict(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions[s.Deployment] == s {
		delete(m.sessions, s.Deployment)
	}
}

// CloseAll closes every open session.
func (m *SessionManager) CloseAll() error {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

// Session is an open connection to one deployment's cluster.
type Session struct {
	Deployment string
	Client     cluster.Client

	manager *SessionManager
	mu      sync.Mutex
	proxy   cluster.Proxy
}

// Proxy returns the session's control-plane proxy, opening it on first
// use. Failed opens are retried with backoff.
func (s *Session) Proxy(ctx context.Context) (cluster.Proxy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proxy != nil {
		return s.proxy, nil
	}

	var lastErr error
	err := wait.ExponentialBackoffWithContext(ctx, s.manager.backoff, func(ctx context.Context) (bool, error) {
		p, err := s.Client.OpenProxy(ctx)
		if err != nil {
			lastErr = err
			output.Debug("opening proxy failed, retrying", "deployment", s.Deployment, "err", err)
			return false, nil
		}
		s.proxy = p
		return true, nil
	})
	if err == nil {
		return s.proxy, nil
	}
	if ctx.Err() != nil {
		return nil, oerrors.NewInterruptedError("opening proxy to "+s.Deployment+" was interrupted", nil)
	}
	if lastErr == nil {
		lastErr = err
	}
	return nil, oerrors.NewSubstrateError(
		fmt.Sprintf("unable to open proxy to %s: %v", s.Deployment, lastErr),
		map[string]string{"deployment": s.Deployment}, lastErr)
}

// Close closes the proxy, if open, and evicts the session.
func (s *Session) Close() error {
	s.manager.evict(s)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proxy == nil {
		return nil
	}
	err := s.proxy.Close()
	s.proxy = nil
	return err
}
