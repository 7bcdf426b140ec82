package config

import (
	"sync"
	"time"
)

// GatewaySettingsLoader hands gateway settings to adapters without hidden
// global state. Settings are reloaded once the TTL elapses or when
// Invalidate is called (admin "settings changed" signal), so a rotated salt
// key takes effect without a restart.
type GatewaySettingsLoader struct {
	mu       sync.Mutex
	ttl      time.Duration
	fetch    func() (*GatewaysConfig, error)
	current  *GatewaysConfig
	loadedAt time.Time
}

// NewGatewaySettingsLoader creates a loader around a fetch function. A zero
// TTL disables time-based reloads; Invalidate still forces one.
func NewGatewaySettingsLoader(fetch func() (*GatewaysConfig, error), ttl time.Duration) *GatewaySettingsLoader {
	return &GatewaySettingsLoader{
		ttl:   ttl,
		fetch: fetch,
	}
}

// FileGatewaySettings returns a fetch function that re-reads the gateway
// section from the config file at path.
func FileGatewaySettings(path string) func() (*GatewaysConfig, error) {
	return func() (*GatewaysConfig, error) {
		cfg, err := LoadConfigFile(path)
		if err != nil {
			return nil, err
		}
		return &cfg.Gateways, nil
	}
}

// Get returns current settings, reloading them when stale.
func (l *GatewaySettingsLoader) Get() (*GatewaysConfig, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fresh := l.current != nil && (l.ttl <= 0 || time.Since(l.loadedAt) < l.ttl)
	if fresh {
		return l.current, nil
	}

	settings, err := l.fetch()
	if err != nil {
		// Keep serving the last known settings on a failed reload; failing
		// an in-flight payment over a transient config read is worse.
		if l.current != nil {
			return l.current, nil
		}
		return nil, err
	}

	l.current = settings
	l.loadedAt = time.Now()
	return l.current, nil
}

// Invalidate drops the cached settings so the next Get reloads.
func (l *GatewaySettingsLoader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.current = nil
}
