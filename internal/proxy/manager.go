// Package proxy picks the browser launch profile: user agent and upstream
// proxy, rotated across browser sessions.
package proxy

import (
	"math/rand"
	"sync"
	"time"
)

// DefaultUserAgent is used when no user agents are configured.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.5993.117 Safari/537.36"

// WebdriverPatch hides navigator.webdriver from page scripts. Browser
// adapters install it before any document loads.
const WebdriverPatch = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined});`

// Profile is what one browser session is launched with.
type Profile struct {
	UserAgent string
	// Proxy is an upstream proxy URL; empty means a direct connection.
	Proxy string
}

// Manager handles the rotation of proxies and user agents.
type Manager struct {
	proxies    []string
	userAgents []string
	mu         sync.Mutex
	proxyIndex int
	rnd        *rand.Rand
}

// NewManager returns a manager over the given pools. Blank entries are dropped.
func NewManager(userAgents, proxies []string) *Manager {
	m := &Manager{
		proxies:    nonBlank(proxies),
		userAgents: nonBlank(userAgents),
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if len(m.userAgents) == 0 {
		m.userAgents = []string{DefaultUserAgent}
	}
	return m
}

// Next returns the profile for a new browser session: the next proxy in
// turn and a random user agent.
func (m *Manager) Next() Profile {
	return Profile{UserAgent: m.GetUserAgent(), Proxy: m.GetProxy()}
}

// GetProxy returns a proxy URL from the list, rotating sequentially.
func (m *Manager) GetProxy() string {
	if len(m.proxies) == 0 {
		return "" // No proxy
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	proxy := m.proxies[m.proxyIndex]
	m.proxyIndex = (m.proxyIndex + 1) % len(m.proxies)
	return proxy
}

// GetUserAgent returns a random user agent string.
func (m *Manager) GetUserAgent() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userAgents[m.rnd.Intn(len(m.userAgents))]
}

func nonBlank(in []string) []string {
	var out []string
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
