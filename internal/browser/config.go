// Package browser drives headless Chrome through chromedp and exposes it as a
// crawler.Session.
package browser

import (
	"fmt"
	"strings"
	"time"
)

// WaitPolicy decides when Navigate considers a page loaded.
type WaitPolicy string

// Supported navigation readiness policies.
const (
	// WaitNetworkIdle returns once the page has at most two open connections.
	WaitNetworkIdle WaitPolicy = "network_idle"
	// WaitLoad returns on the load event.
	WaitLoad WaitPolicy = "load"
)

// Config controls how sessions launch Chrome and pace page interactions.
type Config struct {
	Headless  bool
	NoSandbox bool
	// ExecPath overrides Chrome discovery.
	ExecPath  string
	UserAgent string
	// LaunchAttempts bounds how often Open tries to start Chrome.
	LaunchAttempts int

	NavigationTimeout time.Duration
	OperationTimeout  time.Duration
	WaitPolicy        WaitPolicy
	PollInterval      time.Duration

	ScrollStep     int
	ScrollInterval time.Duration
	SettleDelay    time.Duration
	MaxScrollSteps int
}

// DefaultConfig returns the settings the catalogs were tuned against.
func DefaultConfig() Config {
	return Config{
		Headless:          true,
		LaunchAttempts:    3,
		NavigationTimeout: 120 * time.Second,
		OperationTimeout:  30 * time.Second,
		WaitPolicy:        WaitNetworkIdle,
		PollInterval:      100 * time.Millisecond,
		ScrollStep:        300,
		ScrollInterval:    300 * time.Millisecond,
		SettleDelay:       time.Second,
		MaxScrollSteps:    2000,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.LaunchAttempts <= 0 {
		c.LaunchAttempts = d.LaunchAttempts
	}
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = d.NavigationTimeout
	}
	if c.OperationTimeout <= 0 {
		c.OperationTimeout = d.OperationTimeout
	}
	if c.WaitPolicy == "" {
		c.WaitPolicy = d.WaitPolicy
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.ScrollStep <= 0 {
		c.ScrollStep = d.ScrollStep
	}
	if c.ScrollInterval < 0 {
		c.ScrollInterval = 0
	}
	if c.SettleDelay < 0 {
		c.SettleDelay = 0
	}
	if c.MaxScrollSteps <= 0 {
		c.MaxScrollSteps = d.MaxScrollSteps
	}
	return c
}

// ParseWaitPolicy validates a configured readiness policy.
func ParseWaitPolicy(raw string) (WaitPolicy, error) {
	switch p := WaitPolicy(strings.ToLower(strings.TrimSpace(raw))); p {
	case WaitNetworkIdle, WaitLoad:
		return p, nil
	case "":
		return WaitNetworkIdle, nil
	default:
		return "", fmt.Errorf("unknown wait policy %q", raw)
	}
}
