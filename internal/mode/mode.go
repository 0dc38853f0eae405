// Package mode switches the dashboard between its defensive (Forge) and
// offensive (Lancer) personalities.
package mode

import (
	"fmt"
	"strings"
	"sync"

	"github.com/cyberforge/cyberforge/internal/prefs"
)

type Mode string

const (
	Forge  Mode = "forge"
	Lancer Mode = "lancer"
)

// Parse accepts "forge" or "lancer" in any case.
func Parse(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case Forge:
		return Forge, nil
	case Lancer:
		return Lancer, nil
	}
	return "", fmt.Errorf("unknown mode %q (want forge or lancer)", s)
}

// Title is the product name shown for the mode.
func (m Mode) Title() string {
	if m == Lancer {
		return "CyberLancer"
	}
	return "CyberForge"
}

// Other returns the opposite mode.
func (m Mode) Other() Mode {
	if m == Lancer {
		return Forge
	}
	return Lancer
}

// Section keys shared with the panel registry.
const (
	SectionDashboard = "dashboard"
	SectionRecon     = "recon"
	SectionOSINT     = "osint"
	SectionVuln      = "vuln"
	SectionThreat    = "threat"
	SectionLogs      = "logs"
	SectionSeek      = "seek"
	SectionReports   = "reports"
	SectionAssistant = "assistant"
	SectionSettings  = "settings"
)

type Section struct {
	Key   string
	Title string
}

var (
	forgeNav = []Section{
		{SectionDashboard, "Dashboard"},
		{SectionRecon, "Recon"},
		{SectionVuln, "Vulnerabilities"},
		{SectionThreat, "Threat Intel"},
		{SectionLogs, "Log Analysis"},
		{SectionReports, "Reports"},
		{SectionAssistant, "AI Assistant"},
		{SectionSettings, "Settings"},
	}
	lancerNav = []Section{
		{SectionDashboard, "Dashboard"},
		{SectionRecon, "Recon"},
		{SectionOSINT, "OSINT"},
		{SectionVuln, "Vuln Scanner"},
		{SectionSeek, "Seek & Enter"},
		{SectionReports, "Reports"},
		{SectionAssistant, "AI Assistant"},
		{SectionSettings, "Settings"},
	}
)

// Navigation returns the ordered sections for m.
func Navigation(m Mode) []Section {
	if m == Lancer {
		return append([]Section(nil), lancerNav...)
	}
	return append([]Section(nil), forgeNav...)
}

// Provider owns the current mode and persists changes.
type Provider struct {
	store *prefs.Store

	mu          sync.Mutex
	current     Mode
	subscribers []func(Mode)
}

// NewProvider loads the persisted mode, defaulting to Forge.
func NewProvider(store *prefs.Store) *Provider {
	m, err := Parse(store.GetString(prefs.KeyAppMode, string(Forge)))
	if err != nil {
		m = Forge
	}
	return &Provider{store: store, current: m}
}

// Current returns the active mode.
func (p *Provider) Current() Mode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Set switches to m, persists it and notifies subscribers when it changed.
func (p *Provider) Set(m Mode) error {
	if _, err := Parse(string(m)); err != nil {
		return err
	}

	p.mu.Lock()
	if p.current == m {
		p.mu.Unlock()
		return nil
	}
	p.current = m
	subs := append(([]func(Mode))(nil), p.subscribers...)
	p.mu.Unlock()

	err := p.store.SetString(prefs.KeyAppMode, string(m))
	for _, fn := range subs {
		fn(m)
	}
	if err != nil {
		return fmt.Errorf("persist mode: %w", err)
	}
	return nil
}

// Toggle flips between Forge and Lancer and returns the new mode.
func (p *Provider) Toggle() (Mode, error) {
	next := p.Current().Other()
	return next, p.Set(next)
}

// Subscribe calls fn after every mode change.
func (p *Provider) Subscribe(fn func(Mode)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = append(p.subscribers, fn)
}
