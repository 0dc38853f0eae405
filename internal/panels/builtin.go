package panels

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cyberforge/cyberforge/internal/api"
	"github.com/cyberforge/cyberforge/internal/mode"
	"github.com/cyberforge/cyberforge/internal/stream"
)

func target(label string) []Param {
	return []Param{{Name: "target", Label: label, Required: true}}
}

// RegisterBuiltin registers one panel per backend capability.
func RegisterBuiltin(r *Registry) error {
	for _, p := range builtin() {
		if err := r.Register(p); err != nil {
			return err
		}
	}
	return nil
}

// NewBuiltinRegistry returns a registry holding every builtin panel.
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	if err := RegisterBuiltin(r); err != nil {
		// Builtin names are static; a clash is a programming error.
		panic(err)
	}
	return r
}

func builtin() []*Panel {
	return []*Panel{
		// Dashboard
		{
			Name: "dashboard.stats", Title: "Dashboard Stats", Section: mode.SectionDashboard,
			Run: func(ctx context.Context, c *api.Client, _ Args) (api.Document, error) {
				return c.DashboardStats(ctx)
			},
		},
		{
			Name: "dashboard.health", Title: "Backend Health", Section: mode.SectionDashboard,
			Run: func(ctx context.Context, c *api.Client, _ Args) (api.Document, error) {
				h, err := c.Health(ctx)
				if err != nil {
					return nil, err
				}
				return api.Document{"status": h.Status, "version": h.Version}, nil
			},
		},

		// Recon
		{
			Name: "recon.subdomains", Title: "Subdomain Enumeration", Section: mode.SectionRecon,
			Params: target("Domain"),
			Run: func(ctx context.Context, c *api.Client, a Args) (api.Document, error) {
				return c.Recon.Subdomains(ctx, a.Get("target", ""))
			},
		},
		{
			Name: "recon.ports", Title: "Port Scan", Section: mode.SectionRecon,
			Params: []Param{
				{Name: "target", Label: "Host", Required: true},
				{Name: "ports", Label: "Ports", Default: "1-1000"},
			},
			Run: func(ctx context.Context, c *api.Client, a Args) (api.Document, error) {
				return c.Recon.Ports(ctx, a.Get("target", ""), a.Get("ports", ""))
			},
		},
		{
			Name: "recon.whois", Title: "WHOIS Lookup", Section: mode.SectionRecon,
			Params: target("Domain"),
			Run: func(ctx context.Context, c *api.Client, a Args) (api.Document, error) {
				return c.Recon.Whois(ctx, a.Get("target", ""))
			},
		},
		{
			Name: "recon.dns", Title: "DNS Analysis", Section: mode.SectionRecon,
			Params: target("Domain"),
			Run: func(ctx context.Context, c *api.Client, a Args) (api.Document, error) {
				return c.Recon.DNS(ctx, a.Get("target", ""))
			},
		},
		{
			Name: "recon.tech", Title: "Technology Fingerprint", Section: mode.SectionRecon,
			Params: target("URL"),
			Run: func(ctx context.Context, c *api.Client, a Args) (api.Document, error) {
				return c.Recon.Tech(ctx, a.Get("target", ""))
			},
		},
		{
			Name: "recon.full", Title: "Full Recon", Section: mode.SectionRecon,
			Params: target("Domain"),
			Run: func(ctx context.Context, c *api.Client, a Args) (api.Document, error) {
				return c.Recon.Full(ctx, a.Get("target", ""))
			},
		},
		{
			Name: "recon.history", Title: "Recon History", Section: mode.SectionRecon,
			Run: func(ctx context.Context, c *api.Client, _ Args) (api.Document, error) {
				return c.Recon.History(ctx)
			},
		},

		// OSINT
		{
			Name: "osint.shodan", Title: "Shodan Host Lookup", Section: mode.SectionOSINT,
			Params: target("IP"),
			Run: func(ctx context.Context, c *api.Client, a Args) (api.Document, error) {
				return c.OSINT.Shodan(ctx, a.Get("target", ""))
			},
		},
		{
			Name: "osint.virustotal", Title: "VirusTotal", Section: mode.SectionOSINT,
			Params: []Param{
				{Name: "target", Label: "URL, domain, IP or hash", Required: true},
				{Name: "type", Label: "Type", Default: "domain"},
			},
			Run: func(ctx context.Context, c *api.Client, a Args) (api.Document, error) {
				return c.OSINT.VirusTotal(ctx, a.Get("target", ""), a.Get("type", ""))
			},
		},
		{
			Name: "osint.hibp", Title: "Breach Check", Section: mode.SectionOSINT,
			Params: []Param{
				{Name: "target", Label: "Email or domain", Required: true},
				{Name: "type", Label: "Type", Default: "email"},
			},
			Run: func(ctx context.Context, c *api.Client, a Args) (api.Document, error) {
				return c.OSINT.HIBP(ctx, a.Get("target", ""), a.Get("type", ""))
			},
		},
		{
			Name: "osint.reputation", Title: "Reputation", Section: mode.SectionOSINT,
			Params: target("Domain or IP"),
			Run: func(ctx context.Context, c *api.Client, a Args) (api.Document, error) {
				return c.OSINT.Reputation(ctx, a.Get("target", ""))
			},
		},
		{
			Name: "osint.history", Title: "OSINT History", Section: mode.SectionOSINT,
			Run: func(ctx context.Context, c *api.Client, _ Args) (api.Document, error) {
				return c.OSINT.History(ctx)
			},
		},

		// Vulnerabilities
		{
			Name: "vuln.surface", Title: "Headers + SSL", Section: mode.SectionVuln,
			Params: target("URL"),
			Run:    runSurface,
		},
		{
			Name: "vuln.headers", Title: "Header Analysis", Section: mode.SectionVuln,
			Params: target("URL"),
			Run: func(ctx context.Context, c *api.Client, a Args) (api.Document, error) {
				return c.Vuln.Headers(ctx, a.Get("target", ""))
			},
		},
		{
			Name: "vuln.ssl", Title: "SSL/TLS Check", Section: mode.SectionVuln,
			Params: []Param{
				{Name: "hostname", Label: "Hostname", Required: true},
				{Name: "port", Label: "Port", Default: "443"},
			},
			Run: func(ctx context.Context, c *api.Client, a Args) (api.Document, error) {
				return c.Vuln.SSL(ctx, a.Get("hostname", ""), a.Int("port", 443))
			},
		},
		{
			Name: "vuln.cve", Title: "CVE Search", Section: mode.SectionVuln,
			Params: []Param{{Name: "keyword", Label: "Keyword", Required: true}},
			Run: func(ctx context.Context, c *api.Client, a Args) (api.Document, error) {
				return c.Vuln.CVE(ctx, a.Get("keyword", ""))
			},
		},
		{
			Name: "vuln.dependencies", Title: "Dependency Check", Section: mode.SectionVuln,
			Params: []Param{
				{Name: "file", Label: "Manifest path", Required: true},
				{Name: "file_type", Label: "File type"},
			},
			Run: func(ctx context.Context, c *api.Client, a Args) (api.Document, error) {
				path := a.Get("file", "")
				content, err := os.ReadFile(path)
				if err != nil {
					return nil, fmt.Errorf("read manifest: %w", err)
				}
				return c.Vuln.Dependencies(ctx, string(content), a.Get("file_type", manifestType(path)))
			},
		},
		{
			Name: "vuln.full", Title: "Full Vulnerability Scan", Section: mode.SectionVuln,
			Params: target("URL"),
			Run: func(ctx context.Context, c *api.Client, a Args) (api.Document, error) {
				return c.Vuln.Full(ctx, a.Get("target", ""))
			},
		},
		{
			Name: "vuln.history", Title: "Vulnerability History", Section: mode.SectionVuln,
			Run: func(ctx context.Context, c *api.Client, _ Args) (api.Document, error) {
				return c.Vuln.History(ctx)
			},
		},

		// Threat intelligence
		{
			Name: "threat.ioc", Title: "IOC Lookup", Section: mode.SectionThreat,
			Params: []Param{
				{Name: "target", Label: "Indicator", Required: true},
				{Name: "type", Label: "IOC type", Default: "auto"},
			},
			Run: func(ctx context.Context, c *api.Client, a Args) (api.Document, error) {
				return c.Threat.IOC(ctx, a.Get("target", ""), a.Get("type", ""))
			},
		},
		{
			Name: "threat.ip-reputation", Title: "IP Reputation", Section: mode.SectionThreat,
			Params: target("IP"),
			Run: func(ctx context.Context, c *api.Client, a Args) (api.Document, error) {
				return c.Threat.IPReputation(ctx, a.Get("target", ""))
			},
		},
		{
			Name: "threat.geoip", Title: "GeoIP", Section: mode.SectionThreat,
			Params: target("IP"),
			Run: func(ctx context.Context, c *api.Client, a Args) (api.Document, error) {
				return c.Threat.GeoIP(ctx, a.Get("target", ""))
			},
		},
		{
			Name: "threat.feed", Title: "Threat Feed", Section: mode.SectionThreat,
			Params: []Param{{Name: "limit", Label: "Limit", Default: "50"}},
			Run: func(ctx context.Context, c *api.Client, a Args) (api.Document, error) {
				return c.Threat.Feed(ctx, a.Int("limit", 50))
			},
		},
		{
			Name: "threat.history", Title: "Threat History", Section: mode.SectionThreat,
			Run: func(ctx context.Context, c *api.Client, _ Args) (api.Document, error) {
				return c.Threat.History(ctx)
			},
		},

		// Logs
		{
			Name: "logs.analyze", Title: "Analyze Log File", Section: mode.SectionLogs,
			Params: []Param{
				{Name: "file", Label: "Log path", Required: true},
				{Name: "format", Label: "Format", Default: "auto"},
			},
			Run: func(ctx context.Context, c *api.Client, a Args) (api.Document, error) {
				content, err := os.ReadFile(a.Get("file", ""))
				if err != nil {
					return nil, fmt.Errorf("read log: %w", err)
				}
				return c.Logs.Analyze(ctx, string(content), a.Get("format", ""))
			},
		},
		{
			Name: "logs.upload", Title: "Upload Log File", Section: mode.SectionLogs,
			Params: []Param{
				{Name: "file", Label: "Log path", Required: true},
				{Name: "format", Label: "Format", Default: "auto"},
			},
			Run: func(ctx context.Context, c *api.Client, a Args) (api.Document, error) {
				path := a.Get("file", "")
				f, err := os.Open(path)
				if err != nil {
					return nil, fmt.Errorf("open log: %w", err)
				}
				defer f.Close()
				return c.Logs.Upload(ctx, filepath.Base(path), f, a.Get("format", ""))
			},
		},
		{
			Name: "logs.history", Title: "Log History", Section: mode.SectionLogs,
			Run: func(ctx context.Context, c *api.Client, _ Args) (api.Document, error) {
				return c.Logs.History(ctx)
			},
		},

		// Seek & Enter
		{
			Name: "seek.seek", Title: "Seek (network sweep)", Section: mode.SectionSeek,
			Params: []Param{
				{Name: "cidr", Label: "CIDR", Required: true},
				{Name: "ports", Label: "Ports", Default: "1-1000"},
			},
			Dangerous: true,
			Run: func(ctx context.Context, c *api.Client, a Args) (api.Document, error) {
				return c.Seek.Seek(ctx, a.Get("cidr", ""), a.Get("ports", ""))
			},
		},
		{
			Name: "seek.result", Title: "Seek Result", Section: mode.SectionSeek,
			Params: []Param{{Name: "scan_id", Label: "Scan ID", Required: true}},
			Run: func(ctx context.Context, c *api.Client, a Args) (api.Document, error) {
				return c.Seek.Result(ctx, a.Get("scan_id", ""))
			},
		},
		{
			Name: "seek.enter", Title: "Enter (exploit)", Section: mode.SectionSeek,
			Params: []Param{
				{Name: "target_ip", Label: "Target IP", Required: true},
				{Name: "port", Label: "Port", Required: true},
				{Name: "scan_id", Label: "Scan ID", Required: true},
				{Name: "service", Label: "Service"},
				{Name: "exploit_id", Label: "Exploit", Default: "auto"},
			},
			Dangerous: true,
			Run:       runEnter,
		},

		// Reports
		{
			Name: "reports.list", Title: "Reports", Section: mode.SectionReports,
			Run: func(ctx context.Context, c *api.Client, _ Args) (api.Document, error) {
				return c.Reports.List(ctx)
			},
		},
		{
			Name: "reports.scans", Title: "Available Scans", Section: mode.SectionReports,
			Run: func(ctx context.Context, c *api.Client, _ Args) (api.Document, error) {
				return c.Reports.AvailableScans(ctx)
			},
		},
		{
			Name: "reports.generate", Title: "Generate Report", Section: mode.SectionReports,
			Params: []Param{
				{Name: "title", Label: "Title", Required: true},
				{Name: "scan_ids", Label: "Scan IDs (comma separated)"},
				{Name: "report_type", Label: "Type", Default: "full"},
				{Name: "ai_summary", Label: "AI summary (yes/no)", Default: "no"},
			},
			Run: func(ctx context.Context, c *api.Client, a Args) (api.Document, error) {
				return c.Reports.Generate(ctx, api.ReportRequest{
					Title:            a.Get("title", ""),
					ReportType:       a.Get("report_type", ""),
					ScanIDs:          splitList(a.Get("scan_ids", "")),
					IncludeAISummary: truthy(a.Get("ai_summary", "")),
				})
			},
		},
		{
			Name: "reports.get", Title: "Report Details", Section: mode.SectionReports,
			Params: []Param{{Name: "id", Label: "Report ID", Required: true}},
			Run: func(ctx context.Context, c *api.Client, a Args) (api.Document, error) {
				return c.Reports.Get(ctx, a.Get("id", ""))
			},
		},

		// Assistant
		{
			Name: "assistant.status", Title: "Assistant Status", Section: mode.SectionAssistant,
			Run: func(ctx context.Context, c *api.Client, _ Args) (api.Document, error) {
				return c.Assistant.Status(ctx)
			},
		},
		{
			Name: "assistant.analyze", Title: "Assistant Analysis", Section: mode.SectionAssistant,
			Params: []Param{
				{Name: "content", Label: "Content", Required: true},
				{Name: "task", Label: "Task", Default: "vulnerability"},
			},
			Run: func(ctx context.Context, c *api.Client, a Args) (api.Document, error) {
				return c.Assistant.Analyze(ctx, a.Get("task", ""), a.Get("content", ""))
			},
		},

		// Settings
		{
			Name: "settings.keys", Title: "API Keys", Section: mode.SectionSettings,
			Run: func(ctx context.Context, c *api.Client, _ Args) (api.Document, error) {
				return c.Settings.ListKeys(ctx)
			},
		},
		{
			Name: "settings.key-status", Title: "API Key Status", Section: mode.SectionSettings,
			Params: []Param{{Name: "service", Label: "Service", Required: true}},
			Run: func(ctx context.Context, c *api.Client, a Args) (api.Document, error) {
				return c.Settings.KeyStatus(ctx, a.Get("service", ""))
			},
		},
		{
			Name: "settings.app", Title: "App Settings", Section: mode.SectionSettings,
			Run: func(ctx context.Context, c *api.Client, _ Args) (api.Document, error) {
				return c.Settings.App(ctx)
			},
		},
	}
}

func runSurface(ctx context.Context, c *api.Client, a Args) (api.Document, error) {
	res, err := c.Vuln.Surface(ctx, a.Get("target", ""))
	if err != nil {
		return nil, err
	}
	rows := Rows(res.Headers)
	ssl := Rows(res.SSL)
	for _, row := range ssl {
		row["check"] = "ssl"
	}
	for _, row := range rows {
		row["check"] = "header"
	}
	out := make([]any, 0, len(rows)+len(ssl))
	for _, row := range append(rows, ssl...) {
		out = append(out, map[string]any(row))
	}
	return api.Document{"target": res.Target, "results": out}, nil
}

// runEnter drains the exploitation terminal stream into one result row per
// event.
func runEnter(ctx context.Context, c *api.Client, a Args) (api.Document, error) {
	body, err := c.Seek.Enter(ctx, api.EnterRequest{
		ScanID:    a.Get("scan_id", ""),
		TargetIP:  a.Get("target_ip", ""),
		Port:      a.Int("port", 0),
		Service:   a.Get("service", ""),
		ExploitID: a.Get("exploit_id", ""),
	})
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var events []any
	success := false
	err = stream.Decode(body, func(frame []byte) bool {
		ev, err := stream.ParseTerminalEvent(frame)
		if err != nil {
			return true
		}
		if ev.Type == stream.TerminalSuccess {
			success = true
		}
		events = append(events, map[string]any{
			"event_type": ev.Type,
			"timestamp":  ev.Timestamp,
			"message":    ev.Message,
			"module":     ev.Module,
		})
		return !ev.Final()
	})
	if err != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	doc := api.Document{"results": events, "success": success}
	return doc, err
}

func manifestType(path string) string {
	if strings.EqualFold(filepath.Base(path), "package.json") {
		return "package_json"
	}
	return "requirements"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "true", "1", "on":
		return true
	}
	return false
}
