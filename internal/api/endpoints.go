package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
)

// ScanRequest is the common body for single-target scans.
type ScanRequest struct {
	Target  string         `json:"target"`
	Options map[string]any `json:"options,omitempty"`
}

// Health is the body of GET /api/health.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Health checks backend liveness.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	err := c.Get(ctx, "/api/health", &h)
	return h, err
}

// DashboardStats returns aggregate scan counters and recent activity.
func (c *Client) DashboardStats(ctx context.Context) (Document, error) {
	var doc Document
	err := c.Get(ctx, "/api/stats/dashboard", &doc)
	return doc, err
}

func (c *Client) postDoc(ctx context.Context, path string, body any, opts ...CallOption) (Document, error) {
	var doc Document
	err := c.Post(ctx, path, body, &doc, opts...)
	return doc, err
}

func (c *Client) getDoc(ctx context.Context, path string, opts ...CallOption) (Document, error) {
	var doc Document
	err := c.Get(ctx, path, &doc, opts...)
	return doc, err
}

// ReconService covers /api/recon.
type ReconService struct{ c *Client }

func (s *ReconService) Subdomains(ctx context.Context, target string) (Document, error) {
	return s.c.postDoc(ctx, "/api/recon/subdomains", ScanRequest{Target: target})
}

// Ports scans a port range such as "1-1000" or "22,80,443".
func (s *ReconService) Ports(ctx context.Context, target, ports string) (Document, error) {
	if ports == "" {
		ports = "1-1000"
	}
	body := struct {
		Target string `json:"target"`
		Ports  string `json:"ports"`
	}{target, ports}
	return s.c.postDoc(ctx, "/api/recon/ports", body)
}

func (s *ReconService) Whois(ctx context.Context, target string) (Document, error) {
	return s.c.postDoc(ctx, "/api/recon/whois", ScanRequest{Target: target})
}

func (s *ReconService) DNS(ctx context.Context, target string) (Document, error) {
	return s.c.postDoc(ctx, "/api/recon/dns", ScanRequest{Target: target})
}

func (s *ReconService) Tech(ctx context.Context, target string) (Document, error) {
	return s.c.postDoc(ctx, "/api/recon/tech", ScanRequest{Target: target})
}

func (s *ReconService) Full(ctx context.Context, target string) (Document, error) {
	return s.c.postDoc(ctx, "/api/recon/full", ScanRequest{Target: target})
}

func (s *ReconService) History(ctx context.Context) (Document, error) {
	return s.c.getDoc(ctx, "/api/recon/history")
}

// OSINTService covers /api/osint.
type OSINTService struct{ c *Client }

func (s *OSINTService) Shodan(ctx context.Context, target string) (Document, error) {
	return s.c.postDoc(ctx, "/api/osint/shodan", ScanRequest{Target: target})
}

// VirusTotal scans a url, domain, ip or hash.
func (s *OSINTService) VirusTotal(ctx context.Context, target, targetType string) (Document, error) {
	if targetType == "" {
		targetType = "domain"
	}
	return s.c.postDoc(ctx, "/api/osint/virustotal", typedTarget{target, targetType})
}

// HIBP checks an email or domain for known breaches.
func (s *OSINTService) HIBP(ctx context.Context, target, targetType string) (Document, error) {
	if targetType == "" {
		targetType = "email"
	}
	return s.c.postDoc(ctx, "/api/osint/hibp", typedTarget{target, targetType})
}

func (s *OSINTService) Reputation(ctx context.Context, target string) (Document, error) {
	return s.c.postDoc(ctx, "/api/osint/reputation", ScanRequest{Target: target})
}

func (s *OSINTService) History(ctx context.Context) (Document, error) {
	return s.c.getDoc(ctx, "/api/osint/history")
}

type typedTarget struct {
	Target     string `json:"target"`
	TargetType string `json:"target_type"`
}

// VulnService covers /api/vuln.
type VulnService struct{ c *Client }

func (s *VulnService) Headers(ctx context.Context, target string) (Document, error) {
	return s.c.postDoc(ctx, "/api/vuln/headers", ScanRequest{Target: target})
}

// SSL checks the certificate and TLS setup of hostname:port.
func (s *VulnService) SSL(ctx context.Context, hostname string, port int) (Document, error) {
	if port == 0 {
		port = 443
	}
	body := struct {
		Hostname string `json:"hostname"`
		Port     int    `json:"port"`
	}{hostname, port}
	return s.c.postDoc(ctx, "/api/vuln/ssl", body)
}

func (s *VulnService) CVE(ctx context.Context, keyword string) (Document, error) {
	body := struct {
		Keyword string `json:"keyword"`
	}{keyword}
	return s.c.postDoc(ctx, "/api/vuln/cve", body)
}

// Dependencies checks a manifest; fileType is "requirements" or "package_json".
func (s *VulnService) Dependencies(ctx context.Context, content, fileType string) (Document, error) {
	if fileType == "" {
		fileType = "requirements"
	}
	body := struct {
		Content  string `json:"content"`
		FileType string `json:"file_type"`
	}{content, fileType}
	return s.c.postDoc(ctx, "/api/vuln/dependencies", body)
}

func (s *VulnService) Full(ctx context.Context, target string) (Document, error) {
	return s.c.postDoc(ctx, "/api/vuln/full", ScanRequest{Target: target})
}

func (s *VulnService) History(ctx context.Context) (Document, error) {
	return s.c.getDoc(ctx, "/api/vuln/history")
}

// ThreatService covers /api/threat.
type ThreatService struct{ c *Client }

// IOC looks up an indicator; iocType "auto" lets the backend detect it.
func (s *ThreatService) IOC(ctx context.Context, target, iocType string) (Document, error) {
	if iocType == "" {
		iocType = "auto"
	}
	body := struct {
		Target  string `json:"target"`
		IOCType string `json:"ioc_type"`
	}{target, iocType}
	return s.c.postDoc(ctx, "/api/threat/ioc", body)
}

func (s *ThreatService) IPReputation(ctx context.Context, ip string) (Document, error) {
	return s.c.postDoc(ctx, "/api/threat/ip-reputation", ScanRequest{Target: ip})
}

func (s *ThreatService) GeoIP(ctx context.Context, ip string) (Document, error) {
	return s.c.postDoc(ctx, "/api/threat/geoip", ScanRequest{Target: ip})
}

// Feed returns the latest threat feed entries.
func (s *ThreatService) Feed(ctx context.Context, limit int) (Document, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.c.getDoc(ctx, "/api/threat/feed", Query("limit", strconv.Itoa(limit)))
}

func (s *ThreatService) History(ctx context.Context) (Document, error) {
	return s.c.getDoc(ctx, "/api/threat/history")
}

// LogsService covers /api/logs.
type LogsService struct{ c *Client }

// Analyze parses raw log content; format "auto" detects it.
func (s *LogsService) Analyze(ctx context.Context, content, format string) (Document, error) {
	if format == "" {
		format = "auto"
	}
	body := struct {
		Content string `json:"content"`
		Format  string `json:"format"`
	}{content, format}
	return s.c.postDoc(ctx, "/api/logs/analyze", body)
}

// Upload sends a log file as multipart form data.
func (s *LogsService) Upload(ctx context.Context, filename string, r io.Reader, format string) (Document, error) {
	if format == "" {
		format = "auto"
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}

	var doc Document
	err = s.c.roundTrip(ctx, http.MethodPost, "/api/logs/upload", &buf, w.FormDataContentType(), &doc,
		[]CallOption{Query("log_format", format)})
	return doc, err
}

func (s *LogsService) History(ctx context.Context) (Document, error) {
	return s.c.getDoc(ctx, "/api/logs/history")
}

// ReportRequest is the body of POST /api/reports/generate.
type ReportRequest struct {
	Title            string   `json:"title"`
	ReportType       string   `json:"report_type,omitempty"`
	ScanIDs          []string `json:"scan_ids"`
	IncludeAISummary bool     `json:"include_ai_summary"`
}

// ReportsService covers /api/reports.
type ReportsService struct{ c *Client }

func (s *ReportsService) Generate(ctx context.Context, req ReportRequest) (Document, error) {
	if req.ReportType == "" {
		req.ReportType = "full"
	}
	if req.ScanIDs == nil {
		req.ScanIDs = []string{}
	}
	return s.c.postDoc(ctx, "/api/reports/generate", req)
}

func (s *ReportsService) List(ctx context.Context) (Document, error) {
	return s.c.getDoc(ctx, "/api/reports/")
}

func (s *ReportsService) AvailableScans(ctx context.Context) (Document, error) {
	return s.c.getDoc(ctx, "/api/reports/scans/available")
}

func (s *ReportsService) Get(ctx context.Context, id string) (Document, error) {
	return s.c.getDoc(ctx, "/api/reports/"+url.PathEscape(id))
}

// Download streams a rendered report ("pdf" or "markdown") into w.
func (s *ReportsService) Download(ctx context.Context, id, format string, w io.Writer) error {
	accept := "application/pdf"
	if format == "markdown" {
		accept = "text/markdown"
	}
	path := "/api/reports/" + url.PathEscape(id) + "/" + format

	co := s.c.callOptions([]CallOption{Accept(accept)})
	callCtx, cancel := context.WithTimeout(ctx, co.timeout)
	defer cancel()

	resp, err := s.c.send(ctx, callCtx, http.MethodGet, path, nil, "", co)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpError(http.MethodGet, path, resp)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return s.c.transportError(ctx, callCtx, http.MethodGet, path, co.timeout, err)
	}
	return nil
}

func (s *ReportsService) Delete(ctx context.Context, id string) error {
	return s.c.Delete(ctx, "/api/reports/"+url.PathEscape(id), nil)
}

// SettingsService covers /api/settings.
type SettingsService struct{ c *Client }

// StoreKey saves a third-party API key in the backend's keyring.
func (s *SettingsService) StoreKey(ctx context.Context, service, key string) error {
	body := struct {
		Service string `json:"service"`
		Key     string `json:"key"`
	}{service, key}
	return s.c.Post(ctx, "/api/settings/api-keys", body, nil)
}

func (s *SettingsService) ListKeys(ctx context.Context) (Document, error) {
	return s.c.getDoc(ctx, "/api/settings/api-keys")
}

func (s *SettingsService) DeleteKey(ctx context.Context, service string) error {
	return s.c.Delete(ctx, "/api/settings/api-keys/"+url.PathEscape(service), nil)
}

func (s *SettingsService) KeyStatus(ctx context.Context, service string) (Document, error) {
	return s.c.getDoc(ctx, "/api/settings/api-keys/"+url.PathEscape(service)+"/status")
}

func (s *SettingsService) App(ctx context.Context) (Document, error) {
	return s.c.getDoc(ctx, "/api/settings/app")
}

// UpdateApp sets a single application setting.
func (s *SettingsService) UpdateApp(ctx context.Context, key string, value any) (Document, error) {
	body := struct {
		Key   string `json:"key"`
		Value any    `json:"value"`
	}{key, value}
	var doc Document
	err := s.c.Put(ctx, "/api/settings/app", body, &doc)
	return doc, err
}

// ChatMessage is one turn of an assistant conversation on the wire.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AssistantService covers /api/assistant.
type AssistantService struct{ c *Client }

// ChatStream starts a streamed completion; the caller owns the returned body.
func (s *AssistantService) ChatStream(ctx context.Context, messages []ChatMessage) (io.ReadCloser, error) {
	body := struct {
		Messages []ChatMessage `json:"messages"`
		Stream   bool          `json:"stream"`
	}{messages, true}
	return s.c.Stream(ctx, "/api/assistant/chat", body)
}

// Analyze runs a task-specific analysis: vulnerability, log, report or
// remediation.
func (s *AssistantService) Analyze(ctx context.Context, task, content string) (Document, error) {
	body := struct {
		Content string `json:"content"`
		Task    string `json:"task"`
	}{content, task}
	return s.c.postDoc(ctx, "/api/assistant/analyze", body)
}

func (s *AssistantService) Status(ctx context.Context) (Document, error) {
	return s.c.getDoc(ctx, "/api/assistant/status")
}

func (s *AssistantService) Test(ctx context.Context) (Document, error) {
	return s.c.postDoc(ctx, "/api/assistant/test", struct{}{})
}

// EnterRequest is the body of POST /api/seek-enter/enter.
type EnterRequest struct {
	ScanID    string         `json:"scan_id"`
	TargetIP  string         `json:"target_ip"`
	Port      int            `json:"port"`
	Service   string         `json:"service,omitempty"`
	ExploitID string         `json:"exploit_id,omitempty"`
	Options   map[string]any `json:"options,omitempty"`
}

// SeekService covers /api/seek-enter.
type SeekService struct{ c *Client }

// Seek sweeps a CIDR range. It runs with SeekTimeout rather than the default.
func (s *SeekService) Seek(ctx context.Context, cidr, ports string) (Document, error) {
	if ports == "" {
		ports = "1-1000"
	}
	body := struct {
		CIDR  string `json:"cidr"`
		Ports string `json:"ports"`
	}{cidr, ports}
	return s.c.postDoc(ctx, "/api/seek-enter/seek", body, Timeout(SeekTimeout))
}

func (s *SeekService) Result(ctx context.Context, scanID string) (Document, error) {
	return s.c.getDoc(ctx, "/api/seek-enter/seek/"+url.PathEscape(scanID))
}

// Enter starts an exploitation session and returns its terminal event stream.
func (s *SeekService) Enter(ctx context.Context, req EnterRequest) (io.ReadCloser, error) {
	if req.ExploitID == "" {
		req.ExploitID = "auto"
	}
	return s.c.Stream(ctx, "/api/seek-enter/enter", req)
}
