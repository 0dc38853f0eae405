package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"
)

// SurfaceScan is the combined header analysis and SSL check of one target.
type SurfaceScan struct {
	Target  string
	Headers Document
	SSL     Document
}

// Surface runs the header analysis and the SSL check concurrently. Both calls
// always run to completion; if either fails the errors are joined.
func (s *VulnService) Surface(ctx context.Context, target string) (SurfaceScan, error) {
	res := SurfaceScan{Target: target}
	host, port := splitTarget(target)

	var headersErr, sslErr error
	var g errgroup.Group
	g.Go(func() error {
		res.Headers, headersErr = s.Headers(ctx, target)
		return nil
	})
	g.Go(func() error {
		res.SSL, sslErr = s.SSL(ctx, host, port)
		return nil
	})
	_ = g.Wait()

	if headersErr != nil {
		headersErr = fmt.Errorf("header analysis: %w", headersErr)
	}
	if sslErr != nil {
		sslErr = fmt.Errorf("ssl check: %w", sslErr)
	}
	return res, errors.Join(headersErr, sslErr)
}

// splitTarget pulls a hostname and port out of a URL or bare host.
func splitTarget(target string) (string, int) {
	raw := strings.TrimSpace(target)
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return strings.TrimSpace(target), 443
	}

	port := 443
	if p := u.Port(); p != "" {
		fmt.Sscanf(p, "%d", &port)
	} else if u.Scheme == "http" {
		port = 80
	}
	return u.Hostname(), port
}
