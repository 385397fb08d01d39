// Package proxyhttp builds the outbound HTTP client shared by the
// Reddit and Notion adapters, optionally routed through an HTTP(S) or
// SOCKS5 proxy. The client is constructed once at startup and injected;
// proxying is never a per-request decision.
package proxyhttp

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	xproxy "golang.org/x/net/proxy"
)

// NewClient returns an *http.Client with the given request timeout.
// proxyURL may be empty (direct), an http/https proxy URL, or a
// socks5:// URL.
func NewClient(proxyURL string, timeout time.Duration) (*http.Client, error) {
	if proxyURL == "" {
		return &http.Client{Timeout: timeout}, nil
	}

	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("parsing proxy URL: %w", err)
	}

	transport := &http.Transport{}
	switch u.Scheme {
	case "http", "https":
		transport.Proxy = http.ProxyURL(u)
	case "socks5":
		dialer, err := xproxy.FromURL(u, xproxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("building SOCKS5 dialer: %w", err)
		}
		if cd, ok := dialer.(xproxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.Dial = dialer.Dial
		}
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}, nil
}
