package client

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

func newTransport(proxyStr string, insecure bool) *http.Transport {
	d := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           d.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          16,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if insecure {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	if strings.TrimSpace(proxyStr) != "" {
		if u, err := url.Parse(proxyStr); err == nil && u.Scheme != "" && u.Host != "" {
			tr.Proxy = http.ProxyURL(u)
		}
	}

	return tr
}

// newHTTPClients returns the API client (bounded by timeout) and the
// long-lived stream client, sharing one transport.
func newHTTPClients(timeout time.Duration, proxyStr string, insecure bool) (*http.Client, *http.Client) {
	tr := newTransport(proxyStr, insecure)
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &http.Client{Transport: tr, Timeout: timeout}, &http.Client{Transport: tr}
}
