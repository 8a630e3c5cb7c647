package network

import (
	"crypto/tls"
	"net/http"
	"testing"
)

func TestNewSecureHTTPClient(t *testing.T) {
	c := NewSecureHTTPClient()
	tr, ok := c.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("unexpected transport type %T", c.Transport)
	}
	if tr.TLSClientConfig.MinVersion != tls.VersionTLS12 {
		t.Errorf("MinVersion = %x, want TLS 1.2", tr.TLSClientConfig.MinVersion)
	}
	if tr.TLSClientConfig.MaxVersion != tls.VersionTLS13 {
		t.Errorf("MaxVersion = %x, want TLS 1.3", tr.TLSClientConfig.MaxVersion)
	}
	if tr.Proxy == nil {
		t.Errorf("proxy from environment not configured")
	}
	if c.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", c.Timeout, DefaultTimeout)
	}
}
