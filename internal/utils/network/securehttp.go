package network

import (
	"crypto/tls"
	"net/http"
	"time"
)

// DefaultTimeout bounds a whole request including the body transfer. CEF
// archives run to several hundred megabytes.
const DefaultTimeout = 30 * time.Minute

// NewSecureHTTPClient returns a client restricted to TLS 1.2 and 1.3 with
// AES-GCM suites for TLS 1.2. Proxy settings come from the environment.
func NewSecureHTTPClient() *http.Client {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
		MaxVersion: tls.VersionTLS13,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
		},
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSClientConfig:     tlsConfig,
		ForceAttemptHTTP2:   true,
		TLSHandshakeTimeout: 15 * time.Second,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   DefaultTimeout,
	}
}
