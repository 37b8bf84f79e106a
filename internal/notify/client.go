package notify

import (
	"net"
	"net/http"
	"time"
)

const (
	// DefaultTimeout is the total request timeout when none is configured.
	DefaultTimeout = 10 * time.Second
	// DialTimeout is the connection timeout.
	DialTimeout = 5 * time.Second
	// TLSHandshakeTimeout is the TLS negotiation timeout.
	TLSHandshakeTimeout = 5 * time.Second
)

// Header names set on every outbound mail request.
const (
	HeaderSignature = "X-SkillSwap-Signature"
	HeaderTimestamp = "X-SkillSwap-Timestamp"
	HeaderMessageID = "X-SkillSwap-Message-Id"
	userAgent       = "SkillSwap-Mailer/1.0"
)

// NewHTTPClient creates an HTTP client for the mail API.
// It bounds every phase of the request and does not follow redirects.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   TLSHandshakeTimeout,
			ResponseHeaderTimeout: timeout,
			MaxIdleConns:          10,
			MaxIdleConnsPerHost:   2,
			IdleConnTimeout:       90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
