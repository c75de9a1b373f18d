package source

import (
	"net/http"
	"sync/atomic"

	"DealRadar/internal/domain"
)

// ClassifyStatus maps an HTTP status onto the upstream error taxonomy:
// 429 and 5xx retry on the next tick, any other 4xx warrants operator
// attention via job stats.
func ClassifyStatus(code int) *domain.UpstreamError {
	switch {
	case code < 400:
		return nil
	case code == http.StatusTooManyRequests || code >= 500:
		return domain.Transient("upstream returned %d", code)
	default:
		return domain.Permanent("upstream returned %d", code)
	}
}

// userAgents is the fixed rotation pool for scraper requests.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_5) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:127.0) Gecko/20100101 Firefox/127.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:127.0) Gecko/20100101 Firefox/127.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
}

// UserAgentPool hands out user agents round-robin; rotation per request is
// enough to avoid a single static fingerprint.
type UserAgentPool struct {
	next atomic.Uint64
}

// Next returns the next agent string in the rotation.
func (p *UserAgentPool) Next() string {
	n := p.next.Add(1)
	return userAgents[int(n)%len(userAgents)]
}
