package security

import (
	"context"
	"crypto/tls"
	"math"
	"net"
	"net/url"
	"time"

	"github.com/chickenjockey/sitestatus/pkg/types"
)

// dialTimeout bounds one TLS handshake.
const dialTimeout = 10 * time.Second

// ExpiringWithin is the window in which a certificate counts as expiring.
const ExpiringWithin = 30 * 24 * time.Hour

// Certificate states.
const (
	StatusValid       = "valid"
	StatusExpiring    = "expiring"
	StatusExpired     = "expired"
	StatusUnreachable = "unreachable"
)

// Checker inspects the TLS certificates of feed endpoints.
type Checker struct {
	// InsecureSkipVerify lets self-signed endpoints be inspected.
	InsecureSkipVerify bool

	now func() time.Time
}

// NewChecker returns a Checker using the wall clock.
func NewChecker(insecureSkipVerify bool) *Checker {
	return &Checker{InsecureSkipVerify: insecureSkipVerify, now: time.Now}
}

// Check dials the TLS endpoint behind rawURL and describes its leaf
// certificate.
//
// Returns nil for non-HTTPS or unparseable URLs: there is no certificate to
// inspect.
func (c *Checker) Check(ctx context.Context, rawURL string) *types.CertStatus {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme != "https" {
		return nil
	}

	host := u.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "443")
	}
	cs := &types.CertStatus{Endpoint: host}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{},
		Config: &tls.Config{
			ServerName:         u.Hostname(),
			InsecureSkipVerify: c.InsecureSkipVerify, //nolint:gosec // user-configured
		},
	}

	netConn, err := dialer.DialContext(dialCtx, "tcp", host)
	if err != nil {
		cs.Status = StatusUnreachable
		return cs
	}
	conn := netConn.(*tls.Conn)
	defer conn.Close()

	peerCerts := conn.ConnectionState().PeerCertificates
	if len(peerCerts) == 0 {
		cs.Status = StatusUnreachable
		return cs
	}

	leaf := peerCerts[0]
	left := leaf.NotAfter.Sub(c.now())

	cs.NotAfter = leaf.NotAfter.Unix()
	cs.Issuer = leaf.Issuer.CommonName
	if cs.Issuer == "" && len(leaf.Issuer.Organization) > 0 {
		cs.Issuer = leaf.Issuer.Organization[0]
	}
	cs.DaysLeft = int(math.Floor(left.Hours() / 24))
	cs.Status = Classify(left)
	return cs
}

// CheckAll checks every distinct HTTPS host among urls, in order.
func (c *Checker) CheckAll(ctx context.Context, urls ...string) []types.CertStatus {
	seen := make(map[string]bool)
	var out []types.CertStatus
	for _, raw := range urls {
		cs := c.Check(ctx, raw)
		if cs == nil || seen[cs.Endpoint] {
			continue
		}
		seen[cs.Endpoint] = true
		out = append(out, *cs)
	}
	return out
}

// Classify maps the time left on a certificate to a state.
func Classify(left time.Duration) string {
	switch {
	case left <= 0:
		return StatusExpired
	case left <= ExpiringWithin:
		return StatusExpiring
	default:
		return StatusValid
	}
}
