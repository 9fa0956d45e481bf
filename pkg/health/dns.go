package health

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
)

// DNSChecker asks a nameserver for the NS record of a zone and expects a
// non-empty authoritative answer. Pointed at the local listener it proves
// the responder is answering, not just bound.
type DNSChecker struct {
	Server string
	Zone   string
	Net    string
}

// NewDNSChecker creates a checker querying server for zone's NS record over UDP
func NewDNSChecker(server, zone string) *DNSChecker {
	return &DNSChecker{
		Server: server,
		Zone:   dns.Fqdn(zone),
		Net:    "udp",
	}
}

// Check performs the DNS check
func (d *DNSChecker) Check(ctx context.Context) Result {
	start := time.Now()
	fail := func(format string, args ...interface{}) Result {
		return Result{
			Healthy:   false,
			Message:   fmt.Sprintf(format, args...),
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}

	msg := new(dns.Msg)
	msg.SetQuestion(d.Zone, dns.TypeNS)

	client := &dns.Client{Net: d.Net}
	resp, _, err := client.ExchangeContext(ctx, msg, d.Server)
	if err != nil {
		return fail("query failed: %v", err)
	}
	if resp.Rcode != dns.RcodeSuccess {
		return fail("rcode %s", dns.RcodeToString[resp.Rcode])
	}
	if len(resp.Answer) == 0 {
		return fail("no NS answer for %s", d.Zone)
	}

	return Result{
		Healthy:   true,
		Message:   fmt.Sprintf("NS %s answered by %s", d.Zone, d.Server),
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}

// Type returns the check type
func (d *DNSChecker) Type() CheckType {
	return CheckTypeDNS
}

// LoopbackFor rewrites an unspecified listen host to the matching loopback
// so a check can reach a listener bound to every interface.
func LoopbackFor(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return listen
	}
	ip := net.ParseIP(host)
	switch {
	case host == "" || (ip != nil && ip.IsUnspecified() && ip.To4() == nil):
		return net.JoinHostPort("::1", port)
	case ip != nil && ip.IsUnspecified():
		return net.JoinHostPort("127.0.0.1", port)
	}
	return listen
}
