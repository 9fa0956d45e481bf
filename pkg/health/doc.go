/*
Package health runs periodic reachability checks and feeds their results
into the component health registry served on /health.

Two check types exist:

  - HTTPChecker issues a HEAD against an upstream content endpoint. Any
    status below 500 counts as reachable.
  - DNSChecker asks a nameserver for the NS record of a zone. Pointed at the
    local listener it confirms the responder answers its own apex.

A Monitor owns one goroutine per check. Each result is folded into a Status
that only flips to unhealthy after Retries consecutive failures and flips
back on the first success:

	m := health.NewMonitor(metrics.UpdateComponent)
	m.Add("dns.self", health.NewDNSChecker("[::1]:53", "thing.f0x.es."), health.DefaultConfig())
	m.Start(ctx)
	defer m.Stop()

Health checks never gate query answering. A failing upstream degrades /health but
leaves /ready untouched, since the responder can still serve documents and
cached content.
*/
package health
