/*
Package metrics provides Prometheus metrics and health state for tracething.

All metrics are registered on the default Prometheus registry at package
init and exposed by the admin listener at /metrics. Counters and histograms
are updated inline on the query path; gauges that describe standing state
(slot occupancy, stored documents) are resampled by a Collector.

# Metrics Catalog

DNS:

	tracething_dns_queries_total{qtype, result}       counter
	tracething_dns_query_duration_seconds{qtype}      histogram

The result label distinguishes answered, identity and every empty-answer
reason (wrong_suffix, unknown_source, fetch_failed, empty_slot, ...), so a
dashboard can tell a misconfigured client from a failing source even
though both look identical on the wire.

Slots:

	tracething_slot_allocations_total                 counter
	tracething_slot_evictions_total                   counter
	tracething_slots_in_use                           gauge
	tracething_slots_capacity                         gauge
	tracething_slot_cursor                            gauge

Sources:

	tracething_source_fetches_total{source, status}   counter
	tracething_source_fetch_duration_seconds{source}  histogram
	tracething_chunks_per_result                      histogram
	tracething_documents_stored                       gauge

Admin:

	tracething_admin_requests_total{path, code}       counter

# Health

Components report themselves with RegisterComponent and UpdateComponent.
/health is unhealthy if any registered component is; /ready waits for the
critical components, "dns" and "sources" by default.

# Timing

	timer := metrics.NewTimer()
	text, err := src.Fetch(ctx, labels)
	timer.ObserveDurationVec(metrics.FetchDuration, "gist")
*/
package metrics
