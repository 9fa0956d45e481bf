/*
Package source fetches the raw text behind an AAAA query.

A query name under the zone reads as <residual...>.<key>.<suffix>. The key
picks a Source from the Registry and the residual labels, most specific
first, tell the source what to fetch:

	abc123.octocat.gist.thing.f0x.es.   gist abc123 by octocat
	golang.wikipedia.thing.f0x.es.      intro of the "golang" article
	motd.doc.thing.f0x.es.              local document "motd"

The Registry is filled at startup and sealed before the responder serves.
Every failure comes back as a *FetchError naming the source, which the
router turns into an empty answer. Remote sources can be wrapped with
Cached to keep successful results in an LRU for a while.
*/
package source
