/*
Package log provides structured logging for tracething using zerolog.

A single global Logger is configured once by Init from the log section of the
config file. Output is JSON by default; console output is available for
interactive use, and setting a file path switches to a rotating JSON file
managed by lumberjack.

# Component and Query Loggers

Long-lived parts of the process log through WithComponent. The DNS server
creates one logger per incoming message with WithQueryID, so every line a
query produces, including the source fetch it may trigger, carries the same
query_id:

	{"level":"info","component":"dns","query_id":"3f0c...","query":"abc.octocat.gist.thing.f0x.es.","source":"gist","slot":31,"chunks":4,"evicted":false,"time":"2026-10-19T10:30:00Z","message":"allocated slot"}

The per-query logger travels to the router in a context.Context via
zerolog's WithContext and Ctx.

# Levels

	debug  every question with its outcome
	info   slot allocations, listener lifecycle
	warn   failed fetches, unservable chunks
	error  listener failures, recovered panics

# Usage

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		File:       "/var/log/tracething/tracething.log",
		MaxSizeMB:  100,
		MaxBackups: 3,
		MaxAgeDays: 28,
	})

	logger := log.WithComponent("sources")
	logger.Info().Strs("keys", registry.Keys()).Msg("source registry sealed")
*/
package log
