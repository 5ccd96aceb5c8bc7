// Package observe provides observability primitives for memoized functions.
//
// It is a pure instrumentation library: structured diagnostic logging, otel
// metrics for cache outcomes and refreshes, and one span per refresh.
// Nothing here influences caching decisions; the cache package calls into it
// and ignores what it does.
//
// Diagnostic logging is off unless the DEBUG environment variable is set,
// see LoggerFromEnv.
package observe
