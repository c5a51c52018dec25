// Package observability provides structured logging and Prometheus metrics
// for the dsvgo client library.
//
// # Logging
//
// Logging is built on logrus with JSON output. Every component takes a
// *logrus.Entry so callers can attach their own fields:
//
//	log := observability.NewLogger(logrus.InfoLevel, os.Stderr)
//	orch := auth.NewOrchestrator(reg, auth.WithLogger(log.WithField("component", "auth")))
//
// Components that are constructed without a logger use NopLogger, which
// discards everything.
//
// Credentials are never logged: auth.Credentials redacts its password in all
// formatting verbs, and no component logs request bodies.
//
// # Metrics
//
// AuthMetrics tracks the expensive part of the system, the SSO login flow:
// logins by service and outcome, login duration, cache hits/misses and probe
// re-checks. Register against any prometheus.Registerer:
//
//	metrics := observability.NewAuthMetrics(prometheus.DefaultRegisterer)
package observability
