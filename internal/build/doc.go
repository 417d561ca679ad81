// Package build runs one complete portfolio build: it discovers the project
// documents below the source root, populates a fresh publish transaction with
// their assets and the aggregate manifest, commits it, and records the outcome
// in the build report, the outcome log, metrics, history and notifications.
//
// All entry points (the build command, repair, watch rebuilds) route through
// Service.
package build
