// Package integration holds end-to-end tests run against a disposable
// PostgreSQL container. Run them with `go test -tags integration ./internal/integration/...`.
package integration
