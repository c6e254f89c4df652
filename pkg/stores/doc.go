// Package stores persists run history in a local SQLite database.
// Each provisioning run is recorded with its per-package outcomes so
// past runs can be inspected after the fact.
package stores
