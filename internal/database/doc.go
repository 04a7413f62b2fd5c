// Package database provides SQLite-based run history for linkcheck.
//
// Every run stores its summary, the fingerprint of the blacklist it used
// and its full report as JSON. The history backs the history command,
// which lists past runs and diffs the latest two runs of a root.
//
// The database is a single file opened through modernc.org/sqlite, a
// CGO-free driver, in WAL mode.
package database
