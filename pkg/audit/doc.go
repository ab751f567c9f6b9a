// Package audit keeps a trail of compositions in SQLite.
//
// Every reload of a configuration context produces a Record: the outcome,
// how many diagnostics of each kind were found and, on success, the
// generation and fingerprint of the installed cascade. Records are kept for
// a retention period; Scheduler prunes older ones on a cron schedule.
//
// Two database/sql drivers are supported: "sqlite" (modernc.org/sqlite, pure
// Go) and "sqlite3" (github.com/mattn/go-sqlite3, cgo).
package audit
