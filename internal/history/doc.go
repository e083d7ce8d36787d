// Package history keeps a SQLite ledger of finished packaging jobs.
//
// Every job the workflow manager completes is recorded with its counts,
// output size and error list so `hlspack history` can answer what ran,
// where it wrote, and why it failed. The store applies embedded migrations
// on open and retries writes when another process holds the database.
package history
