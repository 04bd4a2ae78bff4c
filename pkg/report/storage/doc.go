// Package storage provides run history backends implementing
// report.Storage.
//
//   - MemoryStorage keeps runs for the lifetime of the process and backs
//     one-shot checks and tests.
//   - SQLiteStorage persists runs in a SQLite file with WAL mode, using
//     either the cgo driver (github.com/mattn/go-sqlite3, driver "sqlite3")
//     or the pure Go one (modernc.org/sqlite, driver "sqlite").
//
// New picks the backend from configuration:
//
//	store, err := storage.New(&cfg.Report, logger)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
package storage
