// Package evidence persists an audit trail of consent evaluations.
//
// The evaluator itself is stateless; this package sits beside it and keeps
// one immutable record per evaluation so that decisions and their audit
// hashes can be reviewed, exported, and pruned later.
//
// # Architecture
//
//  1. Recorder - converts evaluations into records asynchronously
//  2. Storage - persists records (memory, SQLite, pure-Go SQLite, PostgreSQL)
//  3. Query - validates and applies filters
//  4. Export - writes records as JSON or CSV
//  5. Retention - prunes by age and count on a cron schedule
//
// # Records
//
// Each record captures:
//   - The request fields as received, with absent fields left empty
//   - A canonical SHA-256 of the request document
//   - Decision, reason, detail, consent cost and audit hash
//   - Where the evaluation came from (cli, http, intake) and its request ID
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
//	    Path:    "data/evidence.db",
//	    WALMode: true,
//	})
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	rec := recorder.New(store, recorder.DefaultConfig())
//	defer rec.Close()
//
//	rec.Record(ctx, evidence.NewRecord(req, result, meta))
//
// # Querying
//
//	records, err := store.Query(ctx, &evidence.Query{
//	    Decision: "DENY",
//	    Limit:    100,
//	})
package evidence
