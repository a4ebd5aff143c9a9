// Package retention prunes evidence records by age and by count.
//
// # Basic Usage
//
//	pruner := retention.NewPruner(store, &retention.Config{
//	    RetentionDays:       90,
//	    PruneSchedule:       "0 3 * * *",
//	    ArchiveBeforeDelete: true,
//	    ArchivePath:         "data/archives/",
//	})
//	if err := pruner.Start(ctx); err != nil {
//	    return err
//	}
//	defer pruner.Stop()
//
// Prune can also be called directly, as `covenant evidence prune` does.
//
// # Phases
//
// Age pruning deletes records evaluated at or before now minus RetentionDays.
// Count pruning then deletes the oldest records until at most MaxRecords
// remain; records sharing the cutoff instant go together, so slightly more
// may be removed. Either phase is disabled by a zero value.
//
// # Archiving
//
// With ArchiveBeforeDelete, the records a phase is about to delete are
// streamed into evidence-<age|count>-<timestamp>.json under ArchivePath
// first. A failed archive aborts the deletion.
//
// # Scheduling
//
// PruneSchedule takes standard five-field cron expressions
// (github.com/robfig/cron/v3). An empty schedule makes Start a no-op.
package retention
