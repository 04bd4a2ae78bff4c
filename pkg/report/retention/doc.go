// Package retention prunes old check runs from run history.
//
// A Pruner deletes runs older than the configured number of days; a
// Scheduler runs it on a cron schedule while `anvil watch` is running:
//
//	pruner := retention.NewPruner(store, &cfg.Report.Retention, logger)
//	sched := retention.NewScheduler(pruner, cfg.Report.Retention.PruneSchedule)
//	if err := sched.Start(ctx); err != nil {
//	    return err
//	}
//	defer sched.Stop()
package retention
