// Package schedule computes cron run times and defers work until a
// deadline.
//
// The cron helpers expand an expression into its upcoming run times.
// RunAt holds a function until its run time arrives, honoring
// cancellation.
package schedule
