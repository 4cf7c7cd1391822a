// Package watcher keeps delete-after running: it repeats a run on a cron
// schedule, re-reads the config file when it changes, and guards against a
// second instance with a PID file.
//
// Example usage:
//
//	release, err := watcher.AcquirePIDFile("/run/delete-after.pid")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer release()
//
//	w, err := watcher.New(watcher.Config{Schedule: "@hourly"}, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	err = w.Run(ctx, func(ctx context.Context) { ... })
package watcher
