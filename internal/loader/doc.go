// Package loader parses Matrix Market files from disk into storage.
//
// # Basic Usage
//
//	l := loader.New(store, logger, collector)
//
//	stats, err := l.Load(ctx, "/data/matrices", &loader.Config{
//	    Workers:       4,
//	    ParserWorkers: 2,
//	})
//
//	fmt.Printf("Loaded %d files (%d entries) in %v\n",
//	    stats.FilesLoaded, stats.EntriesLoaded, stats.Duration)
//
// # Pipeline
//
// For every .mtx or .mtx.gz file below the root:
//
//  1. Hash: SHA-256 of the file on disk, compressed or not
//  2. Skip: unchanged hashes are skipped unless Config.Force is set
//  3. Parse: banner and size line, then the body via parser.ScanEntries
//  4. Store: the matrix row and its entries, in one transaction per file
//
// Gzip and zlib files are detected by their magic bytes, so the extension
// only decides which files are picked up.
//
// # Failures
//
// A file that cannot be opened or parsed is not fatal. Its matrix row is kept
// with ParseError set and no entries, and the run continues; the error is
// listed in Statistics.ErrorMessages. Storage errors and cancellation abort
// the run.
//
// # Concurrency
//
// Files are fanned out to Config.Workers goroutines with an errgroup and a
// channel semaphore. Storage is a single SQLite connection, so transactions
// commit one at a time while hashing proceeds in parallel. Config.ParserWorkers
// additionally splits each file's body across goroutines.
//
// Only one Load runs per Loader; a concurrent call returns ErrLoadInProgress.
//
// # Watching
//
// Watch re-runs Load on a debounced fsnotify event and removes matrices whose
// files are deleted:
//
//	go l.Watch(ctx, "/data/matrices", cfg, func(s *loader.Statistics, err error) {
//	    ...
//	})
//
// Filesystems that drop change events (NFS, some FUSE mounts) can add a
// Scheduler, which runs a full Load on a cron schedule:
//
//	s := l.NewScheduler("/data/matrices", cfg, nil)
//	err := s.Start(ctx, "@every 1h")
package loader
