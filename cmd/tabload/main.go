package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"tabload/internal/config"
	"tabload/internal/metrics"
	"tabload/internal/metrics/datadog"
	"tabload/internal/uploader"

	// register all backends with the storage factory.
	// config specifies which to use but we need to build in support for all of them.
	_ "tabload/internal/storage/all"
)

// main is the entry point for the batch loader. It loads the batch config,
// optionally initializes a metrics backend, and runs the upload.
func main() {
	var (
		cfgPath           string
		dsnFlg            string
		metricsBackendFlg string
		fileTimeoutFlg    time.Duration
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "configs/batch.json", "batch config JSON path")
	flag.StringVar(&dsnFlg, "dsn", "", "override the sink DSN from the config")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "none", "metrics backend to use (datadog, none)")
	flag.DurationVar(&fileTimeoutFlg, "file-timeout", 0, "per-file timeout, e.g. 90s (0 disables)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	f, err := os.Open(cfgPath)
	if err != nil {
		fatalf("open config: %v", err)
	}
	defer f.Close()

	var batch config.Batch
	if err := json.NewDecoder(f).Decode(&batch); err != nil {
		fatalf("decode config: %v", err)
	}

	issues := config.Validate(batch)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasError(issues) {
		log.Printf("Configuration is invalid: %v", cfgPath)
		os.Exit(1)
	}

	// If validate flag is set, only validate the configuration and exit
	if validate {
		log.Printf("Configuration is valid: %v", cfgPath)
		os.Exit(0)
	}

	// Decide metrics backend: flag → env → default.
	backendName := metricsBackendFlg
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	switch backendName {
	case "datadog":
		// Datadog backend:
		//   - buffers metrics and submits periodically (default once per minute)
		//   - submits one final time at shutdown (Close())
		jobName := batch.Job
		if jobName == "" {
			jobName = "tabload"
		}

		// Optional extra tags provided via environment.
		extraTags := datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS"))

		b, err := datadog.NewBackend(context.Background(), datadog.Options{
			JobName:    jobName,
			Tags:       extraTags,
			FlushEvery: 60 * time.Second,
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
		} else {
			log.Printf("metrics: backend=%v job_name=%v tags=%v", backendName, jobName, extraTags)
			metrics.SetBackend(b)

			// Close() stops the periodic flush loop and then performs a final
			// Flush(). This is the clean shutdown path for the Datadog backend.
			defer func() {
				if err := b.Close(); err != nil {
					log.Printf("metrics: datadog close/flush error: %v", err)
				}
			}()
		}

	case "", "none":
		// metrics disabled; nop backend remains
		if *verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}

	sink := batch.StorageConfig()
	if dsnFlg != "" {
		sink.DSN = dsnFlg
	}

	u := &uploader.Uploader{FileTimeout: fileTimeoutFlg}
	if *verbose {
		u.Logf = log.Printf
	}

	ctx := context.Background()
	start := time.Now()

	if *verbose {
		log.Printf("batch: job=%s sink=%s files=%d", batch.Job, sink.Kind, len(batch.Files))
	}

	outcomes := u.Upload(ctx, sink, batch.Jobs())

	failures := 0
	for _, o := range outcomes {
		fmt.Printf("%s\t%s\t%s\n", o.File, o.Status, o.Message)
		if o.Status != uploader.StatusSuccess {
			failures++
			continue
		}
		for col, n := range o.Losses {
			fmt.Printf("%s\twarning: column %s: %d values could not be converted and were set to NULL\n", o.File, col, n)
		}
	}

	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
	if failures > 0 {
		os.Exit(1)
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
