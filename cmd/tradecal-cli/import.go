package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"tradecal/internal/amqp"
	"tradecal/internal/backend"
	"tradecal/internal/cli"
	"tradecal/internal/config"
	"tradecal/internal/log"
	"tradecal/internal/storage"
	"tradecal/internal/worker"
)

type importCmd struct {
	source  string
	dbPath  string
	publish bool
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "copy months from a source into the SQLite store" }
func (*importCmd) Usage() string {
	return `tradecal-cli import [-source memory|sheets] [-db <path>] [-publish]

  Runs one import pass into SQLite and prints the months that changed.
  With -publish and AMQP_URL set, a refresh event is sent to running servers.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.source, "source", "", "Import source (memory, sheets); defaults to IMPORT_SOURCE")
	f.StringVar(&c.dbPath, "db", "", "SQLite database path; defaults to SQLITE_DB_PATH")
	f.BoolVar(&c.publish, "publish", false, "Publish a refresh event for changed months")
}

func (c *importCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg := config.Load()
	if c.source != "" {
		cfg.ImportSource = c.source
	}
	if c.dbPath != "" {
		cfg.SQLiteDBPath = c.dbPath
	}
	if *dataFile != "" {
		cfg.DataFile = *dataFile
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	level := "info"
	if *verbose {
		level = "debug"
	}
	logger := cli.SetupLogger(level).WithComponent(log.ComponentCLI)

	backendCfg, err := backend.FromAppConfig(cfg, cfg.ImportSource)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	source, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer source.Close()

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer repo.Close()

	var publisher worker.Publisher
	if c.publish && cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		defer client.Close()
		publisher = client
	}

	res, err := worker.NewImportWorker(source.Reader, repo, publisher, cfg.ImportSource, logger).RunOnce(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	for _, key := range res.Changed {
		fmt.Println(key)
	}
	fmt.Fprintf(os.Stderr, "%d changed, %d unchanged\n", len(res.Changed), res.Unchanged)
	return subcommands.ExitSuccess
}
