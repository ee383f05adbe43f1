// Command campuswal-backup writes one export snapshot to the backup file and,
// when configured, to a Google spreadsheet.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"campuswal/internal/backup"
	"campuswal/internal/cli"
	"campuswal/internal/log"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()

	out := flag.String("out", cfg.BackupFile, "backup file path; empty disables the file sink")
	noSheets := flag.Bool("no-sheets", false, "skip the Google Sheets sink")
	flag.Parse()

	logger := cli.SetupLogger(cfg.LogLevel)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	gw, err := cli.OpenGateway(ctx, cfg, clockwork.NewRealClock(), logger)
	if err != nil {
		logger.Error("Failed to open storage", log.FieldError, err.Error())
		os.Exit(1)
	}
	defer gw.Teardown()

	var sinks []backup.Sink
	if *out != "" {
		sinks = append(sinks, backup.NewFileSink(*out))
	}
	if cfg.SheetsEnabled() && !*noSheets {
		sheets, err := backup.NewSheetsSink(ctx, backup.SheetsConfig{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		}, cfg.Location())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets sink", log.FieldError, err.Error())
			os.Exit(1)
		}
		sinks = append(sinks, sheets)
	}
	if len(sinks) == 0 {
		logger.Warn("No backup sink configured")
		return
	}

	if err := backup.Run(ctx, gw, logger, sinks...); err != nil {
		logger.Error("Backup failed", log.FieldError, err.Error())
		os.Exit(1)
	}
}
