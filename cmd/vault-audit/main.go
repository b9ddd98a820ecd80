package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/big"
	"os"
	"time"

	"orbitalvault/services/auditd"
	auditcfg "orbitalvault/services/auditd/config"
	"orbitalvault/services/auditd/storage"
)

type auditReport struct {
	RunID       string          `json:"runId"`
	Start       string          `json:"start"`
	End         string          `json:"end"`
	Events      int             `json:"events"`
	Anomalies   []anomalyReport `json:"anomalies"`
	CSVPath     string          `json:"csvPath,omitempty"`
	ParquetPath string          `json:"parquetPath,omitempty"`
	Pruned      int64           `json:"pruned,omitempty"`
}

type anomalyReport struct {
	Type    string `json:"type"`
	EventID int64  `json:"eventId"`
	Details string `json:"details"`
}

func main() {
	configPath := flag.String("config", "./audit.yaml", "Path to audit configuration file")
	startFlag := flag.String("start", "", "Window start (RFC3339, defaults to end minus the configured window)")
	endFlag := flag.String("end", "", "Window end (RFC3339, defaults to now)")
	dryRun := flag.Bool("dry-run", false, "Skip report files and print anomalies only")
	prune := flag.Bool("prune", false, "Prune events older than the retention period after the run")
	flag.Parse()

	cfg, err := auditcfg.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	store, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open audit trail: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	auditor, err := auditd.NewAuditor(auditd.Config{
		Store:     store,
		ClaimCap:  big.NewInt(cfg.Checks.ClaimCap),
		MaxSupply: big.NewInt(cfg.Checks.MaxSupply),
		OutputDir: cfg.OutputDir,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build auditor: %v\n", err)
		os.Exit(1)
	}

	opts := auditd.RunOptions{DryRun: *dryRun, End: time.Now()}
	if *endFlag != "" {
		opts.End, err = time.Parse(time.RFC3339, *endFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to parse end: %v\n", err)
			os.Exit(1)
		}
	}
	if *startFlag != "" {
		opts.Start, err = time.Parse(time.RFC3339, *startFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to parse start: %v\n", err)
			os.Exit(1)
		}
	} else {
		opts.Start = opts.End.Add(-cfg.Window.Duration)
	}

	ctx := context.Background()
	result, err := auditor.Run(ctx, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "audit run failed: %v\n", err)
		os.Exit(1)
	}

	report := auditReport{
		RunID:       result.RunID.String(),
		Start:       result.Start.Format(time.RFC3339),
		End:         result.End.Format(time.RFC3339),
		Events:      result.Events,
		Anomalies:   make([]anomalyReport, 0, len(result.Anomalies)),
		CSVPath:     result.CSVPath,
		ParquetPath: result.ParquetPath,
	}
	for _, anomaly := range result.Anomalies {
		report.Anomalies = append(report.Anomalies, anomalyReport{
			Type:    anomaly.Type,
			EventID: anomaly.EventID,
			Details: anomaly.Details,
		})
	}

	if *prune {
		pruned, err := store.PruneBefore(ctx, time.Now().Add(-cfg.Retention.Duration))
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to prune audit trail: %v\n", err)
			os.Exit(1)
		}
		report.Pruned = pruned
	}

	output, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode report: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(output))

	if len(result.Anomalies) > 0 {
		os.Exit(2)
	}
}
