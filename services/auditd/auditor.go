package auditd

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"orbitalvault/core/events"
	"orbitalvault/services/auditd/storage"
)

const (
	// Anomaly types raised by audit runs.
	AnomalyClaimOverCap    = "claim_over_cap"
	AnomalySupplyOverMax   = "supply_over_max"
	AnomalySupplyMismatch  = "supply_mismatch"
	AnomalyBalanceMismatch = "balance_mismatch"
	AnomalyBurnOverIssued  = "burn_over_issued"
)

// AlertFunc is invoked for every anomaly detected during an audit run.
type AlertFunc func(ctx context.Context, anomaly Anomaly) error

// Config captures the dependencies required to construct an Auditor.
type Config struct {
	Store     *storage.Storage
	ClaimCap  *big.Int
	MaxSupply *big.Int
	OutputDir string
	DryRun    bool
	Now       func() time.Time
	Alert     AlertFunc
	Logger    *slog.Logger
}

// RunOptions specifies overrides when executing an audit window.
type RunOptions struct {
	Start  time.Time
	End    time.Time
	DryRun bool
}

// Auditor replays the recorded event trail and verifies the ledger limits
// held over the window.
type Auditor struct {
	store     *storage.Storage
	claimCap  *big.Int
	maxSupply *big.Int
	outputDir string
	dryRun    bool
	now       func() time.Time
	alert     AlertFunc
	log       *slog.Logger
}

// Anomaly captures an audit failure requiring operator review.
type Anomaly struct {
	Type    string
	EventID int64
	Details string
}

// ReportRow summarises one replayed event with the running ledger view.
type ReportRow struct {
	EventID     int64
	Type        string
	Owner       string
	Asset       string
	Amount      string
	Supply      string
	PoolBalance string
	RecordedAt  time.Time
	Flagged     bool
}

// Result summarises a completed audit run.
type Result struct {
	RunID       uuid.UUID
	Start       time.Time
	End         time.Time
	Events      int
	Rows        []*ReportRow
	Anomalies   []Anomaly
	CSVPath     string
	ParquetPath string
}

// NewAuditor validates cfg and constructs the auditor.
func NewAuditor(cfg Config) (*Auditor, error) {
	if cfg.Store == nil {
		return nil, errors.New("audit: store is required")
	}
	if cfg.ClaimCap == nil || cfg.ClaimCap.Sign() <= 0 {
		return nil, errors.New("audit: claim cap is required")
	}
	if cfg.MaxSupply == nil || cfg.MaxSupply.Sign() <= 0 {
		return nil, errors.New("audit: max supply is required")
	}
	outputDir := cfg.OutputDir
	if outputDir == "" {
		outputDir = "./vault-data/audit-reports"
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{
		store:     cfg.Store,
		claimCap:  new(big.Int).Set(cfg.ClaimCap),
		maxSupply: new(big.Int).Set(cfg.MaxSupply),
		outputDir: outputDir,
		dryRun:    cfg.DryRun,
		now:       now,
		alert:     cfg.Alert,
		log:       logger,
	}, nil
}

// Run replays the trail over the requested window, writes the report pair,
// and returns the anomalies found. A zero End defaults to now and a zero
// Start to 24 hours before End.
func (a *Auditor) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	end := opts.End
	if end.IsZero() {
		end = a.now()
	}
	start := opts.Start
	if start.IsZero() {
		start = end.Add(-24 * time.Hour)
	}
	if !end.After(start) {
		return nil, fmt.Errorf("audit: window end %s not after start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	dryRun := a.dryRun || opts.DryRun

	records, err := a.store.EventsBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID: uuid.New(),
		Start: start,
		End:   end,
	}
	supply := big.NewInt(0)
	balance := big.NewInt(0)
	for _, rec := range records {
		row := &ReportRow{
			EventID:    rec.ID,
			Type:       rec.Type,
			Owner:      rec.Attributes["owner"],
			Asset:      rec.Attributes["asset"],
			RecordedAt: rec.RecordedAt,
		}
		switch rec.Type {
		case events.TypeStakeLocked:
			row.Amount = rec.Attributes["lockBlocks"]
		case events.TypeStakeReleased:
			row.Amount = rec.Attributes["periodBlocks"]
		case events.TypeRewardsClaimed:
			minted, _ := attrAmount(rec.Attributes, "minted")
			assets := attrCount(rec.Attributes, "assets")
			row.Amount = minted.String()
			supply.Add(supply, minted)
			if assets > 0 {
				allowed := new(big.Int).Mul(a.claimCap, big.NewInt(assets))
				if minted.Cmp(allowed) > 0 {
					a.flag(ctx, result, row, AnomalyClaimOverCap,
						fmt.Sprintf("minted %s across %d assets exceeds per-asset cap %s", minted, assets, a.claimCap))
				}
			}
			a.checkSupply(ctx, result, row, supply)
		case events.TypeSupplyCapHit:
			row.Amount = rec.Attributes["requested"]
			if issued, ok := attrAmount(rec.Attributes, "issued"); ok && issued.Cmp(supply) != 0 {
				a.flag(ctx, result, row, AnomalySupplyMismatch,
					fmt.Sprintf("ledger reports issued %s, trail implies %s", issued, supply))
				supply.Set(issued)
			}
		case events.TypePoolDeposited:
			balance.Add(balance, big.NewInt(attrCount(rec.Attributes, "assets")))
			a.checkBalance(ctx, result, row, rec.Attributes, balance)
		case events.TypePoolDispensed:
			burned, _ := attrAmount(rec.Attributes, "burned")
			row.Amount = burned.String()
			if burned.Cmp(supply) > 0 {
				a.flag(ctx, result, row, AnomalyBurnOverIssued,
					fmt.Sprintf("burned %s exceeds issued supply %s", burned, supply))
			}
			supply.Sub(supply, burned)
			if supply.Sign() < 0 {
				supply.SetInt64(0)
			}
			balance.Sub(balance, big.NewInt(attrCount(rec.Attributes, "assets")))
			a.checkBalance(ctx, result, row, rec.Attributes, balance)
		case events.TypePoolAbsorbed:
			minted, _ := attrAmount(rec.Attributes, "minted")
			row.Amount = minted.String()
			supply.Add(supply, minted)
			a.checkSupply(ctx, result, row, supply)
			balance.Add(balance, big.NewInt(attrCount(rec.Attributes, "assets")))
			a.checkBalance(ctx, result, row, rec.Attributes, balance)
		}
		row.Supply = supply.String()
		row.PoolBalance = balance.String()
		result.Rows = append(result.Rows, row)
	}
	result.Events = len(result.Rows)

	if !dryRun && len(result.Rows) > 0 {
		csvPath, parquetPath, err := a.writeReportFiles(result)
		if err != nil {
			return nil, err
		}
		result.CSVPath = csvPath
		result.ParquetPath = parquetPath
	}
	return result, nil
}

// checkSupply flags rows once the replayed supply exceeds the configured cap.
func (a *Auditor) checkSupply(ctx context.Context, result *Result, row *ReportRow, supply *big.Int) {
	if supply.Cmp(a.maxSupply) > 0 {
		a.flag(ctx, result, row, AnomalySupplyOverMax,
			fmt.Sprintf("issued supply %s exceeds max %s", supply, a.maxSupply))
	}
}

// checkBalance compares the replayed pool balance with the balance the
// engine reported on the event, resyncing to the reported value so one
// divergence does not flag every later row.
func (a *Auditor) checkBalance(ctx context.Context, result *Result, row *ReportRow, attrs map[string]string, balance *big.Int) {
	reported, ok := attrAmount(attrs, "balance")
	if !ok {
		return
	}
	if reported.Cmp(balance) != 0 {
		a.flag(ctx, result, row, AnomalyBalanceMismatch,
			fmt.Sprintf("ledger reports balance %s, trail implies %s", reported, balance))
		balance.Set(reported)
	}
}

func (a *Auditor) flag(ctx context.Context, result *Result, row *ReportRow, anomalyType, details string) {
	row.Flagged = true
	anomaly := Anomaly{Type: anomalyType, EventID: row.EventID, Details: details}
	result.Anomalies = append(result.Anomalies, anomaly)
	if a.alert != nil {
		if err := a.alert(ctx, anomaly); err != nil {
			a.log.Warn("audit alert delivery failed", "type", anomalyType, "err", err)
		}
	}
}

func (a *Auditor) writeReportFiles(result *Result) (string, string, error) {
	runDir := filepath.Join(a.outputDir, fmt.Sprintf("%s_%s", result.Start.Format("20060102"), result.End.Format("20060102")))
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", "", fmt.Errorf("audit: create report dir: %w", err)
	}
	filename := fmt.Sprintf("events_%s", result.RunID)
	csvPath := filepath.Join(runDir, filename+".csv")
	if err := writeCSV(csvPath, result.Rows); err != nil {
		return "", "", err
	}
	parquetPath := filepath.Join(runDir, filename+".parquet")
	if err := writeParquet(parquetPath, result.Rows); err != nil {
		return "", "", err
	}
	a.log.Info("audit report written", "path", csvPath, "rows", len(result.Rows))
	a.log.Info("audit report written", "path", parquetPath, "rows", len(result.Rows))
	return csvPath, parquetPath, nil
}

func writeCSV(path string, rows []*ReportRow) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("audit: create csv: %w", err)
	}
	defer file.Close()
	w := csv.NewWriter(file)
	header := []string{
		"event_id", "type", "owner", "asset", "amount", "supply", "pool_balance", "recorded_at", "flagged",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("audit: write csv header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			strconv.FormatInt(row.EventID, 10),
			row.Type,
			row.Owner,
			row.Asset,
			row.Amount,
			row.Supply,
			row.PoolBalance,
			row.RecordedAt.Format(time.RFC3339),
			boolString(row.Flagged),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("audit: write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("audit: flush csv: %w", err)
	}
	return nil
}

type parquetRow struct {
	EventID     int64  `parquet:"name=event_id, type=INT64"`
	Type        string `parquet:"name=type, type=BYTE_ARRAY, convertedtype=UTF8"`
	Owner       string `parquet:"name=owner, type=BYTE_ARRAY, convertedtype=UTF8"`
	Asset       string `parquet:"name=asset, type=BYTE_ARRAY, convertedtype=UTF8"`
	Amount      string `parquet:"name=amount, type=BYTE_ARRAY, convertedtype=UTF8"`
	Supply      string `parquet:"name=supply, type=BYTE_ARRAY, convertedtype=UTF8"`
	PoolBalance string `parquet:"name=pool_balance, type=BYTE_ARRAY, convertedtype=UTF8"`
	RecordedAt  string `parquet:"name=recorded_at, type=BYTE_ARRAY, convertedtype=UTF8"`
	Flagged     bool   `parquet:"name=flagged, type=BOOLEAN"`
}

func writeParquet(path string, rows []*ReportRow) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("audit: create parquet: %w", err)
	}
	fw := writerfile.NewWriterFile(file)
	pw, err := writer.NewParquetWriter(fw, new(parquetRow), 1)
	if err != nil {
		file.Close()
		return fmt.Errorf("audit: parquet schema: %w", err)
	}
	pw.RowGroupSize = 128 * 1024 * 1024
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range rows {
		pr := &parquetRow{
			EventID:     row.EventID,
			Type:        row.Type,
			Owner:       row.Owner,
			Asset:       row.Asset,
			Amount:      row.Amount,
			Supply:      row.Supply,
			PoolBalance: row.PoolBalance,
			RecordedAt:  row.RecordedAt.Format(time.RFC3339),
			Flagged:     row.Flagged,
		}
		if err := pw.Write(pr); err != nil {
			pw.WriteStop()
			file.Close()
			return fmt.Errorf("audit: parquet write: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		file.Close()
		return fmt.Errorf("audit: parquet flush: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("audit: close parquet file: %w", err)
	}
	return nil
}

func attrAmount(attrs map[string]string, key string) (*big.Int, bool) {
	raw, ok := attrs[key]
	if !ok || raw == "" {
		return big.NewInt(0), false
	}
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return big.NewInt(0), false
	}
	return value, true
}

func attrCount(attrs map[string]string, key string) int64 {
	raw, ok := attrs[key]
	if !ok {
		return 0
	}
	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return count
}

func boolString(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
