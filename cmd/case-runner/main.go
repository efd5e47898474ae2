// cmd/case-runner/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"benefit-orchestrator/internal/bootstrap"
	"benefit-orchestrator/internal/common/config"
	"benefit-orchestrator/internal/common/logger"
	"benefit-orchestrator/internal/identity"
	"benefit-orchestrator/internal/records"
)

func main() {
	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "run":
		err = runCases(ctx, os.Args[2:])
	case "seed":
		err = seed(ctx, os.Args[2:])
	default:
		help()
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFromFile(path)
}

// caseReport is one line of the run output.
type caseReport struct {
	CaseID  string      `json:"caseId"`
	Outcome interface{} `json:"outcome,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func runCases(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to config file (defaults to configs/config.yaml)")
	cases := fs.String("cases", "", "Comma-separated case ids")
	all := fs.Bool("all", false, "Run every known case")
	pretty := fs.Bool("pretty", false, "Indent JSON output")
	fs.Parse(args)

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	zapLog := logger.New(cfg.Logging.Level, "console")
	defer zapLog.Sync()

	c, err := bootstrap.Build(ctx, cfg, bootstrap.Options{ConnectRetries: 3}, zapLog)
	if err != nil {
		return err
	}
	defer c.Close(zapLog)

	ids := splitList(*cases)
	if *all {
		if ids, err = c.Store.CaseIDs(ctx); err != nil {
			return err
		}
	}
	if len(ids) == 0 {
		fs.Usage()
		return fmt.Errorf("either -cases or -all is required")
	}

	results, err := c.Driver.RunBatch(ctx, ids)
	if err != nil {
		zapLog.Warn("batch interrupted", zap.Error(err))
	}

	reports := make([]caseReport, 0, len(results))
	failed := 0
	for _, r := range results {
		report := caseReport{CaseID: r.CaseID, Outcome: r.Outcome}
		if r.Err != nil {
			report.Error = r.Err.Error()
			failed++
		}
		reports = append(reports, report)
	}

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(reports); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d cases failed", failed, len(results))
	}
	return nil
}

// seed copies the reference set into the configured backends so that
// records.source=postgres and the Elasticsearch identity index have data.
func seed(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to config file (defaults to configs/config.yaml)")
	from := fs.String("from", "", "Seed YAML (defaults to the embedded reference set)")
	fs.Parse(args)

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	zapLog := logger.New(cfg.Logging.Level, "console")
	defer zapLog.Sync()

	var repo *records.StaticRepository
	if *from != "" {
		repo, err = records.LoadStaticRepository(*from)
	} else {
		repo, err = records.NewStaticRepository()
	}
	if err != nil {
		return fmt.Errorf("load seed: %w", err)
	}
	data := repo.Data()

	c, err := bootstrap.Build(ctx, cfg, bootstrap.Options{ConnectRetries: 3}, zapLog)
	if err != nil {
		return err
	}
	defer c.Close(zapLog)

	if c.Postgres == nil && c.Elasticsearch == nil {
		return fmt.Errorf("neither postgres nor elasticsearch is enabled")
	}

	if c.Postgres != nil {
		if err := records.NewPostgresRepository(c.Postgres.DB).Import(ctx, data); err != nil {
			return err
		}
		zapLog.Info("reference data imported",
			zap.Int("cases", len(data.Cases)),
			zap.Int("identities", len(data.Identities)),
		)
	}
	if c.Elasticsearch != nil {
		index := identity.NewElasticsearchRepository(c.Elasticsearch, cfg.Database.Elasticsearch.IdentityIndex)
		if err := index.IndexIdentities(ctx, data.Identities); err != nil {
			return err
		}
		zapLog.Info("identities indexed",
			zap.String("index", cfg.Database.Elasticsearch.IdentityIndex),
			zap.Int("count", len(data.Identities)),
		)
	}

	return c.Records.Refresh(ctx)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func help() {
	fmt.Print(`
Usage: case-runner <command> [flags]

Commands:
  run   Drive cases through the workflow and print the outcomes as JSON
  seed  Load the reference set into Postgres and the identity index
  help  Show this help message

Examples:
  case-runner run -cases REQ-001,REQ-002 -pretty
  case-runner run -all -config configs/config.yaml
  case-runner seed -from records/reference.yaml

Use 'case-runner <command> -h' for more information about a command.
` + "\n")
}
