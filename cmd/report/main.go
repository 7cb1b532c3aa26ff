// Command report renders the recorded answer history of one account.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"solana-oracle-client/internal/config"
	"solana-oracle-client/internal/logger"
	"solana-oracle-client/internal/reporting"
	"solana-oracle-client/internal/storage"
	chstore "solana-oracle-client/internal/storage/clickhouse"
	"solana-oracle-client/internal/storage/migrations"
	pgstore "solana-oracle-client/internal/storage/postgres"
)

func main() {
	address := flag.String("address", "", "Answer account to report on")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (default: POSTGRES_DSN)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string for price series (default: CLICKHOUSE_DSN)")
	format := flag.String("format", "md", "Output format: md or csv")
	output := flag.String("output", "", "Output file (default: stdout)")
	from := flag.String("from", "", "Earliest update time (RFC3339)")
	to := flag.String("to", "", "Latest update time (RFC3339)")
	envFile := flag.String("env-file", ".env", "Environment file")
	flag.Parse()

	if err := run(*address, *postgresDSN, *clickhouseDSN, *format, *output, *from, *to, *envFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(address, postgresDSN, clickhouseDSN, format, output, from, to, envFile string) error {
	log := logger.GetLogger().WithComponent("report")

	if address == "" {
		return errors.New("--address is required")
	}
	if format != "md" && format != "csv" {
		return fmt.Errorf("unknown --format %q", format)
	}
	if err := config.LoadEnv(envFile); err != nil {
		return err
	}

	cfg, err := config.Resolve(config.Overrides{PostgresDSN: postgresDSN, ClickhouseDSN: clickhouseDSN}, nil)
	if err != nil {
		return err
	}
	if cfg.PostgresDSN == "" {
		return errors.New("--postgres-dsn is required")
	}

	start, err := parseBound(from)
	if err != nil {
		return fmt.Errorf("invalid --from: %w", err)
	}
	end, err := parseBound(to)
	if err != nil {
		return fmt.Errorf("invalid --to: %w", err)
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		return err
	}

	var prices storage.AnswerPriceStore
	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			return err
		}
		defer conn.Close()
		prices = chstore.NewAnswerPriceStore(conn)
	}

	report, err := reporting.NewGenerator(pgstore.NewAnswerSnapshotStore(pool), prices).Generate(ctx, address, start, end)
	if err != nil {
		return err
	}

	var content string
	switch format {
	case "csv":
		if content, err = reporting.RenderCSV(report); err != nil {
			return err
		}
	default:
		content = reporting.RenderMarkdown(report)
	}

	if output == "" {
		_, err = fmt.Fprint(os.Stdout, content)
		return err
	}
	if err := os.WriteFile(output, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	log.WithFields(logger.Fields{"file": output, "snapshots": report.Summary.Count}).Info("report written")
	return nil
}

// parseBound converts an RFC3339 time to Unix seconds; empty means unbounded.
func parseBound(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, err
	}
	if t.Unix() < 0 {
		return 0, fmt.Errorf("%s is before 1970", s)
	}
	return uint64(t.Unix()), nil
}
