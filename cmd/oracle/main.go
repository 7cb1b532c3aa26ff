// Command oracle invokes the oracle example program and prints the answer it
// copied from a price feed. With --watch it then streams answer updates.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	solanago "github.com/gagliardetto/solana-go"

	"solana-oracle-client/internal/address"
	"solana-oracle-client/internal/answer"
	"solana-oracle-client/internal/config"
	"solana-oracle-client/internal/history"
	"solana-oracle-client/internal/logger"
	"solana-oracle-client/internal/observability"
	"solana-oracle-client/internal/oracle"
	"solana-oracle-client/internal/solana"
	chstore "solana-oracle-client/internal/storage/clickhouse"
	"solana-oracle-client/internal/storage/memory"
	"solana-oracle-client/internal/storage/migrations"
	pgstore "solana-oracle-client/internal/storage/postgres"
	"solana-oracle-client/internal/watch"
)

type options struct {
	rpcURL        string
	wsURL         string
	keypairPath   string
	programDir    string
	cliConfig     string
	envFile       string
	schema        string
	feed          string
	reportChain   string
	remoteProgram string
	remoteToken   string
	oracleProgram string
	watch         bool
	metricsAddr   string
	postgresDSN   string
	clickhouseDSN string
	useMemory     bool
	rpcRate       float64
	logLevel      string
	logFormat     string
	logOutput     string
}

func main() {
	var o options
	flag.StringVar(&o.rpcURL, "rpc-url", "", "Solana RPC HTTP endpoint (default: RPC_URL, CLI config, "+config.DefaultRPCURL+")")
	flag.StringVar(&o.wsURL, "ws-url", "", "Solana WebSocket endpoint (default: derived from the RPC URL)")
	flag.StringVar(&o.keypairPath, "keypair", "", "Payer keypair file (default: PAYER_KEYPAIR, PAYER_SECRET, CLI config)")
	flag.StringVar(&o.programDir, "program-dir", "", "Directory holding the program keypair and .so (default: "+oracle.DefaultProgramDir+")")
	flag.StringVar(&o.cliConfig, "config", "", "Solana CLI config file (default: ~/.config/solana/cli/config.yml)")
	flag.StringVar(&o.envFile, "env-file", ".env", "Environment file loaded before resolving configuration")
	flag.StringVar(&o.schema, "schema", answer.FeedV1.Name, "Answer account layout: feed-v1, cross-chain-v1 or code-v1")
	flag.StringVar(&o.feed, "feed", oracle.DefaultFeedAddress, "Price feed account read by the program")
	flag.StringVar(&o.reportChain, "report-chain", "", "Chain tag of a cross-chain report passed as an extra account")
	flag.StringVar(&o.remoteProgram, "remote-program", "", "Remote program id for --report-chain (0x hex or base58)")
	flag.StringVar(&o.remoteToken, "remote-token", "", "Remote token id for --report-chain (0x hex or base58)")
	flag.StringVar(&o.oracleProgram, "oracle-program", "", "Program that owns cross-chain reports")
	flag.BoolVar(&o.watch, "watch", false, "Stream answer updates after the run")
	flag.StringVar(&o.metricsAddr, "metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")
	flag.StringVar(&o.postgresDSN, "postgres-dsn", "", "PostgreSQL DSN for answer snapshots")
	flag.StringVar(&o.clickhouseDSN, "clickhouse-dsn", "", "ClickHouse DSN for the answer price series")
	flag.BoolVar(&o.useMemory, "use-memory", false, "Record answers in memory instead of databases")
	flag.Float64Var(&o.rpcRate, "rpc-rate", 0, "Max RPC requests per second (0 for unlimited)")
	flag.StringVar(&o.logLevel, "log-level", "info", "Log level")
	flag.StringVar(&o.logFormat, "log-format", "text", "Log format: text or json")
	flag.StringVar(&o.logOutput, "log-output", "stderr", "Log output: stderr, stdout or a file path")
	flag.Parse()

	if err := run(o); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(o options) error {
	log := logger.GetLogger()
	if err := log.Configure(o.logLevel, o.logFormat, o.logOutput, 7); err != nil {
		return err
	}
	entry := log.WithComponent("main")

	if err := config.LoadEnv(o.envFile); err != nil {
		return err
	}

	cliPath := o.cliConfig
	if cliPath == "" {
		if p, err := config.DefaultCLIConfigPath(); err == nil {
			cliPath = p
		}
	}
	var cli *config.CLIConfig
	if cliPath != "" {
		var err error
		if cli, err = config.LoadCLIConfig(cliPath); err != nil {
			return err
		}
	}

	cfg, err := config.Resolve(config.Overrides{
		RPCURL:        o.rpcURL,
		WSURL:         o.wsURL,
		KeypairPath:   o.keypairPath,
		ProgramDir:    o.programDir,
		PostgresDSN:   o.postgresDSN,
		ClickhouseDSN: o.clickhouseDSN,
	}, cli)
	if err != nil {
		return err
	}

	schema, err := answer.SchemaByName(o.schema)
	if err != nil {
		return err
	}
	feed, err := solanago.PublicKeyFromBase58(o.feed)
	if err != nil {
		return fmt.Errorf("invalid --feed %q: %w", o.feed, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if o.metricsAddr != "" {
		srv := startMetricsServer(o.metricsAddr, entry)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	clientOpts := []solana.ClientOption{solana.WithCommitment(cfg.Commitment)}
	if o.rpcRate > 0 {
		clientOpts = append(clientOpts, solana.WithRateLimit(o.rpcRate, 1))
	}
	rpc := solana.NewHTTPClient(cfg.RPCURL, clientOpts...)

	sessionOpts := []oracle.Option{
		oracle.WithEndpoint(cfg.RPCURL),
		oracle.WithSchema(schema),
		oracle.WithFeed(feed),
		oracle.WithProgramDir(cfg.ProgramDir),
		oracle.WithPayerSource(cfg.PayerSource()),
		oracle.WithCommitment(cfg.Commitment),
	}

	if o.reportChain != "" {
		report, err := reportAccount(o)
		if err != nil {
			return err
		}
		entry.WithFields(logger.Fields{"chain": o.reportChain, "report": report.String()}).Info("passing cross-chain report account")
		sessionOpts = append(sessionOpts, oracle.WithExtraAccount(report))
	}

	recorder, closeStores, err := openRecorder(ctx, cfg, o.useMemory)
	if err != nil {
		return err
	}
	defer closeStores()
	if recorder != nil {
		sessionOpts = append(sessionOpts, oracle.WithRecorder(recorder))
	}

	session := oracle.NewSession(rpc, sessionOpts...)
	if err := session.Run(ctx); err != nil {
		if oracle.IsPrecondition(err) {
			entry.WithError(err).Debug("precondition failed")
		}
		return err
	}

	if !o.watch {
		return nil
	}

	ws, err := solana.NewWSClient(ctx, cfg.WSURL, nil)
	if err != nil {
		return fmt.Errorf("connect websocket %s: %w", cfg.WSURL, err)
	}
	defer ws.Close()

	watchOpts := []watch.Option{watch.WithCommitment(cfg.Commitment)}
	if recorder != nil {
		watchOpts = append(watchOpts, watch.WithRecorder(recorder))
	}
	err = watch.New(ws, session.AnswerAddress(), schema, watchOpts...).Run(ctx)
	if errors.Is(err, watch.ErrSubscriptionClosed) && ctx.Err() != nil {
		return nil
	}
	return err
}

// reportAccount derives the cross-chain report address from the flags.
func reportAccount(o options) (solanago.PublicKey, error) {
	if o.oracleProgram == "" || o.remoteProgram == "" || o.remoteToken == "" {
		return solanago.PublicKey{}, errors.New("--report-chain needs --oracle-program, --remote-program and --remote-token")
	}
	owner, err := solanago.PublicKeyFromBase58(o.oracleProgram)
	if err != nil {
		return solanago.PublicKey{}, fmt.Errorf("invalid --oracle-program: %w", err)
	}
	remoteProgram, err := address.DecodeRemoteID(o.remoteProgram)
	if err != nil {
		return solanago.PublicKey{}, err
	}
	remoteToken, err := address.DecodeRemoteID(o.remoteToken)
	if err != nil {
		return solanago.PublicKey{}, err
	}
	pk, _, err := address.DeriveReportAddress(o.reportChain, remoteProgram, remoteToken, owner)
	return pk, err
}

// openRecorder wires answer history to memory or the configured databases.
// It returns a nil recorder when nothing is configured.
func openRecorder(ctx context.Context, cfg *config.Config, useMemory bool) (*history.Recorder, func(), error) {
	noop := func() {}

	if useMemory {
		return history.NewRecorder(memory.NewAnswerSnapshotStore(), "memory",
			history.WithPriceStore(memory.NewAnswerPriceStore(), "memory"),
		), noop, nil
	}
	if cfg.PostgresDSN == "" {
		if cfg.ClickhouseDSN != "" {
			return nil, noop, errors.New("--clickhouse-dsn requires --postgres-dsn")
		}
		return nil, noop, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, noop, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, noop, err
	}

	var opts []history.Option
	closers := []func(){pool.Close}

	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, noop, err
		}
		opts = append(opts, history.WithPriceStore(chstore.NewAnswerPriceStore(conn), "clickhouse"))
		closers = append(closers, func() { _ = conn.Close() })
	}

	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return history.NewRecorder(pgstore.NewAnswerSnapshotStore(pool), "postgres", opts...), closeAll, nil
}

func startMetricsServer(addr string, log *logger.Entry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.WithFields(logger.Fields{"addr": addr}).Info("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server failed")
		}
	}()
	return srv
}
