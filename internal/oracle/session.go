// Package oracle drives the oracle example program: it funds a payer,
// ensures the program and the answer account exist, invokes the program to
// copy a price feed into the answer account, and reads the result back.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/shopspring/decimal"

	"solana-oracle-client/internal/address"
	"solana-oracle-client/internal/answer"
	"solana-oracle-client/internal/keypair"
	"solana-oracle-client/internal/logger"
	"solana-oracle-client/internal/observability"
	"solana-oracle-client/internal/solana"
)

const (
	// AnswerSeed derives the answer account from the payer and program.
	AnswerSeed = "Banksea Oracle Example"

	// DefaultFeedAddress is the devnet price feed the example program reads.
	DefaultFeedAddress = "7bZdZK1zqXTb1pCGp7oQ9dXW14SZmBgzpa9ooARbi4Hb"

	// ProgramName is the build artifact name under the deploy directory.
	ProgramName = "solana_oracle_example"

	// DefaultProgramDir is where cargo build-bpf leaves the artifacts.
	DefaultProgramDir = "target/deploy"

	// FeeSignatureBudget is how many signatures the payer is funded for.
	FeeSignatureBudget = 100

	// DefaultLamportsPerSignature is used when the node cannot price a message.
	DefaultLamportsPerSignature = 5000
)

// ProgramKeypairPath returns the program keypair file under dir.
func ProgramKeypairPath(dir string) string {
	return filepath.Join(dir, ProgramName+"-keypair.json")
}

// ProgramSOPath returns the program shared object under dir.
func ProgramSOPath(dir string) string {
	return filepath.Join(dir, ProgramName+".so")
}

// Recorder persists decoded answers.
type Recorder interface {
	Record(ctx context.Context, addr solanago.PublicKey, slot uint64, schema answer.Schema, a *answer.Answer) error
}

// Session holds the state shared by the steps of one run.
type Session struct {
	rpc          solana.RPCClient
	endpoint     string
	log          *logger.Entry
	out          io.Writer
	schema       answer.Schema
	feed         solanago.PublicKey
	extra        *solanago.PublicKey
	programDir   string
	payerSource  keypair.Source
	commitment   string
	pollInterval time.Duration
	recorder     Recorder

	payer     solanago.PrivateKey
	programID solanago.PublicKey
	answer    solanago.PublicKey
}

// Option configures a Session.
type Option func(*Session)

// WithEndpoint sets the RPC URL shown when connecting.
func WithEndpoint(url string) Option {
	return func(s *Session) {
		s.endpoint = url
	}
}

// WithLogger sets the session logger.
func WithLogger(l *logger.Entry) Option {
	return func(s *Session) {
		s.log = l
	}
}

// WithOutput sets where console lines are written. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(s *Session) {
		s.out = w
	}
}

// WithSchema sets the answer layout. Defaults to answer.FeedV1.
func WithSchema(schema answer.Schema) Option {
	return func(s *Session) {
		s.schema = schema
	}
}

// WithFeed sets the read-only source account passed to the program.
func WithFeed(feed solanago.PublicKey) Option {
	return func(s *Session) {
		s.feed = feed
	}
}

// WithExtraAccount appends a read-only account after the answer account.
func WithExtraAccount(pk solanago.PublicKey) Option {
	return func(s *Session) {
		s.extra = &pk
	}
}

// WithProgramDir sets the directory holding the program keypair and .so.
func WithProgramDir(dir string) Option {
	return func(s *Session) {
		s.programDir = dir
	}
}

// WithPayerSource sets where the payer key is loaded from.
func WithPayerSource(src keypair.Source) Option {
	return func(s *Session) {
		s.payerSource = src
	}
}

// WithPayer sets the payer key directly.
func WithPayer(key solanago.PrivateKey) Option {
	return func(s *Session) {
		s.payer = key
	}
}

// WithCommitment sets the commitment transactions must reach.
func WithCommitment(commitment string) Option {
	return func(s *Session) {
		s.commitment = commitment
	}
}

// WithPollInterval sets how often confirmations are polled.
func WithPollInterval(d time.Duration) Option {
	return func(s *Session) {
		s.pollInterval = d
	}
}

// WithRecorder stores every reported answer.
func WithRecorder(r Recorder) Option {
	return func(s *Session) {
		s.recorder = r
	}
}

// NewSession creates a session over an RPC client.
func NewSession(rpc solana.RPCClient, opts ...Option) *Session {
	s := &Session{
		rpc:          rpc,
		log:          logger.GetLogger().WithComponent("oracle"),
		out:          os.Stdout,
		schema:       answer.FeedV1,
		feed:         solanago.MustPublicKeyFromBase58(DefaultFeedAddress),
		programDir:   DefaultProgramDir,
		commitment:   solana.CommitmentConfirmed,
		pollInterval: solana.DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Payer returns the fee payer public key, zero before EstablishPayer.
func (s *Session) Payer() solanago.PublicKey {
	if s.payer == nil {
		return solanago.PublicKey{}
	}
	return s.payer.PublicKey()
}

// ProgramID returns the program id, zero before CheckProgram.
func (s *Session) ProgramID() solanago.PublicKey {
	return s.programID
}

// AnswerAddress returns the derived answer account, zero before CheckProgram.
func (s *Session) AnswerAddress() solanago.PublicKey {
	return s.answer
}

// Schema returns the answer layout in use.
func (s *Session) Schema() answer.Schema {
	return s.schema
}

// EstablishConnection checks the node is reachable and reports its version.
func (s *Session) EstablishConnection(ctx context.Context) error {
	v, err := s.rpc.GetVersion(ctx)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", s.endpoint, err)
	}

	s.log.WithFields(logger.Fields{
		"endpoint":    s.endpoint,
		"solana_core": v.SolanaCore,
		"feature_set": v.FeatureSet,
	}).Info("connected")
	fmt.Fprintf(s.out, "Connection to cluster established: %s { solana-core: %s, feature-set: %d }\n",
		s.endpoint, v.SolanaCore, v.FeatureSet)
	return nil
}

// RequiredLamports is what the payer must hold: rent for the answer account
// plus FeeSignatureBudget signature fees.
func (s *Session) RequiredLamports(ctx context.Context, payer solanago.PublicKey) (uint64, error) {
	rent, err := s.rpc.GetMinimumBalanceForRentExemption(ctx, uint64(s.schema.Size()))
	if err != nil {
		return 0, fmt.Errorf("get rent exemption: %w", err)
	}
	return rent + s.lamportsPerSignature(ctx, payer)*FeeSignatureBudget, nil
}

// EstablishPayer loads the payer and airdrops the shortfall when its balance
// does not cover RequiredLamports.
func (s *Session) EstablishPayer(ctx context.Context) error {
	if s.payer == nil {
		key, generated, err := s.payerSource.Load()
		if err != nil {
			return fmt.Errorf("load payer: %w", err)
		}
		if generated {
			s.log.Warn("no payer keypair configured, using a new random keypair")
		}
		s.payer = key
	}
	payer := s.payer.PublicKey()

	fees, err := s.RequiredLamports(ctx, payer)
	if err != nil {
		return err
	}

	lamports, err := s.rpc.GetBalance(ctx, payer.String())
	if err != nil {
		return fmt.Errorf("get payer balance: %w", err)
	}

	if lamports < fees {
		if err := s.airdrop(ctx, payer, fees-lamports); err != nil {
			return err
		}
		lamports, err = s.rpc.GetBalance(ctx, payer.String())
		if err != nil {
			return fmt.Errorf("get payer balance: %w", err)
		}
		if lamports < fees {
			return fmt.Errorf("%w: payer %s holds %d lamports, needs %d", ErrInsufficientFunds, payer, lamports, fees)
		}
	}

	s.log.WithFields(logger.Fields{"payer": payer.String(), "lamports": lamports, "required": fees}).Info("payer ready")
	fmt.Fprintf(s.out, "Using account %s containing %s SOL to pay for fees\n", payer, FormatSOL(lamports))
	return nil
}

func (s *Session) airdrop(ctx context.Context, payer solanago.PublicKey, lamports uint64) (err error) {
	defer func() {
		observability.RecordTransaction(kindAirdrop, err)
	}()
	bh, err := s.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return fmt.Errorf("get latest blockhash: %w", err)
	}

	s.log.WithFields(logger.Fields{"payer": payer.String(), "lamports": lamports}).Info("requesting airdrop")
	sig, err := s.rpc.RequestAirdrop(ctx, payer.String(), lamports)
	if err != nil {
		return fmt.Errorf("%w: airdrop %d lamports: %w", ErrInsufficientFunds, lamports, err)
	}

	if _, err := solana.ConfirmTransaction(ctx, s.rpc, sig, bh.LastValidBlockHeight, solana.ConfirmOptions{
		Commitment:   s.commitment,
		PollInterval: s.pollInterval,
	}); err != nil {
		return fmt.Errorf("%w: confirm airdrop: %w", ErrInsufficientFunds, err)
	}
	observability.RecordAirdrop(lamports)
	return nil
}

// CheckProgram reads the program id from the deploy keypair, verifies the
// program is deployed and executable, then derives the answer account and
// creates it when absent.
func (s *Session) CheckProgram(ctx context.Context) error {
	if s.payer == nil {
		return ErrNoPayer
	}

	keyPath := ProgramKeypairPath(s.programDir)
	soPath := ProgramSOPath(s.programDir)

	programKey, err := keypair.LoadFile(keyPath)
	if err != nil {
		return fmt.Errorf("%w: failed to read program keypair at '%s': %w. Program may need to be deployed with %s",
			ErrProgramNotDeployed, keyPath, err, soPath)
	}
	s.programID = programKey.PublicKey()

	info, err := s.rpc.GetAccountInfo(ctx, s.programID.String())
	if err != nil {
		return fmt.Errorf("get program account: %w", err)
	}
	if info == nil {
		if _, statErr := os.Stat(soPath); statErr == nil {
			return fmt.Errorf("%w: Program needs to be deployed with %s", ErrProgramNotDeployed, soPath)
		}
		return fmt.Errorf("%w: Program needs to be built and deployed", ErrProgramNotBuilt)
	}
	if !info.Executable {
		return fmt.Errorf("%w: %s", ErrProgramNotExecutable, s.programID)
	}
	fmt.Fprintf(s.out, "Using program %s\n", s.programID)

	s.answer, err = address.CreateWithSeed(s.payer.PublicKey(), AnswerSeed, s.programID)
	if err != nil {
		return fmt.Errorf("derive answer address: %w", err)
	}

	existing, err := s.rpc.GetAccountInfo(ctx, s.answer.String())
	if err != nil {
		return fmt.Errorf("get answer account: %w", err)
	}
	if existing != nil {
		return s.checkAnswerAccount(existing)
	}

	fmt.Fprintf(s.out, "Creating answer account %s to get value from feed account\n", s.answer)

	size := uint64(s.schema.Size())
	lamports, err := s.rpc.GetMinimumBalanceForRentExemption(ctx, size)
	if err != nil {
		return fmt.Errorf("get rent exemption: %w", err)
	}

	payer := s.payer.PublicKey()
	create := system.NewCreateAccountWithSeedInstruction(
		payer, AnswerSeed, lamports, size, s.programID,
		payer, s.answer, payer,
	).Build()

	sig, err := s.sendAndConfirm(ctx, kindCreateAccount, create)
	if err != nil {
		return fmt.Errorf("create answer account: %w", err)
	}
	s.log.WithFields(logger.Fields{
		"answer":    s.answer.String(),
		"space":     size,
		"lamports":  lamports,
		"signature": sig,
	}).Info("answer account created")
	return nil
}

func (s *Session) checkAnswerAccount(info *solana.AccountInfo) error {
	if info.Owner != s.programID.String() {
		return fmt.Errorf("%w: %s is owned by %s, not %s", ErrAnswerAccountInvalid, s.answer, info.Owner, s.programID)
	}
	data, err := info.Bytes()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAnswerAccountInvalid, err)
	}
	if len(data) < s.schema.Size() {
		return fmt.Errorf("%w: %s holds %d bytes, %s needs %d",
			ErrAnswerAccountInvalid, s.answer, len(data), s.schema.Name, s.schema.Size())
	}
	return nil
}

// Instruction builds the program call: feed (read-only), answer (writable),
// and the optional extra account (read-only), with an empty payload.
func (s *Session) Instruction() solanago.Instruction {
	accounts := solanago.AccountMetaSlice{
		solanago.NewAccountMeta(s.feed, false, false),
		solanago.NewAccountMeta(s.answer, true, false),
	}
	if s.extra != nil {
		accounts = append(accounts, solanago.NewAccountMeta(*s.extra, false, false))
	}
	return solanago.NewInstruction(s.programID, accounts, []byte{})
}

// CallProgram submits the program instruction and waits for confirmation.
func (s *Session) CallProgram(ctx context.Context) error {
	if s.programID.IsZero() || s.answer.IsZero() {
		return ErrNoProgram
	}

	sig, err := s.sendAndConfirm(ctx, kindCall, s.Instruction())
	if err != nil {
		return fmt.Errorf("call program: %w", err)
	}
	s.log.WithFields(logger.Fields{"program": s.programID.String(), "signature": sig}).Info("program called")
	return nil
}

// ReportAnswer fetches and decodes the answer account, prints it, and hands
// it to the recorder when one is configured.
func (s *Session) ReportAnswer(ctx context.Context) (*answer.Answer, error) {
	if s.answer.IsZero() {
		return nil, ErrNoProgram
	}

	info, err := s.rpc.GetAccountInfo(ctx, s.answer.String())
	if err != nil {
		return nil, fmt.Errorf("get answer account: %w", err)
	}
	if info == nil {
		return nil, fmt.Errorf("%w: %s", ErrAnswerAccountMissing, s.answer)
	}

	data, err := info.Bytes()
	if err != nil {
		return nil, err
	}

	a, err := answer.Decode(s.schema, data)
	if err != nil {
		observability.RecordAnswerDecodeError(s.schema.Name)
		return nil, fmt.Errorf("decode answer %s: %w", s.answer, err)
	}
	RecordDecoded(s.schema, s.answer, a)

	fmt.Fprintln(s.out, a.Format(s.schema))

	if s.recorder != nil {
		if err := s.recorder.Record(ctx, s.answer, info.Slot, s.schema, a); err != nil {
			s.log.WithError(err).WithFields(logger.Fields{"answer": s.answer.String()}).Warn("failed to record answer")
		}
	}
	return a, nil
}

// Run performs every step in order and prints "Success" at the end.
func (s *Session) Run(ctx context.Context) error {
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"establish connection", s.EstablishConnection},
		{"establish payer", s.EstablishPayer},
		{"check program", s.CheckProgram},
		{"call program", s.CallProgram},
		{"report answer", func(ctx context.Context) error {
			_, err := s.ReportAnswer(ctx)
			return err
		}},
	}

	for _, step := range steps {
		start := time.Now()
		if err := step.fn(ctx); err != nil {
			return err
		}
		s.log.WithFields(logger.Fields{"step": step.name, "duration": time.Since(start).String()}).Debug("step done")
	}

	fmt.Fprintln(s.out, "Success")
	return nil
}

// RecordDecoded updates the answer gauges.
func RecordDecoded(schema answer.Schema, addr solanago.PublicKey, a *answer.Answer) {
	price := 0.0
	if v, err := a.Value(); err == nil {
		price, _ = v.Float64()
	}
	unix := a.Timestamp().Unix()
	observability.RecordAnswerDecoded(schema.Name, addr.String(), price, unix)
}

// FormatSOL renders lamports as SOL without rounding.
func FormatSOL(lamports uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), -9).String()
}

// IsPrecondition reports whether err is a setup failure rather than a
// network or chain error.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrProgramNotDeployed) ||
		errors.Is(err, ErrProgramNotBuilt) ||
		errors.Is(err, ErrProgramNotExecutable) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, keypair.ErrKeypairFile)
}
