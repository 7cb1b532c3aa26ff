package oracle

import (
	"context"
	"encoding/base64"
	"fmt"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	"solana-oracle-client/internal/logger"
	"solana-oracle-client/internal/observability"
	"solana-oracle-client/internal/solana"
)

// Transaction kinds used as metric labels.
const (
	kindCreateAccount = "create_account"
	kindCall          = "call"
	kindAirdrop       = "airdrop"
)

// buildTransaction assembles and signs a transaction paid by payer.
func buildTransaction(payer solanago.PrivateKey, blockhash string, instructions ...solanago.Instruction) (*solanago.Transaction, error) {
	hash, err := solanago.HashFromBase58(blockhash)
	if err != nil {
		return nil, fmt.Errorf("parse blockhash: %w", err)
	}

	tx, err := solanago.NewTransaction(instructions, hash, solanago.TransactionPayer(payer.PublicKey()))
	if err != nil {
		return nil, fmt.Errorf("build transaction: %w", err)
	}

	if _, err := tx.Sign(func(key solanago.PublicKey) *solanago.PrivateKey {
		if key.Equals(payer.PublicKey()) {
			return &payer
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return tx, nil
}

// sendAndConfirm submits instructions once and waits for the session
// commitment. Nothing is resubmitted on failure.
func (s *Session) sendAndConfirm(ctx context.Context, kind string, instructions ...solanago.Instruction) (sig string, err error) {
	defer func() {
		observability.RecordTransaction(kind, err)
	}()

	if s.payer == nil {
		return "", ErrNoPayer
	}

	bh, err := s.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("get latest blockhash: %w", err)
	}

	tx, err := buildTransaction(s.payer, bh.Blockhash, instructions...)
	if err != nil {
		return "", err
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("serialize transaction: %w", err)
	}

	sig, err = s.rpc.SendTransaction(ctx, raw)
	if err != nil {
		if logs := solana.ErrorLogs(err); len(logs) > 0 {
			s.log.WithFields(logger.Fields{"kind": kind, "logs": logs}).Error("transaction rejected in preflight")
		}
		return "", fmt.Errorf("send %s transaction: %w", kind, err)
	}

	s.log.WithFields(logger.Fields{"kind": kind, "signature": sig}).Debug("transaction submitted")

	if _, err := solana.ConfirmTransaction(ctx, s.rpc, sig, bh.LastValidBlockHeight, solana.ConfirmOptions{
		Commitment:   s.commitment,
		PollInterval: s.pollInterval,
	}); err != nil {
		return sig, fmt.Errorf("confirm %s transaction: %w", kind, err)
	}
	return sig, nil
}

// lamportsPerSignature prices a one-signature message on the node, falling
// back to DefaultLamportsPerSignature when the node cannot price it.
func (s *Session) lamportsPerSignature(ctx context.Context, payer solanago.PublicKey) uint64 {
	bh, err := s.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		s.log.WithError(err).Debug("fee estimate unavailable, using default")
		return DefaultLamportsPerSignature
	}
	hash, err := solanago.HashFromBase58(bh.Blockhash)
	if err != nil {
		return DefaultLamportsPerSignature
	}

	probe := system.NewTransferInstruction(0, payer, payer).Build()
	tx, err := solanago.NewTransaction([]solanago.Instruction{probe}, hash, solanago.TransactionPayer(payer))
	if err != nil {
		return DefaultLamportsPerSignature
	}
	msg, err := tx.Message.MarshalBinary()
	if err != nil {
		return DefaultLamportsPerSignature
	}

	fee, err := s.rpc.GetFeeForMessage(ctx, base64.StdEncoding.EncodeToString(msg))
	if err != nil || fee == nil || *fee == 0 {
		return DefaultLamportsPerSignature
	}
	return *fee
}
