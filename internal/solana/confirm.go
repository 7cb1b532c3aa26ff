package solana

import (
	"context"
	"fmt"
	"time"
)

// DefaultPollInterval is how often ConfirmTransaction polls statuses.
const DefaultPollInterval = 500 * time.Millisecond

// ConfirmOptions configures ConfirmTransaction.
type ConfirmOptions struct {
	// Commitment the signature must reach. Defaults to confirmed.
	Commitment string
	// PollInterval between status checks. Defaults to DefaultPollInterval.
	PollInterval time.Duration
}

// ConfirmTransaction blocks until signature reaches the requested commitment,
// lands with an error, or the chain passes lastValidBlockHeight.
// It never resubmits.
func ConfirmTransaction(ctx context.Context, client RPCClient, signature string, lastValidBlockHeight uint64, opts ConfirmOptions) (*SignatureStatus, error) {
	if opts.Commitment == "" {
		opts.Commitment = CommitmentConfirmed
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		statuses, err := client.GetSignatureStatuses(ctx, signature)
		if err != nil {
			return nil, fmt.Errorf("get signature status %s: %w", signature, err)
		}

		if len(statuses) > 0 && statuses[0] != nil {
			st := statuses[0]
			if st.Err != nil {
				return st, fmt.Errorf("%w: %s: %v", ErrTransactionFailed, signature, st.Err)
			}
			if st.Reached(opts.Commitment) {
				return st, nil
			}
		} else {
			height, err := client.GetBlockHeight(ctx)
			if err != nil {
				return nil, fmt.Errorf("get block height: %w", err)
			}
			if height > lastValidBlockHeight {
				return nil, fmt.Errorf("%w: %s (height %d > %d)", ErrBlockhashExpired, signature, height, lastValidBlockHeight)
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
