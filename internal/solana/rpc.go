package solana

import "context"

// RPCClient defines the Solana RPC HTTP methods the oracle client needs.
type RPCClient interface {
	// GetVersion returns the node software version.
	GetVersion(ctx context.Context) (*Version, error)

	// GetBalance returns the lamport balance of an account.
	GetBalance(ctx context.Context, pubkey string) (uint64, error)

	// GetAccountInfo retrieves account info by public key.
	// Returns nil if the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetMinimumBalanceForRentExemption returns the rent-exempt minimum for size bytes.
	GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error)

	// GetLatestBlockhash returns a recent blockhash and its expiry height.
	GetLatestBlockhash(ctx context.Context) (*Blockhash, error)

	// GetFeeForMessage returns the fee for a base64 encoded message.
	// Returns nil if the node cannot price it (unknown blockhash).
	GetFeeForMessage(ctx context.Context, message string) (*uint64, error)

	// RequestAirdrop asks the faucet for lamports and returns the signature.
	RequestAirdrop(ctx context.Context, pubkey string, lamports uint64) (string, error)

	// SendTransaction submits a signed wire transaction and returns its signature.
	SendTransaction(ctx context.Context, rawTx []byte) (string, error)

	// GetSignatureStatuses returns one status per signature, nil when unknown.
	GetSignatureStatuses(ctx context.Context, signatures ...string) ([]*SignatureStatus, error)

	// GetBlockHeight returns the current block height.
	GetBlockHeight(ctx context.Context) (uint64, error)
}
