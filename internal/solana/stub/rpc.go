// Package stub provides an in-memory solana.RPCClient for tests.
package stub

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"solana-oracle-client/internal/solana"
)

// DefaultLamportsPerByteYear and DefaultExemptionYears mirror the cluster
// defaults used to price rent exemption.
const (
	DefaultLamportsPerByteYear = 3480
	DefaultExemptionYears      = 2
	accountStorageOverhead     = 128
)

// Airdrop records a RequestAirdrop call.
type Airdrop struct {
	Pubkey   string
	Lamports uint64
}

// RPCClient implements solana.RPCClient for testing.
// Airdrops and sends land immediately with status confirmed.
type RPCClient struct {
	mu sync.Mutex

	Version     solana.Version
	Accounts    map[string]*solana.AccountInfo
	Balances    map[string]uint64
	Statuses    map[string]*solana.SignatureStatus
	Fee         *uint64
	BlockHeight uint64
	Slot        uint64

	Sent     [][]byte
	Airdrops []Airdrop

	// OnSend, if set, decides the outcome of SendTransaction. It is called
	// without the stub lock held and may mutate the stub.
	OnSend func(raw []byte) (string, error)

	// AirdropErr, if set, fails every RequestAirdrop.
	AirdropErr error

	nextSig int
}

var _ solana.RPCClient = (*RPCClient)(nil)

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Version:     solana.Version{SolanaCore: "1.18.26", FeatureSet: 3241752014},
		Accounts:    make(map[string]*solana.AccountInfo),
		Balances:    make(map[string]uint64),
		Statuses:    make(map[string]*solana.SignatureStatus),
		BlockHeight: 1000,
		Slot:        1200,
	}
}

// Rent returns the rent-exempt minimum for size bytes.
func Rent(size uint64) uint64 {
	return (size + accountStorageOverhead) * DefaultLamportsPerByteYear * DefaultExemptionYears
}

// SetAccount stores an account with data.
func (c *RPCClient) SetAccount(pubkey, owner string, data []byte, executable bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Accounts[pubkey] = &solana.AccountInfo{
		Lamports:   Rent(uint64(len(data))),
		Owner:      owner,
		Data:       base64.StdEncoding.EncodeToString(data),
		Executable: executable,
	}
}

// AccountData returns the raw data of an account, or nil.
func (c *RPCClient) AccountData(pubkey string) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	acc, ok := c.Accounts[pubkey]
	if !ok {
		return nil
	}
	raw, _ := base64.StdEncoding.DecodeString(acc.Data)
	return raw
}

// SetBalance sets the lamport balance of an account.
func (c *RPCClient) SetBalance(pubkey string, lamports uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Balances[pubkey] = lamports
}

// SentCount returns the number of submitted transactions.
func (c *RPCClient) SentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Sent)
}

// GetVersion returns the configured version.
func (c *RPCClient) GetVersion(_ context.Context) (*solana.Version, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.Version
	return &v, nil
}

// GetBalance returns the stored balance.
func (c *RPCClient) GetBalance(_ context.Context, pubkey string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Balances[pubkey], nil
}

// GetAccountInfo returns a copy of the stored account, or nil.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	acc, ok := c.Accounts[pubkey]
	if !ok {
		return nil, nil
	}
	out := *acc
	out.Slot = c.Slot
	return &out, nil
}

// GetMinimumBalanceForRentExemption prices rent with the cluster defaults.
func (c *RPCClient) GetMinimumBalanceForRentExemption(_ context.Context, size uint64) (uint64, error) {
	return Rent(size), nil
}

// GetLatestBlockhash returns a fixed blockhash valid for 150 blocks.
func (c *RPCClient) GetLatestBlockhash(_ context.Context) (*solana.Blockhash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &solana.Blockhash{
		Slot:                 c.Slot,
		Blockhash:            "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N",
		LastValidBlockHeight: c.BlockHeight + 150,
	}, nil
}

// GetFeeForMessage returns Fee, which may be nil.
func (c *RPCClient) GetFeeForMessage(_ context.Context, _ string) (*uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Fee, nil
}

// RequestAirdrop credits the balance immediately.
func (c *RPCClient) RequestAirdrop(_ context.Context, pubkey string, lamports uint64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.AirdropErr != nil {
		return "", c.AirdropErr
	}
	c.Airdrops = append(c.Airdrops, Airdrop{Pubkey: pubkey, Lamports: lamports})
	c.Balances[pubkey] += lamports
	return c.landLocked(), nil
}

// SendTransaction records raw and lands it, or defers to OnSend.
func (c *RPCClient) SendTransaction(_ context.Context, rawTx []byte) (string, error) {
	c.mu.Lock()
	c.Sent = append(c.Sent, append([]byte(nil), rawTx...))
	onSend := c.OnSend
	c.mu.Unlock()

	if onSend != nil {
		return onSend(rawTx)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.landLocked(), nil
}

// Land records a confirmed status for a new signature and returns it.
func (c *RPCClient) Land() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.landLocked()
}

func (c *RPCClient) landLocked() string {
	c.nextSig++
	sig := fmt.Sprintf("stubsig%d", c.nextSig)
	c.Statuses[sig] = &solana.SignatureStatus{
		Slot:               c.Slot,
		ConfirmationStatus: solana.CommitmentConfirmed,
	}
	return sig
}

// SetStatus replaces the status of a signature.
func (c *RPCClient) SetStatus(sig string, st *solana.SignatureStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Statuses[sig] = st
}

// GetSignatureStatuses returns stored statuses, nil for unknown signatures.
func (c *RPCClient) GetSignatureStatuses(_ context.Context, signatures ...string) ([]*solana.SignatureStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*solana.SignatureStatus, len(signatures))
	for i, sig := range signatures {
		if st, ok := c.Statuses[sig]; ok {
			cp := *st
			out[i] = &cp
		}
	}
	return out, nil
}

// GetBlockHeight returns BlockHeight.
func (c *RPCClient) GetBlockHeight(_ context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.BlockHeight, nil
}
