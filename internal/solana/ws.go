package solana

import "context"

// WSClient defines Solana WebSocket subscription interface.
type WSClient interface {
	// SubscribeAccount streams every change to an account at the given commitment.
	SubscribeAccount(ctx context.Context, pubkey string, commitment string) (<-chan AccountNotification, error)

	// Close closes the WebSocket connection.
	Close() error
}

// AccountNotification represents an accountSubscribe message.
type AccountNotification struct {
	Slot       uint64
	Lamports   uint64
	Owner      string
	Executable bool
	Data       []byte
}
