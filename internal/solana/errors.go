package solana

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrTransactionFailed is returned when a transaction is rejected in
	// preflight or lands with an error.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrBlockhashExpired is returned when the block height passes the
	// transaction's last valid height before it is confirmed.
	ErrBlockhashExpired = errors.New("blockhash expired before confirmation")
)

// rpcError represents a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// logs extracts simulation logs attached to a preflight failure.
func (e *rpcError) logs() []string {
	if len(e.Data) == 0 {
		return nil
	}
	var data struct {
		Logs []string `json:"logs"`
	}
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return nil
	}
	return data.Logs
}

// ErrorLogs returns the program logs carried by err, if any.
func ErrorLogs(err error) []string {
	var re *rpcError
	if errors.As(err, &re) {
		return re.logs()
	}
	return nil
}
