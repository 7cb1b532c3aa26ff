package solana

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// rpcServer answers every request with the value returned by result.
// A returned *rpcError is sent as the error member.
func rpcServer(t *testing.T, result func(req rpcRequest) interface{}) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
		}
		out := result(req)
		if re, ok := out.(*rpcError); ok {
			resp["error"] = re
		} else {
			resp["result"] = out
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestHTTPClient_GetVersion(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) interface{} {
		if req.Method != "getVersion" {
			t.Errorf("expected method getVersion, got %s", req.Method)
		}
		return map[string]interface{}{"solana-core": "1.18.26", "feature-set": 3241752014}
	})

	v, err := NewHTTPClient(server.URL).GetVersion(context.Background())
	if err != nil {
		t.Fatalf("GetVersion: %v", err)
	}
	if v.SolanaCore != "1.18.26" {
		t.Errorf("expected 1.18.26, got %s", v.SolanaCore)
	}
	if v.FeatureSet != 3241752014 {
		t.Errorf("unexpected feature set %d", v.FeatureSet)
	}
}

func TestHTTPClient_GetBalance(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) interface{} {
		if req.Method != "getBalance" {
			t.Errorf("expected method getBalance, got %s", req.Method)
		}
		if len(req.Params) != 2 || req.Params[0] != "payer" {
			t.Errorf("unexpected params %v", req.Params)
		}
		cfg, _ := req.Params[1].(map[string]interface{})
		if cfg["commitment"] != CommitmentFinalized {
			t.Errorf("expected commitment finalized, got %v", cfg["commitment"])
		}
		return map[string]interface{}{
			"context": map[string]interface{}{"slot": 10},
			"value":   uint64(2_500_000_000),
		}
	})

	client := NewHTTPClient(server.URL, WithCommitment(CommitmentFinalized))
	balance, err := client.GetBalance(context.Background(), "payer")
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if balance != 2_500_000_000 {
		t.Errorf("expected 2500000000, got %d", balance)
	}
}

func TestHTTPClient_GetAccountInfo(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) interface{} {
		if req.Method != "getAccountInfo" {
			t.Errorf("expected method getAccountInfo, got %s", req.Method)
		}
		return map[string]interface{}{
			"context": map[string]interface{}{"slot": 4242},
			"value": map[string]interface{}{
				"lamports":   uint64(1000000),
				"owner":      "11111111111111111111111111111111",
				"data":       []string{"SGVsbG8gV29ybGQ=", "base64"},
				"executable": true,
				"rentEpoch":  uint64(100),
			},
		}
	})

	info, err := NewHTTPClient(server.URL).GetAccountInfo(context.Background(), "testpubkey")
	if err != nil {
		t.Fatalf("GetAccountInfo: %v", err)
	}
	if info == nil {
		t.Fatal("expected account info, got nil")
	}
	if info.Slot != 4242 {
		t.Errorf("expected slot 4242, got %d", info.Slot)
	}
	if info.Lamports != 1000000 {
		t.Errorf("expected lamports 1000000, got %d", info.Lamports)
	}
	if info.Owner != "11111111111111111111111111111111" {
		t.Errorf("unexpected owner: %s", info.Owner)
	}
	if !info.Executable {
		t.Error("expected executable account")
	}

	data, err := info.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if string(data) != "Hello World" {
		t.Errorf("unexpected data: %q", data)
	}
}

func TestHTTPClient_GetAccountInfo_NotFound(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) interface{} {
		return map[string]interface{}{
			"context": map[string]interface{}{"slot": 1},
			"value":   nil,
		}
	})

	info, err := NewHTTPClient(server.URL).GetAccountInfo(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("GetAccountInfo: %v", err)
	}
	if info != nil {
		t.Errorf("expected nil for not found, got %+v", info)
	}
}

func TestHTTPClient_GetMinimumBalanceForRentExemption(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) interface{} {
		if req.Method != "getMinimumBalanceForRentExemption" {
			t.Errorf("unexpected method %s", req.Method)
		}
		if size, _ := req.Params[0].(float64); size != 256 {
			t.Errorf("expected size 256, got %v", req.Params[0])
		}
		return uint64(2672640)
	})

	rent, err := NewHTTPClient(server.URL).GetMinimumBalanceForRentExemption(context.Background(), 256)
	if err != nil {
		t.Fatalf("GetMinimumBalanceForRentExemption: %v", err)
	}
	if rent != 2672640 {
		t.Errorf("expected 2672640, got %d", rent)
	}
}

func TestHTTPClient_GetLatestBlockhash(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) interface{} {
		return map[string]interface{}{
			"context": map[string]interface{}{"slot": 77},
			"value": map[string]interface{}{
				"blockhash":            "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N",
				"lastValidBlockHeight": uint64(3090),
			},
		}
	})

	bh, err := NewHTTPClient(server.URL).GetLatestBlockhash(context.Background())
	if err != nil {
		t.Fatalf("GetLatestBlockhash: %v", err)
	}
	if bh.Blockhash != "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N" {
		t.Errorf("unexpected blockhash %s", bh.Blockhash)
	}
	if bh.LastValidBlockHeight != 3090 || bh.Slot != 77 {
		t.Errorf("unexpected blockhash context %+v", bh)
	}
}

func TestHTTPClient_GetFeeForMessage(t *testing.T) {
	var priced atomic.Bool
	server := rpcServer(t, func(req rpcRequest) interface{} {
		if priced.Load() {
			return map[string]interface{}{"context": map[string]interface{}{"slot": 1}, "value": uint64(5000)}
		}
		return map[string]interface{}{"context": map[string]interface{}{"slot": 1}, "value": nil}
	})
	client := NewHTTPClient(server.URL)

	fee, err := client.GetFeeForMessage(context.Background(), "AQAB")
	if err != nil {
		t.Fatalf("GetFeeForMessage: %v", err)
	}
	if fee != nil {
		t.Errorf("expected nil fee for unknown blockhash, got %d", *fee)
	}

	priced.Store(true)
	fee, err = client.GetFeeForMessage(context.Background(), "AQAB")
	if err != nil {
		t.Fatalf("GetFeeForMessage: %v", err)
	}
	if fee == nil || *fee != 5000 {
		t.Errorf("expected fee 5000, got %v", fee)
	}
}

func TestHTTPClient_SendTransaction(t *testing.T) {
	raw := []byte{1, 2, 3, 4}
	server := rpcServer(t, func(req rpcRequest) interface{} {
		if req.Method != "sendTransaction" {
			t.Errorf("expected method sendTransaction, got %s", req.Method)
		}
		if req.Params[0] != base64.StdEncoding.EncodeToString(raw) {
			t.Errorf("unexpected payload %v", req.Params[0])
		}
		cfg, _ := req.Params[1].(map[string]interface{})
		if cfg["encoding"] != "base64" {
			t.Errorf("expected base64 encoding, got %v", cfg["encoding"])
		}
		return "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW"
	})

	sig, err := NewHTTPClient(server.URL).SendTransaction(context.Background(), raw)
	if err != nil {
		t.Fatalf("SendTransaction: %v", err)
	}
	if sig == "" {
		t.Error("expected signature")
	}
}

func TestHTTPClient_SendTransaction_PreflightFailure(t *testing.T) {
	var attempts atomic.Int32
	server := rpcServer(t, func(req rpcRequest) interface{} {
		attempts.Add(1)
		return &rpcError{
			Code:    -32002,
			Message: "Transaction simulation failed: Error processing Instruction 0: custom program error: 0x1",
			Data:    json.RawMessage(`{"logs":["Program log: feed account mismatch","Program failed"]}`),
		}
	})

	client := NewHTTPClient(server.URL, WithMaxRetries(3), WithRetryDelay(time.Millisecond))
	_, err := client.SendTransaction(context.Background(), []byte{1})
	if !errors.Is(err, ErrTransactionFailed) {
		t.Fatalf("expected ErrTransactionFailed, got %v", err)
	}

	logs := ErrorLogs(err)
	if len(logs) != 2 || logs[0] != "Program log: feed account mismatch" {
		t.Errorf("unexpected logs %v", logs)
	}

	if attempts.Load() != 1 {
		t.Errorf("expected a single submission, got %d", attempts.Load())
	}
}

func TestHTTPClient_SubmitNotRetried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, WithMaxRetries(3), WithRetryDelay(time.Millisecond))
	if _, err := client.RequestAirdrop(context.Background(), "payer", 1); err == nil {
		t.Fatal("expected error")
	}
	if attempts.Load() != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts.Load())
	}
}

func TestHTTPClient_RequestAirdrop(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) interface{} {
		if req.Method != "requestAirdrop" {
			t.Errorf("expected method requestAirdrop, got %s", req.Method)
		}
		if lamports, _ := req.Params[1].(float64); lamports != 1_000_000_000 {
			t.Errorf("expected 1 SOL, got %v", req.Params[1])
		}
		return "airdropsig"
	})

	sig, err := NewHTTPClient(server.URL).RequestAirdrop(context.Background(), "payer", LamportsPerSOL)
	if err != nil {
		t.Fatalf("RequestAirdrop: %v", err)
	}
	if sig != "airdropsig" {
		t.Errorf("expected airdropsig, got %s", sig)
	}
}

func TestHTTPClient_GetSignatureStatuses(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) interface{} {
		if req.Method != "getSignatureStatuses" {
			t.Errorf("expected method getSignatureStatuses, got %s", req.Method)
		}
		return map[string]interface{}{
			"context": map[string]interface{}{"slot": 90},
			"value": []interface{}{
				map[string]interface{}{
					"slot":               uint64(88),
					"confirmations":      uint64(2),
					"err":                nil,
					"confirmationStatus": "confirmed",
				},
				nil,
				map[string]interface{}{
					"slot":               uint64(89),
					"confirmations":      nil,
					"err":                map[string]interface{}{"InstructionError": []interface{}{0, "InvalidAccountData"}},
					"confirmationStatus": "finalized",
				},
			},
		}
	})

	statuses, err := NewHTTPClient(server.URL).GetSignatureStatuses(context.Background(), "a", "b", "c")
	if err != nil {
		t.Fatalf("GetSignatureStatuses: %v", err)
	}
	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}
	if statuses[0] == nil || !statuses[0].Reached(CommitmentConfirmed) || statuses[0].Reached(CommitmentFinalized) {
		t.Errorf("unexpected first status %+v", statuses[0])
	}
	if statuses[1] != nil {
		t.Errorf("expected unknown signature, got %+v", statuses[1])
	}
	if statuses[2].Err == nil || statuses[2].Confirmations != nil {
		t.Errorf("unexpected third status %+v", statuses[2])
	}
}

func TestHTTPClient_Retry(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := attempts.Add(1)
		if count < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  int64(999),
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL,
		WithMaxRetries(3),
		WithRetryDelay(10*time.Millisecond),
	)
	ctx := context.Background()

	height, err := client.GetBlockHeight(ctx)
	if err != nil {
		t.Fatalf("GetBlockHeight: %v", err)
	}

	if height != 999 {
		t.Errorf("expected height 999, got %d", height)
	}

	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestHTTPClient_RPCError(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) interface{} {
		return &rpcError{Code: -32600, Message: "Invalid Request"}
	})

	_, err := NewHTTPClient(server.URL).GetBlockHeight(context.Background())
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	rpcErr, ok := err.(*rpcError)
	if !ok {
		t.Fatalf("expected rpcError, got %T", err)
	}

	if rpcErr.Code != -32600 {
		t.Errorf("expected code -32600, got %d", rpcErr.Code)
	}
	if ErrorLogs(err) != nil {
		t.Errorf("expected no logs")
	}
}

func TestHTTPClient_RateLimit(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) interface{} { return uint64(1) })

	client := NewHTTPClient(server.URL, WithRateLimit(20, 1))
	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := client.GetBlockHeight(context.Background()); err != nil {
			t.Fatalf("GetBlockHeight: %v", err)
		}
	}
	// burst 1 at 20/s: the 2nd and 3rd calls wait ~50ms each
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("expected rate limiting, finished in %v", elapsed)
	}
}

func TestHTTPClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	_, err := client.GetBlockHeight(ctx)
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
