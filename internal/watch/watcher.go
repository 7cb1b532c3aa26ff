// Package watch streams answer account updates over websocket.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	solanago "github.com/gagliardetto/solana-go"

	"solana-oracle-client/internal/answer"
	"solana-oracle-client/internal/logger"
	"solana-oracle-client/internal/observability"
	"solana-oracle-client/internal/oracle"
	"solana-oracle-client/internal/solana"
)

// ErrSubscriptionClosed is returned when the client closes the stream
// before the context is done.
var ErrSubscriptionClosed = errors.New("account subscription closed")

// Watcher prints and records every change to one answer account.
type Watcher struct {
	ws         solana.WSClient
	address    solanago.PublicKey
	schema     answer.Schema
	commitment string
	out        io.Writer
	recorder   oracle.Recorder
	log        *logger.Entry

	lastSlot uint64
	seen     bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithCommitment sets the subscription commitment.
func WithCommitment(c string) Option {
	return func(w *Watcher) { w.commitment = c }
}

// WithOutput redirects printed answers.
func WithOutput(out io.Writer) Option {
	return func(w *Watcher) { w.out = out }
}

// WithRecorder stores every decoded update.
func WithRecorder(r oracle.Recorder) Option {
	return func(w *Watcher) { w.recorder = r }
}

// WithLogger sets the log entry.
func WithLogger(l *logger.Entry) Option {
	return func(w *Watcher) { w.log = l }
}

// New creates a Watcher for the answer account at address.
func New(ws solana.WSClient, address solanago.PublicKey, schema answer.Schema, opts ...Option) *Watcher {
	w := &Watcher{
		ws:         ws,
		address:    address,
		schema:     schema,
		commitment: solana.CommitmentConfirmed,
		out:        os.Stdout,
		log:        logger.GetLogger().WithComponent("watch"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run subscribes and handles updates until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	updates, err := w.ws.SubscribeAccount(ctx, w.address.String(), w.commitment)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", w.address, err)
	}
	w.log.WithFields(logger.Fields{"answer": w.address.String(), "commitment": w.commitment}).Info("watching answer account")

	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-updates:
			if !ok {
				return ErrSubscriptionClosed
			}
			w.handle(ctx, n)
		}
	}
}

// handle decodes one notification. Updates at or before the last handled
// slot are dropped; they repeat after a resubscribe.
func (w *Watcher) handle(ctx context.Context, n solana.AccountNotification) {
	if w.seen && n.Slot <= w.lastSlot {
		w.log.WithFields(logger.Fields{"slot": n.Slot, "last_slot": w.lastSlot}).Debug("stale update")
		return
	}
	w.seen = true
	w.lastSlot = n.Slot

	a, err := answer.Decode(w.schema, n.Data)
	if err != nil {
		observability.RecordAnswerDecodeError(w.schema.Name)
		w.log.WithError(err).WithFields(logger.Fields{"slot": n.Slot}).Warn("undecodable answer update")
		return
	}
	oracle.RecordDecoded(w.schema, w.address, a)

	fmt.Fprintln(w.out, a.Format(w.schema))

	if w.recorder != nil {
		if err := w.recorder.Record(ctx, w.address, n.Slot, w.schema, a); err != nil {
			w.log.WithError(err).WithFields(logger.Fields{"slot": n.Slot}).Warn("failed to record answer")
		}
	}
}
