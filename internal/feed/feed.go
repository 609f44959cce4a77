// Package feed streams pool-creation sightings from a log subscription.
// A subscription is a handle: consumers range over Events() and stop the
// stream by cancelling or closing. Closed streams are never restarted;
// callers that want to resume open a new subscription.
package feed

import (
	"context"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"go.uber.org/zap"
)

// Event is one pool creation observed on chain.
type Event struct {
	Signature solana.Signature
	Slot      uint64
	Logs      []string
}

// logStream abstracts the websocket log subscription.
type logStream interface {
	Recv(ctx context.Context) (*ws.LogResult, error)
	Unsubscribe()
}

// Subscription is a cancellable handle over one live stream. Events() is
// closed when the stream ends for any reason; Err() reports why.
type Subscription struct {
	events chan Event
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Events yields pool-creation events until the stream ends. The channel
// is closed exactly once and never reopened.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close stops the stream. Safe to call more than once.
func (s *Subscription) Close() {
	s.cancel()
	<-s.done
}

// Err reports why the stream ended. It is valid after Events() closes.
func (s *Subscription) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Feed opens log subscriptions against the pool program.
type Feed struct {
	wsURL   string
	program solana.PublicKey
	logger  *zap.Logger
}

func New(wsURL string, program solana.PublicKey, logger *zap.Logger) *Feed {
	return &Feed{wsURL: wsURL, program: program, logger: logger.Named("feed")}
}

// Subscribe connects and starts streaming pool creations. The returned
// subscription ends when ctx is cancelled, Close is called, or the
// connection drops.
func (f *Feed) Subscribe(ctx context.Context) (*Subscription, error) {
	client, err := ws.Connect(ctx, f.wsURL)
	if err != nil {
		return nil, err
	}

	stream, err := client.LogsSubscribeMentions(f.program, rpc.CommitmentConfirmed)
	if err != nil {
		client.Close()
		return nil, err
	}

	sub := newSubscription(ctx, stream, f.program, f.logger)
	go func() {
		<-sub.done
		client.Close()
	}()
	return sub, nil
}

func newSubscription(ctx context.Context, stream logStream, program solana.PublicKey, logger *zap.Logger) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		events: make(chan Event, 16),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go sub.pump(ctx, stream, program, logger)
	return sub
}

func (s *Subscription) pump(ctx context.Context, stream logStream, program solana.PublicKey, logger *zap.Logger) {
	defer func() {
		stream.Unsubscribe()
		close(s.events)
		close(s.done)
	}()

	for {
		result, err := stream.Recv(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.err = err
				logger.Warn("log stream ended", zap.Error(err))
			}
			return
		}
		if result == nil || result.Value.Err != nil {
			continue
		}
		if !IsPoolCreation(result.Value.Logs, program) {
			continue
		}

		event := Event{
			Signature: result.Value.Signature,
			Slot:      result.Context.Slot,
			Logs:      result.Value.Logs,
		}
		select {
		case s.events <- event:
		case <-ctx.Done():
			return
		}
	}
}

// IsPoolCreation reports whether a transaction's logs show the pool
// program executing its create_pool instruction.
func IsPoolCreation(logs []string, program solana.PublicKey) bool {
	invoked := false
	for _, line := range logs {
		if strings.HasPrefix(line, "Program "+program.String()+" invoke") {
			invoked = true
		}
		if invoked && strings.Contains(line, "Instruction: CreatePool") {
			return true
		}
	}
	return false
}
