package relay

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

func relayServer(t *testing.T, status func(calls int64) string) (*httptest.Server, *int64) {
	t.Helper()
	var statusCalls int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		switch gjson.GetBytes(body, "method").String() {
		case "sendBundle":
			fmt.Fprint(w, `{"jsonrpc":"2.0","id":1,"result":"bundle-123"}`)
		case "getBundleStatuses":
			n := atomic.AddInt64(&statusCalls, 1)
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":1,"result":{"value":[{"bundle_id":"bundle-123","confirmation_status":%q}]}}`, status(n))
		default:
			http.Error(w, "unknown method", http.StatusBadRequest)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &statusCalls
}

func signedTestTx(t *testing.T) *solana.Transaction {
	t.Helper()
	payer := solana.NewWallet()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{solana.NewInstruction(solana.MemoProgramID, nil, []byte("test"))},
		solana.Hash{1},
		solana.TransactionPayer(payer.PublicKey()),
	)
	require.NoError(t, err)
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		return &payer.PrivateKey
	})
	require.NoError(t, err)
	return tx
}

func TestSubmitBundle(t *testing.T) {
	srv, _ := relayServer(t, func(int64) string { return "processed" })
	c := NewClient(srv.URL, srv.Client(), DefaultOptions(), zap.NewNop())

	id, err := c.SubmitBundle(context.Background(), []*solana.Transaction{signedTestTx(t)})
	require.NoError(t, err)
	assert.Equal(t, "bundle-123", id)

	_, err = c.SubmitBundle(context.Background(), nil)
	assert.Error(t, err, "empty bundle must be rejected")
}

func TestAwaitConfirmation_Confirms(t *testing.T) {
	srv, calls := relayServer(t, func(n int64) string {
		if n >= 3 {
			return "confirmed"
		}
		return "processed"
	})
	c := NewClient(srv.URL, srv.Client(), Options{PollInterval: 10 * time.Millisecond, MaxWait: 5 * time.Second}, zap.NewNop())

	err := c.AwaitConfirmation(context.Background(), "bundle-123")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, atomic.LoadInt64(calls), int64(3))
}

func TestAwaitConfirmation_TimesOutAtBudget(t *testing.T) {
	srv, _ := relayServer(t, func(int64) string { return "processed" })

	maxWait := 150 * time.Millisecond
	c := NewClient(srv.URL, srv.Client(), Options{PollInterval: 20 * time.Millisecond, MaxWait: maxWait}, zap.NewNop())

	start := time.Now()
	err := c.AwaitConfirmation(context.Background(), "bundle-123")
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, ErrBundleTimeout)
	assert.GreaterOrEqual(t, elapsed, maxWait, "must never give up before the budget")
	assert.Less(t, elapsed, 5*maxWait, "must not hang past the budget")
}

func TestAwaitConfirmation_ToleratesTransientErrors(t *testing.T) {
	var statusCalls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(&statusCalls, 1)
		if n < 3 {
			http.Error(w, "upstream hiccup", http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"jsonrpc":"2.0","id":1,"result":{"value":[{"confirmation_status":"confirmed"}]}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), Options{PollInterval: 10 * time.Millisecond, MaxWait: 5 * time.Second}, zap.NewNop())
	assert.NoError(t, c.AwaitConfirmation(context.Background(), "bundle-123"))
}

func TestAwaitConfirmation_ContextCancel(t *testing.T) {
	srv, _ := relayServer(t, func(int64) string { return "processed" })
	c := NewClient(srv.URL, srv.Client(), Options{PollInterval: 10 * time.Millisecond, MaxWait: time.Minute}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.AwaitConfirmation(ctx, "bundle-123")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrBundleTimeout)
}

func TestSubmitBundle_RelayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"bundle rejected"}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), DefaultOptions(), zap.NewNop())
	_, err := c.SubmitBundle(context.Background(), []*solana.Transaction{signedTestTx(t)})
	assert.ErrorContains(t, err, "bundle rejected")
}
