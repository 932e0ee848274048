package workorder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tcf/internal/jrpc"
	"github.com/roach88/tcf/internal/schema"
	"github.com/roach88/tcf/internal/testutil"
)

type fixture struct {
	client  *Client
	spy     *testutil.SpyTransport
	sleeper *testutil.RecordingSleeper
	log     *testutil.EventLog
}

func newFixture(t *testing.T, replies []testutil.Reply, opts ...Option) *fixture {
	t.Helper()
	log := &testutil.EventLog{}
	spy := testutil.NewSpyTransport(replies...)
	spy.Log = log
	sleeper := &testutil.RecordingSleeper{Log: log}

	caller := jrpc.NewCaller(spy,
		jrpc.WithValidator(schema.MustNew()),
		jrpc.WithIDGenerator(jrpc.NewSequenceGenerator(1)),
	)
	opts = append([]Option{WithSleeper(sleeper)}, opts...)
	return &fixture{
		client:  New(caller, opts...),
		spy:     spy,
		sleeper: sleeper,
		log:     log,
	}
}

func loadSubmitBody(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/submit.json")
	require.NoError(t, err)
	return data
}

func TestSubmit_SendsBodyUnchanged(t *testing.T) {
	f := newFixture(t, []testutil.Reply{testutil.Result(map[string]any{"workOrderId": "0x1234ABCD"})})
	body := loadSubmitBody(t)

	resp, err := f.client.Submit(context.Background(), body, "submit-1")
	require.NoError(t, err)
	assert.Equal(t, jrpc.ID("submit-1"), resp.ID)

	require.Equal(t, 1, f.spy.Calls())
	req := f.spy.Last()
	assert.Equal(t, jrpc.MethodWorkOrderSubmit, req.Method)

	sent, err := jrpc.MarshalCanonical(req.Params)
	require.NoError(t, err)
	assert.JSONEq(t, string(body), string(sent))
}

func TestSubmit_RejectsNonObjectBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"garbage", "{not json"},
		{"array", "[1,2]"},
		{"string", `"work"`},
		{"trailing", `{"a":1} {"b":2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			_, err := f.client.Submit(context.Background(), []byte(tt.body), "1")
			assert.True(t, jrpc.IsInvalidParameter(err), "got %v", err)
			assert.Zero(t, f.spy.Calls())
		})
	}
}

func TestSubmit_SchemaViolationNeverSends(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.client.Submit(context.Background(), []byte(`{"workOrderId":"wo"}`), "1")
	assert.True(t, jrpc.IsSchemaViolation(err), "got %v", err)
	assert.Zero(t, f.spy.Calls())
}

func TestMissingIdentifiers_NoTransportCall(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		call func(c *Client) error
	}{
		{"get result without work order id", func(c *Client) error {
			_, err := c.GetResultNonBlocking(ctx, "", "1")
			return err
		}},
		{"blocking get result without work order id", func(c *Client) error {
			_, err := c.GetResult(ctx, "", "1")
			return err
		}},
		{"key get without worker id", func(c *Client) error {
			_, err := c.EncryptionKeyGet(ctx, KeyRequest{RequesterID: "r"}, "1")
			return err
		}},
		{"key get without requester id", func(c *Client) error {
			_, err := c.EncryptionKeyGet(ctx, KeyRequest{WorkerID: "w"}, "1")
			return err
		}},
		{"key set without worker id", func(c *Client) error {
			_, err := c.EncryptionKeySet(ctx, KeySetRequest{EncryptionKey: "k"}, "1")
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil, WithCapabilities(CapEncryptionKeySet))
			err := tt.call(f.client)
			assert.True(t, jrpc.IsInvalidParameter(err), "got %v", err)
			assert.Zero(t, f.spy.Calls())
		})
	}
}

func TestRequiredIDs_MissingIDIsInvalidParameter(t *testing.T) {
	spy := testutil.NewSpyTransport()
	client := New(jrpc.NewCaller(spy, jrpc.WithRequiredIDs(true)))

	_, err := client.GetResult(context.Background(), "wo-1", "")
	assert.True(t, jrpc.IsInvalidParameter(err))
	_, err = client.EncryptionKeyGet(context.Background(), KeyRequest{WorkerID: "w", RequesterID: "r"}, "")
	assert.True(t, jrpc.IsInvalidParameter(err))
	assert.Zero(t, spy.Calls())
}

func TestGetResult_PollsUntilTerminal(t *testing.T) {
	for n := 0; n <= 4; n++ {
		t.Run(fmt.Sprintf("%d pending", n), func(t *testing.T) {
			replies := append(testutil.Repeat(n, testutil.Pending()),
				testutil.Result(map[string]any{"outData": []any{}}))
			f := newFixture(t, replies)

			resp, err := f.client.GetResult(context.Background(), "wo-1", "poll-1")
			require.NoError(t, err)
			assert.True(t, resp.HasResult())

			assert.Equal(t, n+1, f.spy.Calls())
			sleeps := f.sleeper.Sleeps()
			require.Len(t, sleeps, n)
			for _, d := range sleeps {
				assert.Equal(t, DefaultPollInterval, d)
			}

			// Every query is separated from the next by exactly one sleep.
			var want []string
			for i := 0; i < n; i++ {
				want = append(want, "send:WorkOrderGetResult", "sleep:2s")
			}
			want = append(want, "send:WorkOrderGetResult")
			assert.Equal(t, want, f.log.Events())
		})
	}
}

func TestGetResult_PollsShareCorrelationID(t *testing.T) {
	f := newFixture(t, []testutil.Reply{testutil.Pending(), testutil.Pending(), testutil.Result(true)})

	_, err := f.client.GetResult(context.Background(), "wo-1", "")
	require.NoError(t, err)

	reqs := f.spy.Requests()
	require.Len(t, reqs, 3)
	for _, r := range reqs {
		assert.Equal(t, reqs[0].ID, r.ID)
		assert.Equal(t, jrpc.Params{"workOrderId": "wo-1"}, r.Params)
	}
}

func TestGetResult_TerminalErrorReturnsImmediately(t *testing.T) {
	f := newFixture(t, []testutil.Reply{testutil.RPCFailure(int(jrpc.StatusFailed), "work order failed")})

	resp, err := f.client.GetResult(context.Background(), "wo-1", "1")
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, int(jrpc.StatusFailed), resp.Error.Code)
	assert.Equal(t, 1, f.spy.Calls())
	assert.Empty(t, f.sleeper.Sleeps())
}

func TestGetResult_MaxAttempts(t *testing.T) {
	f := newFixture(t, []testutil.Reply{testutil.Pending()})

	resp, err := f.client.GetResult(context.Background(), "wo-1", "1", WithMaxAttempts(3))
	assert.ErrorIs(t, err, ErrPollExhausted)
	assert.True(t, resp.IsPending())
	assert.Equal(t, 3, f.spy.Calls())
	assert.Len(t, f.sleeper.Sleeps(), 2)
}

func TestGetResult_IntervalOverride(t *testing.T) {
	f := newFixture(t, []testutil.Reply{testutil.Pending(), testutil.Result(true)}, WithPollInterval(time.Second))

	_, err := f.client.GetResult(context.Background(), "wo-1", "1", WithInterval(250*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{250 * time.Millisecond}, f.sleeper.Sleeps())
}

func TestGetResult_CancellationReturnsLastPending(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newFixture(t, []testutil.Reply{testutil.Pending()})
	f.sleeper.OnSleep = func(n int) {
		if n == 2 {
			cancel()
		}
	}

	resp, err := f.client.GetResult(ctx, "wo-1", "1")
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, resp)
	assert.True(t, resp.IsPending())
	assert.Equal(t, 2, f.spy.Calls())
}

func TestGetResult_TransportFailureEndsPoll(t *testing.T) {
	down := errors.New("connection reset")
	f := newFixture(t, []testutil.Reply{testutil.Pending(), testutil.Broken(down)})

	_, err := f.client.GetResult(context.Background(), "wo-1", "1")
	assert.True(t, jrpc.IsTransportFailure(err))
	assert.ErrorIs(t, err, down)
	assert.Equal(t, 2, f.spy.Calls())
}

func TestEncryptionKeyGet_OmitsEmptyOptionals(t *testing.T) {
	f := newFixture(t, []testutil.Reply{testutil.Result(map[string]any{"encryptionKey": "k"})})

	_, err := f.client.EncryptionKeyGet(context.Background(), KeyRequest{
		WorkerID:    "w-1",
		RequesterID: "r-1",
		Tag:         "t",
	}, "1")
	require.NoError(t, err)

	assert.Equal(t, jrpc.Params{"workerId": "w-1", "requesterId": "r-1", "tag": "t"}, f.spy.Last().Params)
}

func TestEncryptionKeySet_UnsupportedByDefault(t *testing.T) {
	inputs := []KeySetRequest{
		{},
		{WorkerID: "w"},
		{WorkerID: "w", EncryptionKey: "k", EncryptionKeyNonce: "n", Tag: "t", SignatureNonce: "s", Signature: "sig"},
	}

	for i, in := range inputs {
		t.Run(fmt.Sprintf("input %d", i), func(t *testing.T) {
			f := newFixture(t, nil)
			resp, err := f.client.EncryptionKeySet(context.Background(), in, "1")
			assert.Nil(t, resp)
			assert.True(t, jrpc.IsInvalidParameter(err))
			assert.Contains(t, err.Error(), "operation is not supported")
			assert.Zero(t, f.spy.Calls())
		})
	}
}

func TestEncryptionKeySet_WithCapability(t *testing.T) {
	f := newFixture(t, []testutil.Reply{testutil.Result(map[string]any{})}, WithCapabilities(CapEncryptionKeySet))
	assert.True(t, f.client.Capabilities().Has(CapEncryptionKeySet))

	_, err := f.client.EncryptionKeySet(context.Background(), KeySetRequest{
		WorkerID:      "w",
		EncryptionKey: "k",
		Tag:           "t",
	}, "1")
	require.NoError(t, err)

	assert.Equal(t, []string{"encryptionKey", "encryptionKeyNonce", "signature", "signatureNonce", "tag", "workerId"},
		f.spy.Last().Params.Keys())
}

func TestTimerSleeper_WakesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := TimerSleeper{}.Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}
