package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tcf/internal/jrpc"
)

func TestSpyTransport_ScriptThenRepeatLast(t *testing.T) {
	spy := NewSpyTransport(Pending(), Result(map[string]any{"ok": true}))
	ctx := context.Background()

	first, err := spy.Send(ctx, jrpc.NewRequest(jrpc.MethodWorkOrderGetResult, "1", nil))
	require.NoError(t, err)
	assert.True(t, first.IsPending())

	for i := 0; i < 2; i++ {
		resp, err := spy.Send(ctx, jrpc.NewRequest(jrpc.MethodWorkOrderGetResult, "1", nil))
		require.NoError(t, err)
		assert.JSONEq(t, `{"ok":true}`, string(resp.Result))
	}
	assert.Equal(t, 3, spy.Calls())
}

func TestSpyTransport_Broken(t *testing.T) {
	boom := errors.New("boom")
	spy := NewSpyTransport(Broken(boom))

	_, err := spy.Send(context.Background(), jrpc.NewRequest(jrpc.MethodReceiptRetrieve, "1", nil))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, jrpc.MethodReceiptRetrieve, spy.Last().Method)
}

func TestRecordingSleeper_SharesLogWithSpy(t *testing.T) {
	log := &EventLog{}
	spy := NewSpyTransport()
	spy.Log = log
	sleeper := &RecordingSleeper{Log: log}
	ctx := context.Background()

	_, _ = spy.Send(ctx, jrpc.NewRequest(jrpc.MethodWorkOrderGetResult, "1", nil))
	require.NoError(t, sleeper.Sleep(ctx, 2*time.Second))
	_, _ = spy.Send(ctx, jrpc.NewRequest(jrpc.MethodWorkOrderGetResult, "1", nil))

	assert.Equal(t, []string{"send:WorkOrderGetResult", "sleep:2s", "send:WorkOrderGetResult"}, log.Events())
	assert.Equal(t, []time.Duration{2 * time.Second}, sleeper.Sleeps())
}

func TestRecordingSleeper_ReportsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sleeper := &RecordingSleeper{OnSleep: func(int) { cancel() }}

	err := sleeper.Sleep(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConstantIDGenerator(t *testing.T) {
	assert.Equal(t, "test-id", NewConstantIDGenerator("").Generate())
	gen := NewConstantIDGenerator("42")
	assert.Equal(t, "42", gen.Generate())
	assert.Equal(t, "42", gen.Generate())
}
