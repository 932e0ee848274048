package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tcf/internal/emulator"
	"github.com/roach88/tcf/internal/jrpc"
	"github.com/roach88/tcf/internal/store"
)

// cliHarness runs commands against an in-process emulator.
type cliHarness struct {
	t     *testing.T
	svc   *emulator.Service
	stdin string
}

func newHarness(t *testing.T, opts ...emulator.Option) *cliHarness {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "emulator.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return &cliHarness{t: t, svc: emulator.New(st, opts...)}
}

func (h *cliHarness) run(args ...string) (string, error) {
	h.t.Helper()
	cmd := newRootCommand(&RootOptions{Transport: h.svc.Transport()})
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(h.stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *cliHarness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, "tcf %s\n%s", strings.Join(args, " "), out)
	return out
}

// jsonEnvelope decodes a --format json success line.
func jsonEnvelope(t *testing.T, out string) (string, jrpc.Response) {
	t.Helper()
	var resp struct {
		Status string        `json:"status"`
		Data   jrpc.Response `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp.Status, resp.Data
}

func TestWorkOrder_SubmitThenWaitForResult(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("workorder", "submit", "testdata/submit.json", "--id", "7")
	assert.Equal(t, "PENDING: work order is scheduled\n", out)

	out = h.mustRun("workorder", "result", "0x1234ABCD")
	assert.Contains(t, out, "PENDING:")

	out = h.mustRun("workorder", "result", "0x1234ABCD", "--wait", "--interval", "1ms")
	assert.Contains(t, out, `"workOrderId": "0x1234ABCD"`)
	assert.Contains(t, out, `"workerId": "0xABCD"`)
}

func TestWorkOrder_SubmitFromStdin(t *testing.T) {
	h := newHarness(t)
	body, err := os.ReadFile("testdata/submit.json")
	require.NoError(t, err)
	h.stdin = string(body)

	out := h.mustRun("--format", "json", "workorder", "submit", "-")
	status, resp := jsonEnvelope(t, out)
	assert.Equal(t, "pending", status)
	assert.True(t, resp.IsPending())
}

func TestWorkOrder_SubmitRejectsNonObject(t *testing.T) {
	h := newHarness(t)
	h.stdin = `["not", "an", "object"]`

	out, err := h.run("workorder", "submit", "-")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E101]")
	assert.Equal(t, 0, promtest.CollectAndCount(h.svc.Requests()))
}

func TestWorkOrder_MaxAttemptsExhausted(t *testing.T) {
	h := newHarness(t, emulator.WithPendingPolls(10))
	h.mustRun("workorder", "submit", "testdata/submit.json")

	out, err := h.run("workorder", "result", "0x1234ABCD", "--wait", "--interval", "1ms", "--max-attempts", "2")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E105]")
	assert.Equal(t, 2.0, promtest.ToFloat64(h.svc.Requests().WithLabelValues(string(jrpc.MethodWorkOrderGetResult), "pending")))
}

func TestWorkOrder_TimeoutReturnsLastPending(t *testing.T) {
	h := newHarness(t, emulator.WithPendingPolls(10))
	h.mustRun("workorder", "submit", "testdata/submit.json")

	out, err := h.run("workorder", "result", "0x1234ABCD", "--wait", "--interval", "1h", "--timeout", "20ms")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, out, "work order is computing")
}

func TestWorkOrder_FailedResultIsProtocolError(t *testing.T) {
	h := newHarness(t)
	h.mustRun("workorder", "submit", "testdata/submit.json")
	require.NoError(t, h.svc.Complete(context.Background(), "0x1234ABCD", jrpc.StatusInvalidDataFormat, map[string]string{"reason": "bad inData"}))

	out, err := h.run("--format", "json", "workorder", "result", "0x1234ABCD")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeProtocol, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "9:")
}

func TestWorkOrder_KeySetNeedsCapability(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("workorder", "key-set", "--worker-id", "0xABCD", "--encryption-key", "0xKEY")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "operation is not supported")
	assert.Equal(t, 0, promtest.CollectAndCount(h.svc.Requests()))
}

func TestWorkOrder_KeySetThenGet(t *testing.T) {
	h := newHarness(t)
	cfgPath := filepath.Join(t.TempDir(), "tcf.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("capabilities: [encryption_key_set]\n"), 0o644))

	h.mustRun("--config", cfgPath, "workorder", "key-set", "--worker-id", "0xABCD", "--encryption-key", "0xKEY", "--tag", "t1")

	out := h.mustRun("--format", "json", "workorder", "key-get", "--worker-id", "0xABCD", "--requester-id", "0x3456")
	_, resp := jsonEnvelope(t, out)
	var key map[string]string
	require.NoError(t, resp.DecodeResult(&key))
	assert.Equal(t, "0xKEY", key["encryptionKey"])
	assert.Equal(t, "t1", key["tag"])
}

func TestStrictIDs(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("--strict-ids", "receipt", "retrieve", "wo-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E101]")

	out, err = h.run("--strict-ids", "--id", "42", "--format", "json", "receipt", "retrieve", "wo-1")
	require.Error(t, err, "unknown receipt is a protocol error")
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeProtocol)
}

func TestReceipt_CreateUpdateRetrieve(t *testing.T) {
	h := newHarness(t)

	h.mustRun("receipt", "create", "testdata/receipt.json")

	out := h.mustRun("--format", "json", "receipt", "retrieve", "0x1234ABCD")
	_, resp := jsonEnvelope(t, out)
	var got map[string]any
	require.NoError(t, resp.DecodeResult(&got))
	assert.Equal(t, "svc-1", got["workerServiceId"])
	assert.Equal(t, "vk", got["receiptVerificationKey"])

	h.mustRun("receipt", "update", "testdata/update.json")
	h.stdin = `{"workOrderId":"0x1234ABCD","updaterId":"0xABCD","updateType":2,"updateData":"done","updateSignature":"","signatureRules":""}`
	h.mustRun("receipt", "update", "-")

	out = h.mustRun("--format", "json", "receipt", "update-retrieve", "0x1234ABCD", "--updater-id", "0xABCD", "--index", "0")
	_, resp = jsonEnvelope(t, out)
	var first struct {
		UpdateIndex uint32          `json:"updateIndex"`
		UpdateData  json.RawMessage `json:"updateData"`
	}
	require.NoError(t, resp.DecodeResult(&first))
	assert.Equal(t, uint32(0), first.UpdateIndex)
	assert.JSONEq(t, `{"progress":50}`, string(first.UpdateData))

	out = h.mustRun("--format", "json", "receipt", "update-retrieve", "0x1234ABCD", "--updater-id", "0xABCD")
	_, resp = jsonEnvelope(t, out)
	var latest struct {
		UpdateIndex uint32          `json:"updateIndex"`
		UpdateData  json.RawMessage `json:"updateData"`
	}
	require.NoError(t, resp.DecodeResult(&latest))
	assert.Equal(t, uint32(1), latest.UpdateIndex)
	assert.JSONEq(t, `"done"`, string(latest.UpdateData))
}

func TestReceipt_CreateRejectsUnknownField(t *testing.T) {
	h := newHarness(t)
	h.stdin = `{"workOrderId":"wo-1","bogus":true}`

	out, err := h.run("receipt", "create", "-")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E003]")
}

func TestReceipt_LookupAllFollowsPages(t *testing.T) {
	h := newHarness(t, emulator.WithPageSize(2))
	for _, id := range []string{"wo-1", "wo-2", "wo-3", "wo-4", "wo-5"} {
		h.stdin = `{"workOrderId":"` + id + `","workerServiceId":"svc-1","workerId":"0xABCD","requesterId":"0x3456","receiptCreateStatus":0,"workOrderRequestHash":"","requesterGeneratedNonce":"","requesterSignature":"","signatureRules":"","receiptVerificationKey":""}`
		h.mustRun("receipt", "create", "-")
	}

	out := h.mustRun("--format", "json", "receipt", "lookup", "--worker-id", "0xABCD")
	_, resp := jsonEnvelope(t, out)
	var page struct {
		TotalCount int      `json:"totalCount"`
		LookupTag  string   `json:"lookupTag"`
		IDs        []string `json:"ids"`
	}
	require.NoError(t, resp.DecodeResult(&page))
	assert.Equal(t, 5, page.TotalCount)
	assert.Len(t, page.IDs, 2)
	require.NotEmpty(t, page.LookupTag)

	out = h.mustRun("--format", "json", "receipt", "lookup-next", page.LookupTag, "--worker-id", "0xABCD")
	_, resp = jsonEnvelope(t, out)
	require.NoError(t, resp.DecodeResult(&page))
	assert.Equal(t, []string{"wo-3", "wo-4"}, page.IDs)

	out = h.mustRun("--format", "json", "receipt", "lookup", "--all", "--status", "PENDING")
	var all struct {
		Data struct {
			TotalCount int      `json:"totalCount"`
			IDs        []string `json:"ids"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &all))
	assert.Equal(t, 5, all.Data.TotalCount)
	assert.Equal(t, []string{"wo-1", "wo-2", "wo-3", "wo-4", "wo-5"}, all.Data.IDs)
}

func TestReceipt_LookupBadStatus(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("receipt", "lookup", "--status", "LOST")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestWorker_Lifecycle(t *testing.T) {
	h := newHarness(t)

	h.mustRun("worker", "register",
		"--worker-id", "0xW1",
		"--type", "tee_sgx",
		"--organization-id", "org-1",
		"--application-type-id", "app-1,app-2",
		"--details", `{"workOrderSyncUri":"http://w1"}`,
	)
	h.mustRun("worker", "update", "0xW1", "--details", "rotated")
	h.mustRun("worker", "set-status", "0xW1", "decommissioned")

	out := h.mustRun("--format", "json", "worker", "retrieve", "0xW1")
	_, resp := jsonEnvelope(t, out)
	var w struct {
		Status  int             `json:"status"`
		Details json.RawMessage `json:"details"`
	}
	require.NoError(t, resp.DecodeResult(&w))
	assert.Equal(t, 3, w.Status)
	assert.JSONEq(t, `"rotated"`, string(w.Details))

	out = h.mustRun("--format", "json", "worker", "lookup", "--application-type-id", "app-2")
	_, resp = jsonEnvelope(t, out)
	var page struct {
		TotalCount int      `json:"totalCount"`
		IDs        []string `json:"ids"`
	}
	require.NoError(t, resp.DecodeResult(&page))
	assert.Equal(t, 1, page.TotalCount)
	assert.Equal(t, []string{"0xW1"}, page.IDs)
}

func TestWorker_BadStatusNeverSends(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("worker", "set-status", "0xW1", "retired")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, 0, promtest.CollectAndCount(h.svc.Requests()))
}

func TestHTTPTransportFailure(t *testing.T) {
	srv := httptest.NewServer(nil)
	uri := srv.URL
	srv.Close()

	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--uri", uri, "receipt", "retrieve", "wo-1"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out.String(), "Error [E103]")
}

func TestHTTPAgainstEmulatorHandler(t *testing.T) {
	h := newHarness(t)
	srv := httptest.NewServer(h.svc)
	t.Cleanup(srv.Close)

	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--uri", srv.URL, "receipt", "create", "testdata/receipt.json"})
	require.NoError(t, cmd.Execute(), out.String())

	assert.Equal(t, 1.0, promtest.ToFloat64(h.svc.Requests().WithLabelValues(string(jrpc.MethodReceiptCreate), "result")))
}
