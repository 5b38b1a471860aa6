package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kocahmet1/ultrasat-progress/internal/jobs/recompute"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/apperr"
	"github.com/kocahmet1/ultrasat-progress/internal/services"
)

type fakeBackend struct {
	opens   int
	closed  int
	openErr error

	dryRun    *bool
	mode      recompute.Mode
	normalize services.NormalizeSummary
	recompute recompute.Summary
	runErr    error
}

func (f *fakeBackend) opener() Opener {
	return func(context.Context, string) (Backend, error) {
		f.opens++
		if f.openErr != nil {
			return nil, f.openErr
		}
		return f, nil
	}
}

func (f *fakeBackend) Normalize(_ context.Context, dryRun bool) (services.NormalizeSummary, error) {
	f.dryRun = &dryRun
	return f.normalize, f.runErr
}

func (f *fakeBackend) Recompute(_ context.Context, mode recompute.Mode) (recompute.Summary, error) {
	f.mode = mode
	return f.recompute, f.runErr
}

func (f *fakeBackend) Serve(context.Context) error { return f.runErr }

func (f *fakeBackend) Close() { f.closed++ }

func run(t *testing.T, fb *fakeBackend, args ...string) (int, string, string) {
	t.Helper()
	cmd := NewRootCommandWith(fb.opener())
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	code := Execute(context.Background(), cmd, stderr)
	return code, stdout.String(), stderr.String()
}

func TestNormalizePreviewTextReport(t *testing.T) {
	fb := &fakeBackend{normalize: services.NormalizeSummary{
		DryRun:              true,
		Total:               5,
		NeedsMigration:      2,
		AlreadyMigrated:     2,
		Errors:              1,
		ErrorReasons:        map[string]string{"quiz-9": "no embedded question carries an identifier"},
		EstimatedSavedBytes: 2048,
		Duration:            1500 * time.Millisecond,
	}}

	code, out, _ := run(t, fb, "normalize", "preview")
	require.Equal(t, ExitSuccess, code)
	require.NotNil(t, fb.dryRun)
	assert.True(t, *fb.dryRun)
	assert.Equal(t, 1, fb.closed)

	assert.Contains(t, out, "preview, nothing written")
	assert.Contains(t, out, "needing migration:")
	assert.Contains(t, out, "2.0 KiB")
	assert.Contains(t, out, "quiz-9: no embedded question carries an identifier")
	assert.NotContains(t, out, "write batches:")
}

func TestNormalizeApplyPassesDryRunFalse(t *testing.T) {
	fb := &fakeBackend{normalize: services.NormalizeSummary{Total: 3, NeedsMigration: 3, Migrated: 3, Batches: 1}}

	code, out, _ := run(t, fb, "normalize", "apply")
	require.Equal(t, ExitSuccess, code)
	require.NotNil(t, fb.dryRun)
	assert.False(t, *fb.dryRun)
	assert.Contains(t, out, "write batches:")
}

func TestRecomputeRecreateJSONReport(t *testing.T) {
	fb := &fakeBackend{recompute: recompute.Summary{
		Mode:         recompute.ModeRecreate,
		Users:        4,
		Processed:    4,
		Created:      2,
		Skipped:      1,
		Errors:       1,
		ErrorReasons: map[string]string{"u3": "load attempts: timeout (transient)"},
		Deleted:      7,
		Batches:      1,
	}}

	code, out, _ := run(t, fb, "--format", "json", "recompute", "recreate")
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, recompute.ModeRecreate, fb.mode)

	var resp struct {
		Status string            `json:"status"`
		Data   recompute.Summary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 7, resp.Data.Deleted)
	assert.Equal(t, 1, resp.Data.Errors)
	assert.Equal(t, "load attempts: timeout (transient)", resp.Data.ErrorReasons["u3"])
}

func TestRecomputeTextReportListsReasons(t *testing.T) {
	fb := &fakeBackend{recompute: recompute.Summary{
		Mode:         recompute.ModeInitialize,
		Users:        2,
		Processed:    2,
		Errors:       2,
		ErrorReasons: map[string]string{"b": "second", "a": "first"},
		Interrupted:  true,
	}}

	code, out, _ := run(t, fb, "recompute", "initialize")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "Stats recompute (initialize)")
	assert.Contains(t, out, "interrupted")
	assert.NotContains(t, out, "cache records deleted")
	assert.Less(t, bytes.Index([]byte(out), []byte("a: first")), bytes.Index([]byte(out), []byte("b: second")))
}

func TestFatalSetupExitCode(t *testing.T) {
	fb := &fakeBackend{openErr: apperr.FatalSetup("ping store", errors.New("connection refused"))}

	code, out, stderr := run(t, fb, "--format", "json", "recompute", "initialize")
	assert.Equal(t, ExitSetupError, code)
	assert.Empty(t, stderr)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_SETUP", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "connection refused")
}

func TestRunFailureExitCode(t *testing.T) {
	fb := &fakeBackend{runErr: errors.New("list users: boom")}

	code, out, _ := run(t, fb, "recompute", "initialize")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, out, "Error [E_RUN]")
	assert.Equal(t, 1, fb.closed)
}

func TestHumanBytes(t *testing.T) {
	cases := map[int64]string{
		0:       "0 B",
		1023:    "1023 B",
		1536:    "1.5 KiB",
		5 << 20: "5.0 MiB",
	}
	for in, want := range cases {
		assert.Equal(t, want, humanBytes(in), "humanBytes(%d)", in)
	}
}
