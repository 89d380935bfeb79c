package cmd

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lacag-app/lacag/internal/challenge"
	"github.com/lacag-app/lacag/internal/config"
	"github.com/lacag-app/lacag/internal/logger"
	"github.com/lacag-app/lacag/internal/model"
	"github.com/lacag-app/lacag/internal/store"
	"github.com/lacag-app/lacag/internal/tracker"
)

func newLocalTracker(t *testing.T) *tracker.Tracker {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "lacag.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	tr := tracker.New(st, nil, tracker.Options{Log: logger.Discard()})
	require.NoError(t, tr.Load())
	return tr
}

func TestStartChallengeKeepsPendingInputOnBadLimit(t *testing.T) {
	tr := newLocalTracker(t)
	require.NoError(t, tr.BeginChallenge(challenge.SevenDay))

	require.Error(t, startChallenge(tr, challenge.SevenDay, 0))
	board := tr.Challenge()
	assert.Equal(t, challenge.StepInput, board.State(challenge.SevenDay).Step)
}

func TestStartChallengeUndoesItsOwnBegin(t *testing.T) {
	tr := newLocalTracker(t)

	require.Error(t, startChallenge(tr, challenge.SevenDay, -5))
	board := tr.Challenge()
	assert.Equal(t, challenge.StepStart, board.State(challenge.SevenDay).Step)

	require.NoError(t, startChallenge(tr, challenge.SevenDay, 30))
	board = tr.Challenge()
	assert.Equal(t, challenge.StepActive, board.State(challenge.SevenDay).Step)
	assert.Equal(t, challenge.SevenDay, board.Active)
}

func TestParseWhen(t *testing.T) {
	got, err := parseWhen("")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	got, err = parseWhen("2025-03-04 18:30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 4, 18, 30, 0, 0, time.Local), got)

	got, err = parseWhen("2025-03-04")
	require.NoError(t, err)
	assert.Equal(t, 2025, got.Year())
	assert.Equal(t, time.March, got.Month())
	assert.Equal(t, 4, got.Day())

	_, err = parseWhen("yesterday")
	assert.Error(t, err)
}

func TestCategoryHint(t *testing.T) {
	hint := categoryHint(model.Transaction{ID: "0123456789abcdef", Category: "Shipping"})
	assert.Contains(t, hint, `Saved as "Shipping"`)
	assert.Contains(t, hint, "Did you mean Shopping?")

	assert.Empty(t, categoryHint(model.Transaction{ID: "1", Category: "Food"}))
	assert.Empty(t, categoryHint(model.Transaction{ID: "1", Category: "Rent for garage"}))
}

func TestFilterDetachArg(t *testing.T) {
	got := filterDetachArg([]string{"daemon", "--detach", "--addr", "x", "--detach=true"})
	assert.Equal(t, []string{"daemon", "--addr", "x"}, got)
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "abcdefgh...wxyz", maskKey("abcdefghijklmnopqrstuvwxyz"))
	assert.Equal(t, "abcd...", maskKey("abcdefg"))
	assert.Equal(t, "****", maskKey("abc"))
}

func TestValidBackendURL(t *testing.T) {
	assert.NoError(t, validBackendURL(""))
	assert.NoError(t, validBackendURL("https://demo.supabase.co"))
	assert.Error(t, validBackendURL("demo.supabase.co"))
}

func TestParseWindowDays(t *testing.T) {
	n, err := parseWindowDays(" 14 ")
	require.NoError(t, err)
	assert.Equal(t, 14, n)

	for _, in := range []string{"", "0", "-3", "two weeks"} {
		_, err := parseWindowDays(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestResolveDaemonFlags(t *testing.T) {
	defer func() {
		flagDaemonAddr, flagDaemonInterval, flagDaemonEventsBuffer = "", 0, 0
		flagDaemonPIDFile, flagDaemonLogFile = "", ""
	}()

	cfg := config.DefaultConfig()
	cfg.General.DataDir = t.TempDir()
	flagDaemonAddr = "127.0.0.1:9999"

	resolveDaemonFlags(cfg)
	assert.Equal(t, "127.0.0.1:9999", flagDaemonAddr)
	assert.Equal(t, cfg.RefreshInterval(), flagDaemonInterval)
	assert.Equal(t, cfg.Daemon.EventsBuffer, flagDaemonEventsBuffer)
	assert.Equal(t, filepath.Join(cfg.General.DataDir, "lacagd.pid"), flagDaemonPIDFile)
	assert.Equal(t, filepath.Join(cfg.General.DataDir, "lacagd.log"), flagDaemonLogFile)
}

func TestPIDRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lacagd.pid")
	require.NoError(t, writePID(path, 4242))
	pid, err := readPID(path)
	require.NoError(t, err)
	assert.Equal(t, 4242, pid)

	require.NoError(t, ensureDaemonNotRunning(filepath.Join(t.TempDir(), "missing.pid")))
}
