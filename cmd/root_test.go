package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/manager-records-crawler/internal/app"
	"github.com/JakeFAU/manager-records-crawler/internal/config"
	"github.com/JakeFAU/manager-records-crawler/internal/crawler"
)

type fakeRunner struct {
	cfg     config.Config
	err     error
	command string
	opts    app.RunOptions
	closed  bool
}

func (f *fakeRunner) Close() { f.closed = true }
func (f *fakeRunner) Config() config.Config { return f.cfg }
func (f *fakeRunner) Logger() *zap.Logger { return zap.NewNop() }

func (f *fakeRunner) RunManagers(_ context.Context, opts app.RunOptions) (app.Summary, error) {
	return f.run(app.CommandManagers, opts)
}

func (f *fakeRunner) RunStats(_ context.Context, opts app.RunOptions) (app.Summary, error) {
	return f.run(app.CommandStats, opts)
}

func (f *fakeRunner) run(command string, opts app.RunOptions) (app.Summary, error) {
	f.command = command
	f.opts = opts
	return app.Summary{Command: command, Managers: 2, Rows: 5, Output: "out.csv"}, f.err
}

func withFakeApp(t *testing.T, runner *fakeRunner) {
	t.Helper()
	orig := newApp
	newApp = func(context.Context, string) (Runner, error) { return runner, nil }
	t.Cleanup(func() { newApp = orig })
}

func execute(args ...string) (string, error) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func defaultConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestStatsCommandUsesConfiguredSeasons(t *testing.T) {
	runner := &fakeRunner{cfg: defaultConfig(t)}
	withFakeApp(t, runner)

	out, err := execute("stats")
	require.NoError(t, err)

	assert.Equal(t, app.CommandStats, runner.command)
	assert.Equal(t, crawler.SeasonRange{First: 2000, Last: 2021}, runner.opts.Seasons)
	assert.Contains(t, out, "stats: 2 managers, 5 rows, 0 failures -> out.csv")
	assert.True(t, runner.closed)
}

func TestManagersCommandFlags(t *testing.T) {
	runner := &fakeRunner{cfg: defaultConfig(t)}
	withFakeApp(t, runner)

	_, err := execute("managers", "--first", "2015", "--last", "2016", "--out", "/tmp/x")
	require.NoError(t, err)

	assert.Equal(t, app.CommandManagers, runner.command)
	assert.Equal(t, app.RunOptions{
		Seasons: crawler.SeasonRange{First: 2015, Last: 2016},
		OutDir:  "/tmp/x",
	}, runner.opts)
}

func TestCommandRejectsInvertedSeasons(t *testing.T) {
	runner := &fakeRunner{cfg: defaultConfig(t)}
	withFakeApp(t, runner)

	_, err := execute("stats", "--first", "2022")
	require.ErrorContains(t, err, "--first/--last")
	assert.Empty(t, runner.command)
}

func TestCommandPropagatesRunError(t *testing.T) {
	runner := &fakeRunner{cfg: defaultConfig(t), err: errors.New("listing unavailable")}
	withFakeApp(t, runner)

	_, err := execute("stats")
	require.ErrorContains(t, err, "stats: listing unavailable")
}

func TestAppInitFailure(t *testing.T) {
	orig := newApp
	newApp = func(context.Context, string) (Runner, error) { return nil, errors.New("no config") }
	t.Cleanup(func() { newApp = orig })

	_, err := execute("managers")
	require.ErrorContains(t, err, "failed to initialize application services")
}
