package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/page-cycler/internal/assets"
	"github.com/daryltucker/page-cycler/internal/config"
	"github.com/daryltucker/page-cycler/internal/output"
	"github.com/daryltucker/page-cycler/internal/schedule"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	orig := output.Logger
	t.Cleanup(func() { output.SetLogger(orig) })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestApplyOverrides(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	addScheduleFlags(fs)
	fs.BoolVar(&speedIndex, "speed-index", false, "")
	require.NoError(t, fs.Parse([]string{
		"--pages", "a.html,b.html",
		"--pageset-repeat", "4",
		"--cold-load-percent", "0",
		"--speed-index",
	}))
	t.Cleanup(func() { pagesOverride = nil })

	cfg := config.DefaultConfig()
	applyOverrides(fs, cfg)

	assert.Equal(t, []config.Page{{URL: "a.html"}, {URL: "b.html"}}, cfg.Pages)
	assert.Equal(t, 4, cfg.PageSetRepeat)
	assert.Equal(t, 1, cfg.PageRepeat)
	require.NotNil(t, cfg.ColdLoadPercent)
	assert.Equal(t, 0, *cfg.ColdLoadPercent)
	assert.Nil(t, cfg.DiscardFirstResult)
	assert.True(t, cfg.ReportSpeedIndex)
	assert.True(t, cfg.ProcessMetrics)
}

func TestScheduleCommandJSON(t *testing.T) {
	t.Cleanup(func() { pagesOverride = nil })
	out := execute(t, "schedule", "--json",
		"--pages", "http://a/,http://b/",
		"--pageset-repeat", "3",
		"--page-repeat", "1",
		"--cold-load-percent", "50",
	)

	var plan []schedule.PlannedVisit
	require.NoError(t, json.Unmarshal([]byte(out), &plan))
	require.Len(t, plan, 6)
	assert.True(t, plan[0].Cold)
	assert.False(t, plan[0].ClearCache)
	assert.False(t, plan[2].Cold)
	assert.True(t, plan[4].Cold)
	assert.True(t, plan[4].ClearCache)
}

func TestPayloadsInstall(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "js")
	execute(t, "payloads", "install", "--dir", dir)

	got, err := os.ReadFile(filepath.Join(dir, assets.PageCyclerScript))
	require.NoError(t, err)
	assert.Equal(t, assets.MustPayload(assets.PageCyclerScript), string(got))
	assert.FileExists(t, filepath.Join(dir, assets.SpeedIndexScript))
}
