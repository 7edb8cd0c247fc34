package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyBuildInfo(t *testing.T) {
	saved := [3]string{Version, Commit, Date}

	t.Cleanup(func() { Version, Commit, Date = saved[0], saved[1], saved[2] })

	Version, Commit, Date = "dev", "none", "unknown"

	applyBuildInfo(&debug.BuildInfo{
		Main: debug.Module{Version: "v1.4.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abc123"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
		},
	})

	assert.Equal(t, "heropicks v1.4.0 (commit: abc123, built: 2026-01-02T03:04:05Z)", String())
}

func TestApplyBuildInfo_KeepsLinkerValues(t *testing.T) {
	saved := [3]string{Version, Commit, Date}

	t.Cleanup(func() { Version, Commit, Date = saved[0], saved[1], saved[2] })

	Version, Commit, Date = "v2.0.0", "feedbeef", "yesterday"

	applyBuildInfo(&debug.BuildInfo{
		Main:     debug.Module{Version: develVersion},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "abc123"}},
	})

	assert.Equal(t, "v2.0.0", Version)
	assert.Equal(t, "feedbeef", Commit)
	assert.Equal(t, "yesterday", Date)
}
