package version

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func withStamp(t *testing.T, version, commit, buildTime string) {
	t.Helper()
	oldVersion, oldCommit, oldTime := Version, GitCommit, BuildTime
	Version, GitCommit, BuildTime = version, commit, buildTime
	t.Cleanup(func() {
		Version, GitCommit, BuildTime = oldVersion, oldCommit, oldTime
	})
}

func TestGet_Stamped(t *testing.T) {
	withStamp(t, "v1.4.0", "0123456789abcdef", "2024-05-01T10:00:00Z")

	info := Get()
	assert.Equal(t, "v1.4.0", info.Version)
	assert.Equal(t, "0123456789abcdef", info.GitCommit)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), info.BuildTime)
	assert.NotEmpty(t, info.GoVersion)
	assert.Contains(t, info.Platform, "/")
	assert.True(t, info.IsRelease())
	assert.Equal(t, "v1.4.0 (0123456)", info.Short())
}

func TestShort(t *testing.T) {
	assert.Equal(t, "dev", BuildInfo{Version: "dev", GitCommit: "unknown"}.Short())
	assert.Equal(t, "dev-abcdef0", BuildInfo{Version: "dev", GitCommit: "abcdef0123"}.Short())
}

func TestDetailed(t *testing.T) {
	info := BuildInfo{
		Version:   "v2.0.0",
		GitCommit: "unknown",
		GoVersion: "go1.24",
		Platform:  "linux/amd64",
		Dirty:     true,
	}

	out := info.Detailed()
	assert.True(t, strings.HasPrefix(out, "Version: v2.0.0"))
	assert.NotContains(t, out, "Commit:")
	assert.NotContains(t, out, "Built:")
	assert.Contains(t, out, "Working directory: dirty")
}

func TestParseBuildTime(t *testing.T) {
	assert.True(t, parseBuildTime("unknown").IsZero())
	assert.True(t, parseBuildTime("yesterday").IsZero())
	assert.Equal(t, 2023, parseBuildTime("2023-02-03 04:05:06").Year())
}

func TestIsRelease(t *testing.T) {
	assert.False(t, BuildInfo{Version: "dev"}.IsRelease())
	assert.False(t, BuildInfo{Version: "dev-abc1234"}.IsRelease())
	assert.True(t, BuildInfo{Version: "v0.1.0"}.IsRelease())
}
