package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func withBuild(t *testing.T, version, commit, date string) {
	t.Helper()
	prevVersion, prevCommit, prevDate := BuildVersion, Commit, BuildDate
	BuildVersion, Commit, BuildDate = version, commit, date
	t.Cleanup(func() {
		BuildVersion, Commit, BuildDate = prevVersion, prevCommit, prevDate
	})
}

func TestBaseVersion(t *testing.T) {
	testCases := []struct {
		version string
		want    string
	}{
		{version: "0.4.2", want: "v0.4"},
		{version: "v1.12.0-rc.1", want: "v1.12"},
		{version: "2.1-3-gdeadbee", want: "v2.1"},
		{version: "5", want: "v5.0"},
		{version: "0.0.0", want: "v0.0"},
		{version: "dev", want: "unknown"},
		{version: "1.2.beta", want: "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.version, func(t *testing.T) {
			withBuild(t, tc.version, Commit, BuildDate)
			assert.Equal(t, tc.want, BaseVersion())
		})
	}
}

func TestString(t *testing.T) {
	t.Run("Release", func(t *testing.T) {
		withBuild(t, "0.4.2", "a1b2c3d", "2026-10-01T12:00:00Z")
		assert.Equal(t, "0.4.2 (a1b2c3d) built 2026-10-01T12:00:00Z with "+runtime.Version(), String())
	})

	t.Run("Defaults", func(t *testing.T) {
		withBuild(t, "0.0.0", "unknown", "unknown")
		assert.Equal(t, "0.0.0 (unknown) built unknown with "+runtime.Version(), String())
	})
}
