package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	origVersion, origCommit, origBuildTime := Version, Commit, BuildTime
	t.Cleanup(func() {
		Version, Commit, BuildTime = origVersion, origCommit, origBuildTime
	})

	Version, Commit, BuildTime = "dev", "unknown", "unknown"
	assert.Equal(t, "dev (unknown) built unknown", String())

	Version, Commit, BuildTime = "1.2.3", "abc1234", "2025-01-15T10:00:00Z"
	assert.Equal(t, "1.2.3 (abc1234) built 2025-01-15T10:00:00Z", String())
	assert.Equal(t, Info{Version: "1.2.3", Commit: "abc1234", BuildTime: "2025-01-15T10:00:00Z"}, Get())
}
