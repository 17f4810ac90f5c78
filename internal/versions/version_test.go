package versions

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewVersionInfo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		version       string
		commit        string
		buildDate     string
		wantVersion   string
		wantBuildDate string
	}{
		{
			name:          "release build",
			version:       "v1.3.0",
			commit:        "0123456789abcdef",
			buildDate:     "2025-05-01T08:00:00Z",
			wantVersion:   "v1.3.0",
			wantBuildDate: "2025-05-01 08:00:00 UTC",
		},
		{
			name:          "development build uses short commit",
			version:       "dev",
			commit:        "0123456789abcdef",
			buildDate:     unknownStr,
			wantVersion:   "build-01234567",
			wantBuildDate: unknownStr,
		},
		{
			name:          "unparseable build date is kept",
			version:       "v1.3.0",
			commit:        unknownStr,
			buildDate:     "yesterday",
			wantVersion:   "v1.3.0",
			wantBuildDate: "yesterday",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			info := newVersionInfo(tt.version, tt.commit, tt.buildDate)
			assert.Equal(t, tt.wantVersion, info.Version)
			assert.Equal(t, tt.commit, info.Commit)
			assert.Equal(t, tt.wantBuildDate, info.BuildDate)
			assert.Equal(t, runtime.Version(), info.GoVersion)
			assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
		})
	}
}

func TestVersionInfo_String(t *testing.T) {
	t.Parallel()

	out := VersionInfo{Version: "v1.0.0", Commit: "abc", Platform: "linux/amd64"}.String()
	assert.Contains(t, out, "Version:    v1.0.0\n")
	assert.Contains(t, out, "Commit:     abc\n")
	assert.Contains(t, out, "Platform:   linux/amd64\n")
}
