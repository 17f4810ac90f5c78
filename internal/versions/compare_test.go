package versions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNewerVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		newVersion string
		oldVersion string
		expected   bool
	}{
		{name: "newer minor", newVersion: "1.2.0", oldVersion: "1.1.0", expected: true},
		{name: "older patch", newVersion: "1.0.1", oldVersion: "1.0.2", expected: false},
		{name: "equal", newVersion: "1.0.0", oldVersion: "1.0.0", expected: false},
		{name: "release beats prerelease", newVersion: "1.0.0", oldVersion: "1.0.0-rc.1", expected: true},
		{name: "v prefix", newVersion: "v2.0.0", oldVersion: "v1.9.9", expected: true},
		{name: "development builds compare as strings", newVersion: "build-bbbb", oldVersion: "build-aaaa", expected: true},
		{name: "empty old version", newVersion: "1.0.0", oldVersion: "", expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, IsNewerVersion(tt.newVersion, tt.oldVersion))
		})
	}
}

func TestMajorSkew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		cli    string
		server string
		want   Skew
	}{
		{name: "same major", cli: "v1.2.0", server: "v1.9.3", want: SkewNone},
		{name: "server newer", cli: "v1.2.0", server: "v2.0.0", want: SkewServerNewer},
		{name: "server older", cli: "v2.0.0", server: "v1.4.0", want: SkewServerOlder},
		{name: "development cli", cli: "build-1a2b3c4d", server: "v2.0.0", want: SkewNone},
		{name: "development server", cli: "v1.0.0", server: "build-1a2b3c4d", want: SkewNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, MajorSkew(tt.cli, tt.server))
		})
	}
}
