package buildinfo

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	saved := readBuildInfo
	defer func() { readBuildInfo = saved }()

	stamped := &debug.BuildInfo{
		GoVersion: "go1.24.0",
		Main:      debug.Module{Version: "v0.3.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abc123"},
			{Key: "vcs.time", Value: "2024-03-01T10:00:00Z"},
		},
	}

	tests := []struct {
		name    string
		version string
		bi      *debug.BuildInfo
		want    Info
	}{
		{
			name:    "NoBuildInfo",
			version: "dev",
			want:    Info{Version: "dev", Commit: "none", Date: "unknown"},
		},
		{
			name:    "GoInstall",
			version: "dev",
			bi:      stamped,
			want:    Info{Version: "v0.3.0", Commit: "abc123", Date: "2024-03-01T10:00:00Z", GoVersion: "go1.24.0"},
		},
		{
			name:    "LdflagsWin",
			version: "v1.0.0",
			bi:      stamped,
			want:    Info{Version: "v1.0.0", Commit: "abc123", Date: "2024-03-01T10:00:00Z", GoVersion: "go1.24.0"},
		},
		{
			name:    "DevelBuild",
			version: "dev",
			bi:      &debug.BuildInfo{GoVersion: "go1.24.0", Main: debug.Module{Version: "(devel)"}},
			want:    Info{Version: "dev", Commit: "none", Date: "unknown", GoVersion: "go1.24.0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Version = tt.version
			defer func() { Version = "dev" }()
			readBuildInfo = func() (*debug.BuildInfo, bool) { return tt.bi, tt.bi != nil }

			if got := Get(); got != tt.want {
				t.Errorf("Get() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTemplate(t *testing.T) {
	if !strings.HasPrefix(Template(), "{{.Name}} version ") {
		t.Errorf("Template() = %q", Template())
	}
}
