package buildinfo

import (
	"runtime/debug"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestFromBuildInfo(t *testing.T) {
	commit := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		info *debug.BuildInfo
		want Info
	}{
		{
			name: "no vcs info",
			info: &debug.BuildInfo{GoVersion: "go1.24.1"},
			want: Info{Version: "dev", GoVersion: "go1.24.1"},
		},
		{
			name: "tagged install",
			info: &debug.BuildInfo{
				Main:     debug.Module{Version: "v0.4.0"},
				Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "abc123def456789"}},
			},
			want: Info{Version: "v0.4.0", Revision: "abc123def456789"},
		},
		{
			name: "devel main version",
			info: &debug.BuildInfo{
				Main:     debug.Module{Version: "(devel)"},
				Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "abc123def456789"}},
			},
			want: Info{Version: "dev-abc123def456", Revision: "abc123def456789"},
		},
		{
			name: "short revision",
			info: &debug.BuildInfo{
				Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "abc123"}},
			},
			want: Info{Version: "dev-abc123", Revision: "abc123"},
		},
		{
			name: "dirty tree with commit time",
			info: &debug.BuildInfo{
				Settings: []debug.BuildSetting{
					{Key: "vcs", Value: "git"},
					{Key: "vcs.revision", Value: "abc123def456789"},
					{Key: "vcs.modified", Value: "true"},
					{Key: "vcs.time", Value: "2025-01-15T12:00:00Z"},
				},
			},
			want: Info{Version: "dev-abc123def456-dirty", Revision: "abc123def456789", Modified: true, Time: commit},
		},
		{
			name: "empty revision",
			info: &debug.BuildInfo{
				Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: ""}, {Key: "vcs.modified", Value: "true"}},
			},
			want: Info{Version: "dev", Modified: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fromBuildInfo(tt.info)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("fromBuildInfo() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInfoString(t *testing.T) {
	tests := []struct {
		info Info
		want string
	}{
		{Info{Version: "dev"}, "squatwatch dev"},
		{Info{Version: "dev-abc123def456", Revision: "abc123def456789", GoVersion: "go1.24.1"}, "squatwatch dev-abc123def456, go1.24.1"},
		{
			Info{Version: "v0.4.0", Revision: "abc123def456789", Time: time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)},
			"squatwatch v0.4.0 (abc123def456) built from a commit of 2025-01-15",
		},
	}
	for _, tt := range tests {
		if got := tt.info.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestVersionNotEmpty(t *testing.T) {
	if Version() == "" {
		t.Error("Version() returned empty string")
	}
}
