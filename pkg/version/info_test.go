package version

import (
	"runtime/debug"
	"testing"
)

func stubBuildVars(t *testing.T, appVersion, commit, buildTime string) {
	t.Helper()
	oldVersion, oldCommit, oldBuildTime, oldRead := AppVersion, GitCommit, BuildTime, readBuildInfo
	t.Cleanup(func() {
		AppVersion, GitCommit, BuildTime, readBuildInfo = oldVersion, oldCommit, oldBuildTime, oldRead
	})
	AppVersion, GitCommit, BuildTime = appVersion, commit, buildTime
}

func TestCurrent(t *testing.T) {
	tests := []struct {
		name      string
		service   string
		version   string
		commit    string
		buildTime string
		settings  []debug.BuildSetting
		want      Info
	}{
		{
			name: "defaults without build info",
			want: Info{Service: Unknown, Version: DevelopmentVersion, Commit: Unknown, BuildTime: Unknown},
		},
		{
			name:      "linker flags win",
			service:   " taskboard ",
			version:   "v1.4.0",
			commit:    "abc123",
			buildTime: "2026-01-02T03:04:05Z",
			settings:  []debug.BuildSetting{{Key: "vcs.revision", Value: "ignored"}},
			want:      Info{Service: "taskboard", Version: "v1.4.0", Commit: "abc123", BuildTime: "2026-01-02T03:04:05Z"},
		},
		{
			name:    "vcs stamp fills the gaps",
			service: "taskboard",
			version: "v1.4.0",
			settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "def456"},
				{Key: "vcs.time", Value: "2026-02-03T04:05:06Z"},
			},
			want: Info{Service: "taskboard", Version: "v1.4.0", Commit: "def456", BuildTime: "2026-02-03T04:05:06Z"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubBuildVars(t, tt.version, tt.commit, tt.buildTime)
			readBuildInfo = func() (*debug.BuildInfo, bool) {
				if tt.settings == nil {
					return nil, false
				}
				return &debug.BuildInfo{Settings: tt.settings}, true
			}

			got := Current(tt.service)
			if got.GoVersion == "" {
				t.Fatal("go version must be set")
			}
			got.GoVersion = ""
			if got != tt.want {
				t.Fatalf("Current() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestInfo_String(t *testing.T) {
	info := Info{Service: "taskboard", Version: "v1.0.0", Commit: "abc", BuildTime: "now"}
	if got := info.String(); got != "taskboard@v1.0.0 (commit=abc, build_time=now)" {
		t.Fatalf("String() = %q", got)
	}
}
