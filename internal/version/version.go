package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Build-time parameters set via -ldflags
var (
	Version   = "devel"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Full version string
func Full() string {
	return fmt.Sprintf("%s (built %s, commit %s)", Version, BuildTime, GitCommit)
}

// Info returns detailed version information
func Info() string {
	return fmt.Sprintf(
		"ChatFun %s\nGo: %s\nOS/Arch: %s/%s\nBuilt: %s\nCommit: %s",
		Version,
		runtime.Version(),
		runtime.GOOS,
		runtime.GOARCH,
		BuildTime,
		GitCommit,
	)
}

// UserAgent is sent with every API request.
func UserAgent() string {
	return "chatfun/" + Version
}

// `go install` builds carry a module version even without -ldflags.
func init() {
	if Version != "devel" {
		return
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		Version = v
	}
}
