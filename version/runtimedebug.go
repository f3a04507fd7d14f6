package version

import (
	"errors"
	"runtime/debug"
)

// Build is the part of the Go build information reported by the buildInfo query.
type Build struct {
	GoVersion string            `json:"goVersion"`
	Path      string            `json:"path"`
	Version   string            `json:"version"`
	Deps      map[string]string `json:"deps,omitempty"`
	Settings  map[string]string `json:"settings,omitempty"`
}

// BuildInfo returns the build information
func BuildInfo() (*Build, error) {
	bi, ok := debug.ReadBuildInfo()
	if !ok || bi == nil {
		return nil, errors.New("fetching build info failed")
	}

	b := &Build{
		GoVersion: bi.GoVersion,
		Path:      bi.Path,
		Version:   bi.Main.Version,
		Deps:      make(map[string]string, len(bi.Deps)),
		Settings:  make(map[string]string, len(bi.Settings)),
	}
	for _, dep := range bi.Deps {
		b.Deps[dep.Path] = dep.Version
	}
	for _, s := range bi.Settings {
		b.Settings[s.Key] = s.Value
	}

	return b, nil
}
