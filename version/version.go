// Package version holds build information of legdb binaries.
package version

import "fmt"

var (
	Version = "0.1.0-alpha"

	// git hash should be filled by:
	// 	go build -ldflags="-X github.com/ldtoolkit/legdb/version.GitHash=xxxx"

	GitHash   = "dev snapshot"
	BuildDate string
)

// String returns a one-line build description.
func String() string {
	s := fmt.Sprintf("LegDB %s (%s)", Version, GitHash)
	if BuildDate != "" {
		s += " built " + BuildDate
	}
	return s
}
