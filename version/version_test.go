package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	old := BuildDate
	defer func() { BuildDate = old }()

	BuildDate = ""
	require.Equal(t, "LegDB "+Version+" (dev snapshot)", String())
	BuildDate = "2021-05-01"
	require.Contains(t, String(), "built 2021-05-01")
}
