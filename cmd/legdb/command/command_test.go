package command

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	_ "github.com/ldtoolkit/legdb/graph/kv/all"
	"github.com/ldtoolkit/legdb/internal/config"
)

const testGraph = `
nodes:
  - {id: a, attrs: {type: person}}
  - {id: b, attrs: {type: person}}
edges:
  - {id: ab, start: a, end: b, attrs: {rel: knows}}
`

func run(t testing.TB, cmd *cobra.Command, args ...string) string {
	buf := bytes.NewBuffer(nil)
	cmd.SetOut(buf)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return buf.String()
}

func setup(t testing.TB, backend string) string {
	dir, err := ioutil.TempDir("", "legdb-cmd")
	require.NoError(t, err)
	viper.Reset()
	config.Setup(viper.GetViper())
	viper.Set(config.KeyBackend, backend)
	viper.Set(config.KeyPath, filepath.Join(dir, "db"))
	return dir
}

func TestDatabaseCommands(t *testing.T) {
	dir := setup(t, "bolt")
	defer os.RemoveAll(dir)
	defer viper.Reset()

	file := filepath.Join(dir, "graph.yaml")
	require.NoError(t, ioutil.WriteFile(file, []byte(testGraph), 0644))

	run(t, NewInitDatabaseCmd())
	run(t, NewLoadDatabaseCmd(), file, "--batch", "1")

	out := run(t, NewQueryCmd(), `node.has(type="person").edge_out(rel="knows")`)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1)
	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	require.Equal(t, "ab", rec["id"])
	require.Equal(t, "a", rec["start"])

	out = run(t, NewQueryCmd(), "-n", "1", `node`)
	require.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 1)

	dump := filepath.Join(dir, "dump.yaml")
	run(t, NewDumpDatabaseCmd(), dump)
	data, err := ioutil.ReadFile(dump)
	require.NoError(t, err)
	require.Contains(t, string(data), "rel: knows")
}

func TestInitMemory(t *testing.T) {
	dir := setup(t, "memstore")
	defer os.RemoveAll(dir)
	defer viper.Reset()

	cmd := NewInitDatabaseCmd()
	cmd.SetArgs(nil)
	cmd.SetOut(ioutil.Discard)
	cmd.SilenceUsage = true
	require.Error(t, cmd.Execute())
}

func TestQueryLoad(t *testing.T) {
	dir := setup(t, "memstore")
	defer os.RemoveAll(dir)
	defer viper.Reset()

	file := filepath.Join(dir, "graph.yaml")
	require.NoError(t, ioutil.WriteFile(file, []byte(testGraph), 0644))

	out := run(t, NewQueryCmd(), "-i", file, `node.get("b").edge_in()`)
	require.Contains(t, out, `"id":"ab"`)
}

func TestPlan(t *testing.T) {
	dir := setup(t, "memstore")
	defer os.RemoveAll(dir)
	defer viper.Reset()

	out := run(t, NewPlanCmd(), `node.has(type="person").edge_out(rel="knows")`)
	require.Equal(t, "1. filter(edge, start=node{type=\"person\"}, rel=\"knows\")\n", out)
}
