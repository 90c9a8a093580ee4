package command

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ldtoolkit/legdb/clog"
	"github.com/ldtoolkit/legdb/graph"
	"github.com/ldtoolkit/legdb/internal"
	"github.com/ldtoolkit/legdb/internal/config"
	"github.com/ldtoolkit/legdb/internal/db"
)

const (
	flagInit = "init"
	flagLoad = "load"
	flagDump = "dump"
)

func registerLoadFlags(cmd *cobra.Command) {
	cmd.Flags().StringP(flagLoad, "i", "", `graph document to load after opening (".gz" and ".bz2" supported, "-" for stdin)`)
	cmd.Flags().Int("batch", config.DefaultLoadBatch, "number of entities written in one transaction")
}

func registerDumpFlags(cmd *cobra.Command) {
	cmd.Flags().StringP(flagDump, "o", "", `graph document to dump the database to (".gz" supported, "-" for stdout)`)
}

// flagKeys maps command flags to configuration keys they override.
var flagKeys = map[string]string{
	"batch":     config.KeyLoadBatch,
	"timeout":   config.KeyTimeout,
	"page_size": config.KeyPageSize,
	"read_only": config.KeyHTTPReadOnly,
}

// loadConfig reads the configuration with flags of cmd that were set explicitly applied.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			if err := viper.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}
	return config.FromViper(viper.GetViper())
}

func NewInitDatabaseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create an empty database.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if graph.IsRegistered(cfg.Backend) && !graph.IsPersistent(cfg.Backend) {
				return db.ErrNotPersistent
			}
			return db.Init(cfg)
		},
	}
	return cmd
}

func NewLoadDatabaseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <file>",
		Short: "Bulk-load a graph document into the database.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := mustSetupProfile(cmd)
			defer mustFinishProfile(p)
			load, _ := cmd.Flags().GetString(flagLoad)
			if load == "" && len(args) == 1 {
				load = args[0]
			}
			if load == "" {
				return errors.New("one graph document must be specified")
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			init, _ := cmd.Flags().GetBool(flagInit)
			qs, err := db.Open(cfg, init)
			if err != nil {
				return err
			}
			defer qs.Close()

			ctx, cancel := getContext()
			defer cancel()
			start := time.Now()
			n, err := internal.Load(ctx, qs, load, cfg.QueryOptions(), cfg.Batch)
			if err != nil {
				return err
			}
			clog.Infof("loaded %d entities from %q in %v", n, load, time.Since(start))

			if dump, _ := cmd.Flags().GetString(flagDump); dump != "" {
				if _, err = internal.Dump(ctx, qs, dump); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().Bool(flagInit, false, "initialize the database before using it")
	registerLoadFlags(cmd)
	registerDumpFlags(cmd)
	return cmd
}

func NewDumpDatabaseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump [file]",
		Short: "Bulk-dump the database into a graph document.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dump, _ := cmd.Flags().GetString(flagDump)
			if dump == "" && len(args) == 1 {
				dump = args[0]
			}
			if dump == "" {
				dump = "-"
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			qs, err := db.Open(cfg, false)
			if err != nil {
				return err
			}
			defer qs.Close()

			ctx, cancel := getContext()
			defer cancel()
			_, err = internal.Dump(ctx, qs, dump)
			return err
		},
	}
	registerDumpFlags(cmd)
	return cmd
}

// openForQueries opens the configured store, initializing it and loading a document
// if the corresponding flags are set.
func openForQueries(cmd *cobra.Command, cfg *config.Config) (graph.Store, error) {
	init, _ := cmd.Flags().GetBool(flagInit)
	qs, err := db.Open(cfg, init)
	if err != nil {
		return nil, err
	}
	if load, _ := cmd.Flags().GetString(flagLoad); load != "" {
		ctx, cancel := getContext()
		defer cancel()
		start := time.Now()
		n, err := internal.Load(ctx, qs, load, cfg.QueryOptions(), cfg.Batch)
		if err != nil {
			qs.Close()
			return nil, err
		}
		clog.Infof("loaded %d entities from %q in %v", n, load, time.Since(start))
	}
	return qs, nil
}

type profileData struct {
	cpuProfile *os.File
	memPath    string
}

func mustSetupProfile(cmd *cobra.Command) profileData {
	p := profileData{}
	if mpp := cmd.Flag("memprofile"); mpp != nil {
		p.memPath = mpp.Value.String()
	}
	cpp := cmd.Flag("cpuprofile")
	if cpp == nil {
		return p
	}
	v := cpp.Value.String()
	if v != "" {
		f, err := os.Create(v)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not open CPU profile file %s\n", v)
			os.Exit(1)
		}
		p.cpuProfile = f
		pprof.StartCPUProfile(f)
	}
	return p
}

func mustFinishProfile(p profileData) {
	if p.cpuProfile != nil {
		pprof.StopCPUProfile()
		p.cpuProfile.Close()
	}
	if p.memPath != "" {
		f, err := os.Create(p.memPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not open memory profile file %s\n", p.memPath)
			os.Exit(1)
		}
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not write memory profile file %s\n", p.memPath)
		}
		f.Close()
	}
}
