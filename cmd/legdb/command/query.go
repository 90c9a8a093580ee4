package command

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ldtoolkit/legdb/clog"
	"github.com/ldtoolkit/legdb/graph"
	"github.com/ldtoolkit/legdb/internal"
	"github.com/ldtoolkit/legdb/internal/config"
	"github.com/ldtoolkit/legdb/internal/repl"
	"github.com/ldtoolkit/legdb/query"
)

func getContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	go func() {
		select {
		case <-ch:
		case <-ctx.Done():
		}
		signal.Stop(ch)
		cancel()
	}()
	return ctx, cancel
}

func registerQueryFlags(cmd *cobra.Command) {
	cmd.Flags().Bool(flagInit, false, "initialize the database before using it")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout, "elapsed time until an individual query times out")
	cmd.Flags().Int("page_size", 0, "number of entities pulled from storage at once")
	registerLoadFlags(cmd)
}

// queryText reads a chain from the arguments or from stdin.
func queryText(args []string) (string, error) {
	switch len(args) {
	case 0:
		data, err := ioutil.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("error occurred while reading from stdin: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	case 1:
		return args[0], nil
	}
	return "", fmt.Errorf("expected one argument, the chain text, or nothing for reading from stdin")
}

func NewReplCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Drop into an interactive chain shell.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := mustSetupProfile(cmd)
			defer mustFinishProfile(p)

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			qs, err := openForQueries(cmd, cfg)
			if err != nil {
				return err
			}
			defer qs.Close()

			ctx, cancel := getContext()
			defer cancel()
			return repl.Repl(ctx, qs, cfg.QueryOptions(), cfg.Timeout)
		},
	}
	registerQueryFlags(cmd)
	return cmd
}

func NewQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "query [chain]",
		Aliases: []string{"qu"},
		Short:   "Run a chain against the database and print results as JSON lines.",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := queryText(args)
			if err != nil {
				return err
			}
			clog.Infof("Query:\n%s", text)
			p := mustSetupProfile(cmd)
			defer mustFinishProfile(p)

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			qs, err := openForQueries(cmd, cfg)
			if err != nil {
				return err
			}
			defer qs.Close()

			ctx, cancel := getContext()
			defer cancel()
			if cfg.Timeout > 0 {
				ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
				defer cancel()
			}
			limit, err := cmd.Flags().GetInt("limit")
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			ses := query.NewSession(qs, cfg.QueryOptions())
			ch := make(chan query.Result, 100)
			go ses.Execute(ctx, text, ch, limit)
			for r := range ch {
				if err = r.Err(); err != nil {
					cancel()
					return err
				}
				if err = enc.Encode(internal.Record(r.Result().(graph.Entity))); err != nil {
					cancel()
					return err
				}
			}
			return ctx.Err()
		},
	}
	registerQueryFlags(cmd)
	cmd.Flags().IntP("limit", "n", 100, "limit a number of results")
	return cmd
}

func NewPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan [chain]",
		Short: "Print the compiled physical steps of a chain.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := queryText(args)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			c, err := query.Parse(text, cfg.QueryOptions())
			if err != nil {
				return err
			}
			pl, err := c.Plan()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for i, st := range pl {
				fmt.Fprintf(w, "%d. %s\n", i+1, st)
			}
			return nil
		},
	}
	return cmd
}
