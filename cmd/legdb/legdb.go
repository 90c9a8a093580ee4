// Copyright 2021 The LegDB Authors. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	goflag "flag"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ldtoolkit/legdb/clog"
	_ "github.com/ldtoolkit/legdb/clog/glog"
	"github.com/ldtoolkit/legdb/cmd/legdb/command"
	"github.com/ldtoolkit/legdb/graph"
	"github.com/ldtoolkit/legdb/internal/config"
	"github.com/ldtoolkit/legdb/version"

	// Load all supported backends.
	_ "github.com/ldtoolkit/legdb/graph/kv/all"
)

var (
	rootCmd = &cobra.Command{
		Use:   "legdb",
		Short: "LegDB is an embedded graph database with a chain query language.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// force glog to parse its flags
			goflag.CommandLine.Parse([]string{})

			if conf, _ := cmd.Flags().GetString("config"); conf != "" {
				if err := config.ReadFile(viper.GetViper(), conf); err != nil {
					return err
				}
				clog.Infof("using config file: %s", conf)
			}
			if clog.V(1) {
				clog.Infof("%s", version.String())
			}
			return nil
		},
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Prints the version of LegDB.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
			fmt.Fprintln(cmd.OutOrStdout(), "Backends:", graph.Stores())
		},
	}
)

func init() {
	config.Setup(viper.GetViper())

	rootCmd.AddCommand(
		versionCmd,
		command.NewInitDatabaseCmd(),
		command.NewLoadDatabaseCmd(),
		command.NewDumpDatabaseCmd(),
		command.NewQueryCmd(),
		command.NewPlanCmd(),
		command.NewReplCmd(),
		command.NewHttpCmd(),
		command.NewHealthCmd(),
	)
	rootCmd.PersistentFlags().StringP("config", "c", "", "path to an explicit configuration file")

	rootCmd.PersistentFlags().StringP("db", "d", config.DefaultBackend, "database backend to use: "+fmt.Sprint(graph.Stores()))
	rootCmd.PersistentFlags().StringP("dbpath", "a", "", "path or address string for the database")

	rootCmd.PersistentFlags().String("node_kind", "", "name of the default node kind")
	rootCmd.PersistentFlags().String("edge_kind", "", "name of the default edge kind")

	// profiling
	rootCmd.PersistentFlags().String("memprofile", "", "path to output memory profile")
	rootCmd.PersistentFlags().String("cpuprofile", "", "path to output cpu profile")

	// bind flags to config variables
	viper.BindPFlag(config.KeyBackend, rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag(config.KeyPath, rootCmd.PersistentFlags().Lookup("dbpath"))
	viper.BindPFlag(config.KeyNodeKind, rootCmd.PersistentFlags().Lookup("node_kind"))
	viper.BindPFlag(config.KeyEdgeKind, rootCmd.PersistentFlags().Lookup("edge_kind"))

	// make glog flags visible to cobra
	goflag.Set("logtostderr", "true")
	rootCmd.PersistentFlags().AddGoFlagSet(goflag.CommandLine)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		clog.Errorf("%v", err)
		os.Exit(1)
	}
}
