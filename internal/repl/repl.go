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

// Package repl implements an interactive shell for chain queries.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/ldtoolkit/legdb/clog"
	"github.com/ldtoolkit/legdb/graph"
	"github.com/ldtoolkit/legdb/internal"
	"github.com/ldtoolkit/legdb/query"
)

// ResultLimit is the maximal number of results printed for one query.
const ResultLimit = 100

// Run executes a chain and prints its results to w.
func Run(ctx context.Context, w io.Writer, code string, ses *query.Session) error {
	start := time.Now()
	ch := make(chan query.Result, 16)
	go ses.Execute(ctx, code, ch, ResultLimit)

	n := 0
	var err error
	for r := range ch {
		if e := r.Err(); e != nil {
			if err == nil {
				err = e
			}
			continue
		}
		fmt.Fprintln(w, r.Result())
		n++
	}
	if err != nil {
		return err
	}
	results := "Result"
	if n != 1 {
		results += "s"
	}
	fmt.Fprintf(w, "-----------\n%d %s\nElapsed time: %g ms\n\n", n, results,
		float64(time.Since(start).Nanoseconds())/1e6)
	return nil
}

const (
	ps1 = "legdb> "
	ps2 = "...    "

	history = ".legdb_history"
)

const help = `Help
	exit                   // exit
	help                   // this help
	:plan <chain>          // print the compiled plan of a chain
	:put <json or yaml>    // write a graph document, e.g. {nodes: [{id: a}]}
	:load <file>           // load a graph document from a file
	:d <kind> <id> ...     // delete entities
	:debug [t|f]           // toggle compiler and storage logging
`

// Repl reads chains from the terminal and runs them against qs until EOF or exit.
func Repl(ctx context.Context, qs graph.Store, opts query.Options, timeout time.Duration) error {
	ses := query.NewSession(qs, opts)
	opts = ses.Options()

	term, err := terminal(history)
	if os.IsNotExist(err) {
		fmt.Printf("creating new history file: %q\n", history)
	}
	defer persist(term, history)

	var (
		prompt = ps1

		code string
	)

	newCtx := func() (context.Context, func()) { return ctx, func() {} }
	if timeout > 0 {
		newCtx = func() (context.Context, func()) { return context.WithTimeout(ctx, timeout) }
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if len(code) == 0 {
			prompt = ps1
		} else {
			prompt = ps2
		}
		line, err := term.Prompt(prompt)
		if err != nil {
			if err == io.EOF {
				fmt.Println()
				return nil
			}
			return err
		}

		term.AppendHistory(line)

		line = strings.TrimSpace(line)
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		if code == "" {
			cmd, args := splitLine(line)
			args = strings.TrimSpace(args)

			switch cmd {
			case ":debug":
				var debug bool
				switch args {
				case "t":
					debug = true
				case "f":
					// Do nothing.
				default:
					debug, err = strconv.ParseBool(args)
					if err != nil {
						fmt.Printf("Error: cannot parse %q as a valid boolean - acceptable values: 't'|'true' or 'f'|'false'\n", args)
						continue
					}
				}
				if debug {
					clog.SetV(2)
				} else {
					clog.SetV(0)
				}
				fmt.Printf("Debug set to %t\n", debug)
				continue

			case ":plan":
				plan, err := ses.Plan(args)
				if err != nil {
					fmt.Println("Error: ", err)
					continue
				}
				fmt.Println(plan)
				continue

			case ":put":
				nctx, cancel := newCtx()
				n, err := put(nctx, qs, opts, args)
				cancel()
				if err != nil {
					fmt.Printf("Error: not a valid graph document: %v\n", err)
					continue
				}
				fmt.Printf("Wrote %d entities.\n", n)
				continue

			case ":load":
				nctx, cancel := newCtx()
				n, err := internal.Load(nctx, qs, args, opts, 0)
				cancel()
				if err != nil {
					fmt.Println("Error: ", err)
					continue
				}
				fmt.Printf("Wrote %d entities.\n", n)
				continue

			case ":d":
				nctx, cancel := newCtx()
				err := del(nctx, qs, opts, args)
				cancel()
				if err != nil {
					fmt.Printf("error deleting: %v\n", err)
				}
				continue

			case "help":
				fmt.Print(help)
				continue

			case "exit":
				return nil

			default:
				if cmd[0] == ':' {
					fmt.Printf("Unknown command: %q\n", cmd)
					continue
				}
			}
		}

		if code != "" {
			code += " "
		}
		code += line

		nctx, cancel := newCtx()
		err = Run(nctx, os.Stdout, code, ses)
		cancel()
		if errors.Is(err, query.ErrParseMore) {
			// collect more input
		} else if err != nil {
			fmt.Println("Error: ", err)
			code = ""
		} else {
			code = ""
		}
	}
}

func put(ctx context.Context, w graph.Writer, opts query.Options, doc string) (int, error) {
	d, err := internal.ReadDocument(strings.NewReader(doc))
	if err != nil {
		return 0, err
	}
	return internal.WriteDocument(ctx, w, d, opts, 0)
}

func del(ctx context.Context, w graph.Writer, opts query.Options, args string) error {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return errors.New("expected a kind and at least one id")
	}
	ids := make([]graph.ID, 0, len(fields)-1)
	for _, f := range fields[1:] {
		ids = append(ids, graph.ID(f))
	}
	return w.Delete(ctx, opts.KindByName(fields[0]), ids...)
}

// Splits a line into a command and its arguments
// e.g. ":d node a b" will be split into ":d" and " node a b"
func splitLine(line string) (string, string) {
	var command, arguments string

	line = strings.TrimSpace(line)

	// An empty line/a line consisting of whitespace contains neither command nor arguments
	if len(line) > 0 {
		command = strings.Fields(line)[0]

		// A line containing only a command has no arguments
		if len(line) > len(command) {
			arguments = line[len(command):]
		}
	}

	return command, arguments
}

func terminal(path string) (*liner.State, error) {
	term := liner.NewLiner()

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, os.Kill)
		<-c

		err := persist(term, history)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to properly clean up terminal: %v\n", err)
			os.Exit(1)
		}

		os.Exit(0)
	}()

	f, err := os.Open(path)
	if err != nil {
		return term, err
	}
	defer f.Close()
	_, err = term.ReadHistory(f)
	return term, err
}

func persist(term *liner.State, path string) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0666)
	if err != nil {
		return fmt.Errorf("could not open %q to append history: %v", path, err)
	}
	defer f.Close()
	_, err = term.WriteHistory(f)
	if err != nil {
		return fmt.Errorf("could not write history to %q: %v", path, err)
	}
	return term.Close()
}
