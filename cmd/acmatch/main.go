// Command acmatch is a small CLI front end over the AC term-matching core:
// compile a pattern/subject pair written in the patternlang DSL and print
// every yielded substitution, optionally loading named constraints from a
// ruleset file, serving the core over gRPC, or recording/replaying a trace
// file. Shaped like the teacher's cmd/funxy/main.go: manual flag.FlagSet
// subcommands, no argument-parsing framework.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"sort"
	"strings"

	"github.com/mattn/go-isatty"
	"google.golang.org/grpc"

	"github.com/acmatch/acmatch/internal/match"
	"github.com/acmatch/acmatch/internal/patternlang"
	"github.com/acmatch/acmatch/internal/rpc"
	"github.com/acmatch/acmatch/internal/ruleset"
	"github.com/acmatch/acmatch/internal/term"
	"github.com/acmatch/acmatch/internal/wire"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "match":
		err = runMatch(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "query":
		err = runQuery(os.Args[2:])
	case "replay":
		err = runReplay(os.Args[2:])
	case "-help", "--help", "help":
		usage()
		return
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "acmatch: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: acmatch <command> [flags]

Commands:
  match   -pattern EXPR -subject EXPR [-ruleset FILE] [-record FILE]
  serve   -addr ADDR [-ruleset FILE]
  query   -addr ADDR -pattern EXPR -subject EXPR
  replay  -file FILE`)
}

func runMatch(args []string) error {
	fs := flag.NewFlagSet("match", flag.ExitOnError)
	pattern := fs.String("pattern", "", "pattern expression in patternlang source")
	subject := fs.String("subject", "", "subject expression in patternlang source")
	rulesetPath := fs.String("ruleset", "", "path to a ruleset YAML file resolving named constraints")
	recordPath := fs.String("record", "", "append this call's result to a wire trace file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *pattern == "" || *subject == "" {
		return fmt.Errorf("match: -pattern and -subject are required")
	}

	resolver, err := loadResolver(*rulesetPath)
	if err != nil {
		return err
	}

	patternExpr, err := patternlang.Compile(*pattern, resolver)
	if err != nil {
		return fmt.Errorf("compiling pattern: %w", err)
	}
	subjectExpr, err := patternlang.Compile(*subject, resolver)
	if err != nil {
		return fmt.Errorf("compiling subject: %w", err)
	}

	results, err := match.Try([]term.Expression{subjectExpr}, patternExpr, term.NewSubstitution())
	if err != nil {
		return err
	}

	printSubstitutions(os.Stdout, results)

	if *recordPath != "" {
		existing, _ := wire.ReadFile(*recordPath)
		record := wire.Record{
			Pattern:       patternlang.Print(patternExpr),
			Subject:       patternlang.Print(subjectExpr),
			Substitutions: wire.RecordSubstitutions(results),
		}
		if err := wire.WriteFile(*recordPath, append(existing, record)); err != nil {
			return fmt.Errorf("recording trace: %w", err)
		}
	}
	return nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", ":50051", "address to listen on")
	rulesetPath := fs.String("ruleset", "", "path to a ruleset YAML file resolving named constraints")
	if err := fs.Parse(args); err != nil {
		return err
	}

	resolver, err := loadResolver(*rulesetPath)
	if err != nil {
		return err
	}

	srv, err := rpc.NewMatchServer(resolver)
	if err != nil {
		return fmt.Errorf("starting match server: %w", err)
	}

	lis, err := net.Listen("tcp", *addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", *addr, err)
	}
	grpcServer := grpc.NewServer()
	srv.Register(grpcServer)
	fmt.Fprintf(os.Stderr, "acmatch: serving MatchService on %s\n", *addr)
	return grpcServer.Serve(lis)
}

func runQuery(args []string) error {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	addr := fs.String("addr", "", "MatchService address to dial")
	pattern := fs.String("pattern", "", "pattern expression in patternlang source")
	subject := fs.String("subject", "", "subject expression in patternlang source")
	traceID := fs.String("trace-id", "", "trace id to tag the call with (default: generated)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *addr == "" || *pattern == "" || *subject == "" {
		return fmt.Errorf("query: -addr, -pattern and -subject are required")
	}

	client, err := rpc.Dial(*addr)
	if err != nil {
		return err
	}
	defer client.Close()

	bindings, respTraceID, err := client.Match(context.Background(), *pattern, *subject, *traceID)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "trace: %s\n", respTraceID)
	printBindingLists(os.Stdout, bindings)
	return nil
}

func runReplay(args []string) error {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	filePath := fs.String("file", "", "wire trace file to replay")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *filePath == "" {
		return fmt.Errorf("replay: -file is required")
	}

	records, err := wire.ReadFile(*filePath)
	if err != nil {
		return err
	}
	for i, rec := range records {
		fmt.Fprintf(os.Stdout, "#%d %s  ==  %s\n", i, rec.Pattern, rec.Subject)
		printBindingLists(os.Stdout, rec.Substitutions)
	}
	return nil
}

func loadResolver(path string) (patternlang.ConstraintResolver, error) {
	if path == "" {
		return nil, nil
	}
	cfg, err := ruleset.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("loading ruleset: %w", err)
	}
	reg, err := ruleset.NewRegistry(cfg)
	if err != nil {
		return nil, fmt.Errorf("building ruleset registry: %w", err)
	}
	return reg, nil
}

func printSubstitutions(w *os.File, results []term.Substitution) {
	if len(results) == 0 {
		fmt.Fprintln(w, colorize(w, 90, "no match"))
		return
	}
	for i, s := range results {
		names := s.Names()
		sort.Strings(names)
		parts := make([]string, len(names))
		for j, name := range names {
			value, _ := s.Get(name)
			parts[j] = colorize(w, 36, name) + " = " + value.String()
		}
		fmt.Fprintf(w, "%s %s\n", colorize(w, 32, fmt.Sprintf("[%d]", i)), strings.Join(parts, ", "))
	}
}

func printBindingLists(w *os.File, bindingLists [][]wire.Binding) {
	if len(bindingLists) == 0 {
		fmt.Fprintln(w, colorize(w, 90, "no match"))
		return
	}
	for i, bindings := range bindingLists {
		parts := make([]string, len(bindings))
		for j, b := range bindings {
			parts[j] = colorize(w, 36, b.Name) + " = " + b.Value
		}
		fmt.Fprintf(w, "%s %s\n", colorize(w, 32, fmt.Sprintf("[%d]", i)), strings.Join(parts, ", "))
	}
}

// colorize wraps s in an ANSI foreground-color escape when w is a terminal,
// exactly builtins_term.go's isatty.IsTerminal gate before emitting \033[...m
// codes; piped or redirected output stays plain.
func colorize(w *os.File, code int, s string) string {
	if !isatty.IsTerminal(w.Fd()) && !isatty.IsCygwinTerminal(w.Fd()) {
		return s
	}
	return fmt.Sprintf("\033[%dm%s\033[39m", code, s)
}
