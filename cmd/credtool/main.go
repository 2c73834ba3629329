// Command credtool generates, verifies and inspects stored credentials and
// exercises the digest backends from the shell.
//
//	credtool genpasswd [--scheme bcrypt] [--config services.yaml]
//	credtool verify '$2b$10$...'
//	credtool inspect '$scrypt$ln=14,r=8,p=1$...'
//	credtool selftest
//	credtool digest --algorithm sha256 [--hmac-key k] [file]
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/pflag"
)

// command is one credtool subcommand.
type command struct {
	Name    string
	Summary string
	Flags   func() *pflag.FlagSet
	Run     func(sio *stdio, args []string) error
}

// stdio is the process's standard streams, replaceable in tests.
type stdio struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

// errMismatch makes verify exit with status 1 without printing an error.
var errMismatch = errors.New("mismatch")

func commands() map[string]*command {
	cmds := []*command{
		genpasswdCommand(),
		verifyCommand(),
		inspectCommand(),
		selftestCommand(),
		digestCommand(),
	}
	m := make(map[string]*command, len(cmds))
	for _, c := range cmds {
		m[c.Name] = c
	}
	return m
}

func main() {
	os.Exit(run(os.Args[1:], &stdio{in: os.Stdin, out: os.Stdout, err: os.Stderr}))
}

func run(args []string, sio *stdio) int {
	cmds := commands()
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		usage(sio.err, cmds)
		return 2
	}

	cmd, ok := cmds[args[0]]
	if !ok {
		fmt.Fprintf(sio.err, "credtool: unknown command %q\n", args[0])
		usage(sio.err, cmds)
		return 2
	}

	fs := cmd.Flags()
	fs.SetOutput(sio.err)
	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	if err := cmd.Run(sio, fs.Args()); err != nil {
		if errors.Is(err, errMismatch) {
			fmt.Fprintln(sio.out, "mismatch")
			return 1
		}
		fmt.Fprintf(sio.err, "credtool %s: %v\n", cmd.Name, err)
		return 1
	}
	return 0
}

func usage(w io.Writer, cmds map[string]*command) {
	names := make([]string, 0, len(cmds))
	for n := range cmds {
		names = append(names, n)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "usage: credtool <command> [flags] [args]")
	fmt.Fprintln(w)
	for _, n := range names {
		fmt.Fprintf(w, "  %-10s %s\n", n, cmds[n].Summary)
	}
}
