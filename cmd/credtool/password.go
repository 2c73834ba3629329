package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/term"
)

// readPassword reads a password from passwordFile, or from standard input when
// passwordFile is empty or "-". A terminal on standard input is prompted with
// echo disabled; anything else is read up to the first newline.
func readPassword(sio *stdio, passwordFile string) (string, error) {
	if passwordFile != "" && passwordFile != "-" {
		data, err := os.ReadFile(passwordFile)
		if err != nil {
			return "", errors.Wrap(err, "read password file")
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}

	if f, ok := sio.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(sio.err, "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(sio.err)
		if err != nil {
			return "", errors.Wrap(err, "read password")
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(sio.in).ReadString('\n')
	if err != nil && line == "" {
		return "", errors.Wrap(err, "read password from stdin")
	}
	return strings.TrimRight(line, "\r\n"), nil
}
