package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/KilimcininKorOglu/obamem/internal/password"
)

// passwdCmd handles the passwd command. It hashes the first line of stdin
// and prints a value suitable for a userPassword attribute.
func passwdCmd(args []string, stdin io.Reader) int {
	fs := flag.NewFlagSet("passwd", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	scheme := fs.String("scheme", "SSHA256", "Hash scheme")
	help := fs.Bool("h", false, "Show help message")
	helpLong := fs.Bool("help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *help || *helpLong {
		printPasswdUsage(os.Stdout)
		return 0
	}

	plaintext, err := readPasswordFromStdin(stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading password: %v\n", err)
		return 1
	}
	if plaintext == "" {
		fmt.Fprintln(os.Stderr, "Error: password must not be empty")
		return 1
	}

	hashed, err := password.Hash(plaintext, schemePrefix(*scheme))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error hashing password: %v\n", err)
		return 1
	}

	fmt.Println(hashed)
	return 0
}

// schemePrefix turns "ssha256" or "{SSHA256}" into "{SSHA256}".
func schemePrefix(name string) string {
	name = strings.ToUpper(strings.Trim(strings.TrimSpace(name), "{}"))
	return "{" + name + "}"
}

// readPasswordFromStdin reads a password from the first line of r.
func readPasswordFromStdin(r io.Reader) (string, error) {
	reader := bufio.NewReader(r)
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
