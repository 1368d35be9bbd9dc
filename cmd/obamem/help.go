package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage information to the given writer.
func printUsage(w io.Writer) {
	fmt.Fprint(w, `obamem - In-memory LDAP server with SASL bind support

Usage:
  obamem <command> [options]

Commands:
  serve       Start the LDAP server
  config      Configuration management
  passwd      Hash a password for a userPassword value
  version     Show version information

Use "obamem <command> -h" for more information about a command.
`)
}

// printServeUsage prints the serve command usage.
func printServeUsage(w io.Writer) {
	fmt.Fprint(w, `Start the LDAP server

Usage:
  obamem serve [options]

Options:
  -config string
        Path to configuration file
  -address string
        Listen address (overrides config, default ":10389")
  -log-level string
        Log level: debug, info, warn, error (overrides config)
  -metrics-address string
        Expose Prometheus metrics on this address (overrides config)
  -h, -help
        Show this help message

Environment Variables:
  OBAMEM_SERVER_ADDRESS     Override server listen address
  OBAMEM_SASL_MECHANISMS    Override SASL mechanisms (comma separated)
  OBAMEM_LOGGING_LEVEL      Override log level
  OBAMEM_METRICS_ADDRESS    Enable metrics on this address
`)
}

// printConfigUsage prints the config command usage.
func printConfigUsage(w io.Writer) {
	fmt.Fprint(w, `Configuration management

Usage:
  obamem config <subcommand> [options]

Subcommands:
  validate    Validate a configuration file
  init        Print the default configuration
  show        Print the effective configuration

Use "obamem config <subcommand> -h" for more information.
`)
}

// printPasswdUsage prints the passwd command usage.
func printPasswdUsage(w io.Writer) {
	fmt.Fprint(w, `Hash a password for a userPassword value

Usage:
  obamem passwd [options] < password

The password is read from the first line of standard input.

Options:
  -scheme string
        Hash scheme: SSHA256, SSHA512, SHA256, SHA512, BCRYPT, CLEARTEXT
        (default "SSHA256")
  -h, -help
        Show this help message

Note: SASL binds (CRAM-MD5, PLAIN, LOGIN) need the cleartext password;
entries whose only userPassword values are hashed can use simple binds only.
`)
}

// printVersionUsage prints the version command usage.
func printVersionUsage(w io.Writer) {
	fmt.Fprint(w, `Show version information

Usage:
  obamem version [options]

Options:
  -short
        Show only version number
  -h, -help
        Show this help message
`)
}
