// Package logging provides structured logging for the obamem directory server.
//
// # Overview
//
// The package exposes a small Logger interface with leveled, key-value
// structured methods. The implementation is backed by go-hclog and supports:
//
//   - Multiple log levels (debug, info, warn, error)
//   - Text and JSON output formats
//   - Request ID tracking per client connection
//   - Field-based and named sub-loggers
//
// # Creating a Logger
//
//	logger := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "/var/log/obamem.log",
//	})
//
// For tests, use a no-op logger:
//
//	logger := logging.NewNop()
//
// # Structured Logging
//
//	logger.Info("bind successful",
//	    "dn", "uid=test.user,dc=example,dc=com",
//	    "mechanism", "CRAM-MD5",
//	)
//
// # Request ID Tracking
//
//	connLogger := logger.WithRequestID(logging.GenerateRequestID())
//	connLogger.Info("connection established")
package logging
