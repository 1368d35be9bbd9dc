// Package server provides the LDAP listener: connection handling, request
// dispatching, and response encoding for the bind-focused directory.
//
// # Overview
//
// The server package implements the network layer. It handles:
//
//   - TCP connection management with a connection limit
//   - LDAP message reading and writing with per-operation deadlines
//   - Simple and SASL bind dispatching
//   - The Who am I? extended operation (RFC 4532)
//
// Every other operation is answered with unwillingToPerform; abandon and
// unbind get no response, and unbind closes the connection.
//
// # Usage
//
//	srv, err := server.New(server.Options{
//	    Config:    cfg,
//	    Directory: dir,
//	    Logger:    logger,
//	    Metrics:   recorder,
//	})
//	if err != nil {
//	    return err
//	}
//	err = srv.Serve(ctx) // blocks until ctx is cancelled
//
// # SASL binds
//
// One saslbind.Orchestrator is created per configured mechanism. A SASL
// bind is routed to the orchestrator for its mechanism; unknown mechanisms
// yield authMethodNotSupported. Any bind abandons the connection's
// unfinished exchanges for other mechanisms, and closing a connection
// releases all of them.
//
// # Shutdown
//
// Cancelling the context passed to Serve closes the listener and every open
// connection, waits for connection goroutines to finish, and disposes every
// cached SASL session.
package server
