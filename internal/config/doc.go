// Package config provides configuration parsing and management for the
// obamem directory server.
//
// # Overview
//
// Configuration is read from a YAML file. Every field carries a default in
// its struct tag, so an empty file yields a runnable server:
//
//	cfg, err := config.LoadConfig("/etc/obamem/config.yaml")
//
// or, without a file:
//
//	cfg := config.DefaultConfig()
//
// # Example
//
//	server:
//	  address: ":10389"
//	  serverName: "localhost"
//	directory:
//	  baseDN: "dc=example,dc=com"
//	  entries:
//	    - dn: "uid=test.user,dc=example,dc=com"
//	      attributes:
//	        objectClass: [top, person, inetOrgPerson]
//	        uid: [test.user]
//	        userPassword: [password]
//	sasl:
//	  # PLAIN and LOGIN start with an empty bind like CRAM-MD5; an
//	  # initial response in the first request is refused.
//	  mechanisms: [CRAM-MD5, PLAIN]
//	  sessionIdleTimeout: 5m
//	  sweepInterval: 1m
//	logging:
//	  level: debug
//
// Unknown keys are rejected. ValidateConfig reports every problem at once.
package config
