// Package directory provides the in-memory entry store behind the obamem
// server.
//
// Entries are keyed by a canonical form of their DN, so lookups ignore case
// and insignificant spacing. Every entry returned by GetEntry or Search is a
// private copy that stays valid after the directory changes.
//
//	d, err := directory.NewFromConfig(&cfg.Directory)
//	dn, _ := ldap.ParseDN("uid=alice,ou=users,dc=example,dc=com")
//	entry, err := d.GetEntry(dn)
//	matches, err := d.Search("", ldap.ScopeWholeSubtree, "(uid=alice)")
package directory
