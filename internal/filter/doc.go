// Package filter provides LDAP search filter data structures and evaluation
// for the obamem directory.
//
// # Overview
//
// Filters are held as a tree of Filter values covering the RFC 4511 filter
// choices the directory needs for identity lookups: AND, OR, NOT, equality
// and presence. Other choices are rejected with ErrUnsupportedFilter.
//
// # Parsing
//
// Parse accepts RFC 4515 text. The string is compiled to its BER form with
// go-ldap and then walked into a Filter tree:
//
//	f, err := filter.Parse("(&(objectClass=person)(uid=alice))")
//
// FromPacket performs the second step on its own, for filters that arrive
// already encoded.
//
// # Evaluation
//
// Any type with an AttributeValues(name) method can be evaluated:
//
//	evaluator := filter.NewEvaluator()
//	if evaluator.Evaluate(f, entry) {
//	    // entry matches
//	}
//
// All value comparisons are case-insensitive.
package filter
