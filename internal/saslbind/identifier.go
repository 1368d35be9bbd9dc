package saslbind

import (
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// Identifier prefixes.
const (
	DNPrefix     = "dn:"
	UserIDPrefix = "u:"
)

// IdentifierKind tells how an authentication identifier was written.
type IdentifierKind int

const (
	// ExplicitDN is a "dn:" identifier.
	ExplicitDN IdentifierKind = iota
	// UserID is a "u:" identifier.
	UserID
	// Ambiguous is an identifier without a recognized prefix.
	Ambiguous
)

// String returns the string representation of the IdentifierKind.
func (k IdentifierKind) String() string {
	switch k {
	case ExplicitDN:
		return "dn"
	case UserID:
		return "u"
	case Ambiguous:
		return "ambiguous"
	default:
		return "unknown"
	}
}

// Identifier is a parsed authentication identifier.
//
// For ExplicitDN, DN is set, or Err holds the parse failure. For UserID,
// Value holds the user id. For Ambiguous, DN is set when the raw text parses
// as a DN and Value holds the raw text otherwise.
type Identifier struct {
	Kind  IdentifierKind
	Raw   string
	DN    *ldap.DN
	Value string
	Err   error
}

// ParseIdentifier classifies raw. The prefix checks happen in a fixed order:
// "dn:", then "u:", then an attempt to read the whole string as a DN.
func ParseIdentifier(raw string) *Identifier {
	switch {
	case strings.HasPrefix(raw, DNPrefix):
		id := &Identifier{Kind: ExplicitDN, Raw: raw}
		dn, err := ldap.ParseDN(raw[len(DNPrefix):])
		if err == nil && len(dn.RDNs) == 0 {
			err = ErrMalformedIdentifier
		}
		if err != nil {
			id.Err = err
			return id
		}
		id.DN = dn
		return id

	case strings.HasPrefix(raw, UserIDPrefix):
		return &Identifier{Kind: UserID, Raw: raw, Value: raw[len(UserIDPrefix):]}

	default:
		id := &Identifier{Kind: Ambiguous, Raw: raw}
		if dn, err := ldap.ParseDN(raw); err == nil && len(dn.RDNs) > 0 {
			id.DN = dn
		} else {
			id.Value = raw
		}
		return id
	}
}

// String returns the identifier as the client wrote it.
func (id *Identifier) String() string {
	return id.Raw
}
