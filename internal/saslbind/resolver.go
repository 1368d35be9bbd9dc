package saslbind

import (
	"fmt"

	"github.com/go-ldap/ldap/v3"

	"github.com/KilimcininKorOglu/obamem/internal/directory"
)

// DefaultUserIDAttribute is the attribute matched by user-id identifiers.
const DefaultUserIDAttribute = "uid"

// Resolver maps authentication identifiers to directory entries.
type Resolver struct {
	dir             directory.Lookup
	userIDAttribute string
}

// NewResolver creates a resolver over dir. An empty userIDAttribute selects
// DefaultUserIDAttribute.
func NewResolver(dir directory.Lookup, userIDAttribute string) *Resolver {
	if userIDAttribute == "" {
		userIDAttribute = DefaultUserIDAttribute
	}
	return &Resolver{dir: dir, userIDAttribute: userIDAttribute}
}

// Resolve returns the single entry named by raw along with the parsed
// identifier. A string that parses as a DN is only ever looked up by DN; the
// user-id search is used for "u:" identifiers and for unprefixed strings
// that are not DNs.
func (r *Resolver) Resolve(raw string) (*directory.Entry, *Identifier, error) {
	id := ParseIdentifier(raw)

	switch {
	case id.Kind == ExplicitDN && id.Err != nil:
		return nil, id, fmt.Errorf("%w: %v", ErrMalformedIdentifier, id.Err)
	case id.DN != nil:
		entry, err := r.byDN(id.DN)
		return entry, id, err
	default:
		entry, err := r.byUserID(id.Value)
		return entry, id, err
	}
}

func (r *Resolver) byDN(dn *ldap.DN) (*directory.Entry, error) {
	entry, err := r.dir.GetEntry(dn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	if entry == nil {
		return nil, ErrEntryNotFound
	}
	return entry, nil
}

func (r *Resolver) byUserID(value string) (*directory.Entry, error) {
	if value == "" {
		return nil, ErrMalformedIdentifier
	}

	f := fmt.Sprintf("(%s=%s)", r.userIDAttribute, ldap.EscapeFilter(value))
	entries, err := r.dir.Search("", ldap.ScopeWholeSubtree, f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}

	switch len(entries) {
	case 0:
		return nil, ErrEntryNotFound
	case 1:
		return entries[0], nil
	default:
		return nil, fmt.Errorf("%w: %d entries", ErrAmbiguousIdentifier, len(entries))
	}
}
