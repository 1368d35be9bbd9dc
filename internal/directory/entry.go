package directory

import (
	"sort"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// Entry is a read-only view of a directory entry with multi-valued
// attributes. Attribute names are case-insensitive. Entries handed out by a
// Directory are private copies and may be kept for as long as needed.
type Entry struct {
	dn     string
	parsed *ldap.DN
	key    string
	// attrs is keyed by lower-cased attribute name.
	attrs map[string]attribute
}

type attribute struct {
	name   string
	values []string
}

// NewEntry creates an entry from a DN string and its attributes.
func NewEntry(dn string, attrs map[string][]string) (*Entry, error) {
	parsed, err := ldap.ParseDN(dn)
	if err != nil || len(parsed.RDNs) == 0 {
		return nil, ErrInvalidDN
	}

	e := &Entry{
		dn:     strings.TrimSpace(dn),
		parsed: parsed,
		key:    canonicalDN(parsed),
		attrs:  make(map[string]attribute, len(attrs)),
	}
	for name, values := range attrs {
		e.addValues(name, values...)
	}
	return e, nil
}

func (e *Entry) addValues(name string, values ...string) {
	lower := strings.ToLower(name)
	a, ok := e.attrs[lower]
	if !ok {
		a.name = name
	}
	a.values = append(a.values, values...)
	e.attrs[lower] = a
}

// DN returns the distinguished name as it was supplied.
func (e *Entry) DN() string {
	return e.dn
}

// ParsedDN returns the parsed distinguished name. Callers must not modify it.
func (e *Entry) ParsedDN() *ldap.DN {
	return e.parsed
}

// SameDN reports whether other names the same entry, ignoring case and
// insignificant spacing.
func (e *Entry) SameDN(other *Entry) bool {
	return e != nil && other != nil && e.key == other.key
}

// AttributeValue returns the first value of the named attribute.
func (e *Entry) AttributeValue(name string) (string, bool) {
	a, ok := e.attrs[strings.ToLower(name)]
	if !ok || len(a.values) == 0 {
		return "", false
	}
	return a.values[0], true
}

// AttributeValues returns a copy of all values of the named attribute.
func (e *Entry) AttributeValues(name string) []string {
	a, ok := e.attrs[strings.ToLower(name)]
	if !ok || len(a.values) == 0 {
		return nil
	}
	values := make([]string, len(a.values))
	copy(values, a.values)
	return values
}

// HasAttribute returns true if the entry has at least one value for name.
func (e *Entry) HasAttribute(name string) bool {
	a, ok := e.attrs[strings.ToLower(name)]
	return ok && len(a.values) > 0
}

// AttributeNames returns the attribute names in sorted order, using the case
// they were first supplied with.
func (e *Entry) AttributeNames() []string {
	names := make([]string, 0, len(e.attrs))
	for _, a := range e.attrs {
		names = append(names, a.name)
	}
	sort.Strings(names)
	return names
}

// Clone creates a deep copy of the entry.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}

	clone := &Entry{
		dn:     e.dn,
		parsed: cloneDN(e.parsed),
		key:    e.key,
		attrs:  make(map[string]attribute, len(e.attrs)),
	}
	for k, a := range e.attrs {
		values := make([]string, len(a.values))
		copy(values, a.values)
		clone.attrs[k] = attribute{name: a.name, values: values}
	}
	return clone
}

// canonicalDN renders a DN as a lower-cased, escaped key so that DNs
// differing only in case or spacing compare equal.
func canonicalDN(dn *ldap.DN) string {
	if dn == nil {
		return ""
	}
	rdns := make([]string, len(dn.RDNs))
	for i, rdn := range dn.RDNs {
		rdns[i] = canonicalRDN(rdn)
	}
	return strings.Join(rdns, ",")
}

// canonicalRDN lower-cases every value and lets go-ldap escape and order the
// attributes of a multi-valued RDN.
func canonicalRDN(rdn *ldap.RelativeDN) string {
	folded := &ldap.RelativeDN{Attributes: make([]*ldap.AttributeTypeAndValue, len(rdn.Attributes))}
	for i, ava := range rdn.Attributes {
		folded.Attributes[i] = &ldap.AttributeTypeAndValue{
			Type:  strings.TrimSpace(ava.Type),
			Value: strings.ToLower(ava.Value),
		}
	}
	return folded.String()
}

func cloneDN(dn *ldap.DN) *ldap.DN {
	if dn == nil {
		return nil
	}
	out := &ldap.DN{RDNs: make([]*ldap.RelativeDN, len(dn.RDNs))}
	for i, rdn := range dn.RDNs {
		r := &ldap.RelativeDN{Attributes: make([]*ldap.AttributeTypeAndValue, len(rdn.Attributes))}
		for j, ava := range rdn.Attributes {
			r.Attributes[j] = &ldap.AttributeTypeAndValue{Type: ava.Type, Value: ava.Value}
		}
		out.RDNs[i] = r
	}
	return out
}
