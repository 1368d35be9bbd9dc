package directory

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/go-multierror"

	"github.com/KilimcininKorOglu/obamem/internal/config"
	"github.com/KilimcininKorOglu/obamem/internal/filter"
	"github.com/KilimcininKorOglu/obamem/internal/password"
)

// Directory errors.
var (
	// ErrInvalidCredentials is returned when authentication fails.
	ErrInvalidCredentials = errors.New("directory: invalid credentials")
	// ErrEntryNotFound is returned when an entry is not found.
	ErrEntryNotFound = errors.New("directory: entry not found")
	// ErrEntryExists is returned when an entry already exists.
	ErrEntryExists = errors.New("directory: entry already exists")
	// ErrInvalidDN is returned when a DN is invalid.
	ErrInvalidDN = errors.New("directory: invalid DN")
	// ErrInvalidEntry is returned when an entry is invalid.
	ErrInvalidEntry = errors.New("directory: invalid entry")
	// ErrInvalidScope is returned for an unknown search scope.
	ErrInvalidScope = errors.New("directory: invalid search scope")
	// ErrNoPassword is returned when an entry has no password attribute.
	ErrNoPassword = errors.New("directory: no password attribute")
	// ErrAccountDisabled is returned when trying to bind with a disabled account.
	ErrAccountDisabled = errors.New("directory: account is disabled")
)

// AccountDisabledAttribute marks an entry that may not authenticate.
const AccountDisabledAttribute = "accountDisabled"

// Lookup is the read side of the directory used by bind processing.
type Lookup interface {
	// GetEntry returns the entry with the given DN, or nil if there is none.
	GetEntry(dn *ldap.DN) (*Entry, error)

	// Search returns the entries under baseDN within scope that match the
	// RFC 4515 filter. An empty baseDN names the root of the tree.
	Search(baseDN string, scope int, filter string) ([]*Entry, error)
}

// Directory is a concurrency-safe in-memory entry store.
type Directory struct {
	mu        sync.RWMutex
	entries   map[string]*Entry
	evaluator *filter.Evaluator
}

// New creates an empty directory.
func New() *Directory {
	return &Directory{
		entries:   make(map[string]*Entry),
		evaluator: filter.NewEvaluator(),
	}
}

// NewFromConfig creates a directory holding the configured base structure
// and entries.
func NewFromConfig(cfg *config.DirectoryConfig) (*Directory, error) {
	d := New()
	if cfg.BaseDN != "" {
		if err := d.Bootstrap(cfg.BaseDN); err != nil {
			return nil, err
		}
	}
	if err := d.Seed(cfg.Entries); err != nil {
		return nil, err
	}
	return d, nil
}

// Bootstrap creates the base entry and the ou=users and ou=groups
// containers below it. Entries that already exist are left alone.
func (d *Directory) Bootstrap(baseDN string) error {
	parsed, err := ldap.ParseDN(baseDN)
	if err != nil || len(parsed.RDNs) == 0 {
		return fmt.Errorf("%w: %s", ErrInvalidDN, baseDN)
	}

	baseAttrs := map[string][]string{
		"objectClass": {"top", "organization", "dcObject"},
	}
	if dc := firstValue(parsed, "dc"); dc != "" {
		baseAttrs["dc"] = []string{dc}
		baseAttrs["o"] = []string{dc}
	}

	entries := []struct {
		dn    string
		attrs map[string][]string
	}{
		{baseDN, baseAttrs},
		{"ou=users," + baseDN, map[string][]string{"objectClass": {"top", "organizationalUnit"}, "ou": {"users"}}},
		{"ou=groups," + baseDN, map[string][]string{"objectClass": {"top", "organizationalUnit"}, "ou": {"groups"}}},
	}

	for _, def := range entries {
		entry, err := NewEntry(def.dn, def.attrs)
		if err != nil {
			return err
		}
		if err := d.Add(entry); err != nil && !errors.Is(err, ErrEntryExists) {
			return err
		}
	}
	return nil
}

// Seed adds the configured entries, reporting every entry that could not be
// added.
func (d *Directory) Seed(entries []config.EntryConfig) error {
	var result *multierror.Error
	for _, ec := range entries {
		entry, err := NewEntry(ec.DN, ec.Attributes)
		if err == nil {
			err = d.Add(entry)
		}
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", ec.DN, err))
		}
	}
	return result.ErrorOrNil()
}

// Add adds a copy of entry to the directory.
func (d *Directory) Add(entry *Entry) error {
	if entry == nil || entry.parsed == nil {
		return ErrInvalidEntry
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.entries[entry.key]; exists {
		return ErrEntryExists
	}
	d.entries[entry.key] = entry.Clone()
	return nil
}

// Delete removes the entry with the given DN.
func (d *Directory) Delete(dn *ldap.DN) error {
	if dn == nil {
		return ErrInvalidDN
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	key := canonicalDN(dn)
	if _, exists := d.entries[key]; !exists {
		return ErrEntryNotFound
	}
	delete(d.entries, key)
	return nil
}

// GetEntry returns a copy of the entry with the given DN. It returns nil and
// no error when there is no such entry.
func (d *Directory) GetEntry(dn *ldap.DN) (*Entry, error) {
	if dn == nil {
		return nil, ErrInvalidDN
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	entry, ok := d.entries[canonicalDN(dn)]
	if !ok {
		return nil, nil
	}
	return entry.Clone(), nil
}

// Search returns copies of the entries under baseDN within scope matching
// filterStr, ordered by DN. scope takes the go-ldap Scope* constants. An
// empty filter matches every entry.
func (d *Directory) Search(baseDN string, scope int, filterStr string) ([]*Entry, error) {
	base, err := parseBase(baseDN)
	if err != nil {
		return nil, err
	}

	var f *filter.Filter
	if strings.TrimSpace(filterStr) != "" {
		if f, err = filter.Parse(filterStr); err != nil {
			return nil, err
		}
	}

	var inScope func(*Entry) bool
	switch scope {
	case ldap.ScopeBaseObject:
		inScope = func(e *Entry) bool { return len(e.parsed.RDNs) == len(base) && isUnder(e, base) }
	case ldap.ScopeSingleLevel:
		inScope = func(e *Entry) bool { return len(e.parsed.RDNs) == len(base)+1 && isUnder(e, base) }
	case ldap.ScopeWholeSubtree:
		inScope = func(e *Entry) bool { return isUnder(e, base) }
	default:
		return nil, ErrInvalidScope
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	var results []*Entry
	for _, entry := range d.entries {
		if !inScope(entry) {
			continue
		}
		if f != nil && !d.evaluator.Evaluate(f, entry) {
			continue
		}
		results = append(results, entry.Clone())
	}

	sort.Slice(results, func(i, j int) bool { return results[i].key < results[j].key })
	return results, nil
}

// Authenticate verifies a simple-bind password for the entry at dn.
func (d *Directory) Authenticate(dn *ldap.DN, plaintext string) error {
	entry, err := d.GetEntry(dn)
	if err != nil {
		return err
	}
	if entry == nil {
		return ErrInvalidCredentials
	}

	if isAccountDisabled(entry) {
		return ErrAccountDisabled
	}

	stored := entry.AttributeValues(password.Attribute)
	if len(stored) == 0 {
		return ErrNoPassword
	}

	// Any one of several stored values may match.
	for _, value := range stored {
		if password.Verify(plaintext, value) == nil {
			return nil
		}
	}
	return ErrInvalidCredentials
}

// Len returns the number of entries.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

// parseBase returns the canonical RDNs of baseDN, most specific first.
func parseBase(baseDN string) ([]string, error) {
	if strings.TrimSpace(baseDN) == "" {
		return nil, nil
	}
	parsed, err := ldap.ParseDN(baseDN)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDN, err)
	}
	rdns := make([]string, len(parsed.RDNs))
	for i, rdn := range parsed.RDNs {
		rdns[i] = canonicalRDN(rdn)
	}
	return rdns, nil
}

// isUnder reports whether e is base itself or one of its descendants.
func isUnder(e *Entry, base []string) bool {
	offset := len(e.parsed.RDNs) - len(base)
	if offset < 0 {
		return false
	}
	for i, rdn := range base {
		if canonicalRDN(e.parsed.RDNs[offset+i]) != rdn {
			return false
		}
	}
	return true
}

func isAccountDisabled(entry *Entry) bool {
	val, ok := entry.AttributeValue(AccountDisabledAttribute)
	if !ok {
		return false
	}
	val = strings.ToLower(val)
	return val == "true" || val == "1" || val == "yes"
}

func firstValue(dn *ldap.DN, attrType string) string {
	for _, rdn := range dn.RDNs {
		for _, ava := range rdn.Attributes {
			if strings.EqualFold(ava.Type, attrType) {
				return ava.Value
			}
		}
	}
	return ""
}
