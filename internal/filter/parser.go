package filter

import (
	"errors"
	"fmt"
	"strings"

	ber "github.com/go-asn1-ber/asn1-ber"
	"github.com/go-ldap/ldap/v3"
)

// Parser errors
var (
	ErrEmptyFilter       = errors.New("filter: empty filter")
	ErrInvalidFilter     = errors.New("filter: invalid filter syntax")
	ErrUnsupportedFilter = errors.New("filter: unsupported filter type")
)

// Parse parses an RFC 4515 filter string into a Filter structure.
// The text is compiled to its wire form with go-ldap and then converted,
// so escaping and syntax rules are exactly those a client library applies.
// Equality, presence, AND, OR and NOT are supported; substring, ordering,
// approximate and extensible matches yield ErrUnsupportedFilter.
func Parse(filterStr string) (*Filter, error) {
	filterStr = strings.TrimSpace(filterStr)
	if filterStr == "" {
		return nil, ErrEmptyFilter
	}

	packet, err := ldap.CompileFilter(filterStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	return FromPacket(packet)
}

// FromPacket converts a filter in its BER wire form into a Filter.
func FromPacket(p *ber.Packet) (*Filter, error) {
	if p == nil || p.ClassType != ber.ClassContext {
		return nil, ErrInvalidFilter
	}

	switch p.Tag {
	case ldap.FilterAnd, ldap.FilterOr:
		children := make([]*Filter, 0, len(p.Children))
		for _, c := range p.Children {
			child, err := FromPacket(c)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		if p.Tag == ldap.FilterAnd {
			return NewAndFilter(children...), nil
		}
		return NewOrFilter(children...), nil

	case ldap.FilterNot:
		if len(p.Children) != 1 {
			return nil, ErrInvalidFilter
		}
		child, err := FromPacket(p.Children[0])
		if err != nil {
			return nil, err
		}
		return NewNotFilter(child), nil

	case ldap.FilterEqualityMatch:
		if len(p.Children) != 2 {
			return nil, ErrInvalidFilter
		}
		attr := packetString(p.Children[0])
		if attr == "" {
			return nil, ErrInvalidFilter
		}
		return NewEqualityFilter(attr, packetString(p.Children[1])), nil

	case ldap.FilterPresent:
		attr := packetString(p)
		if attr == "" {
			return nil, ErrInvalidFilter
		}
		return NewPresentFilter(attr), nil

	default:
		return nil, ErrUnsupportedFilter
	}
}

// packetString returns the primitive content of p.
func packetString(p *ber.Packet) string {
	if p.Data == nil {
		return ""
	}
	return p.Data.String()
}
