package ldap

import (
	"bytes"

	ber "github.com/go-asn1-ber/asn1-ber"
)

// LDAPResult represents the common result structure used in most LDAP responses.
// Per RFC 4511 Section 4.1.9:
//
//	LDAPResult ::= SEQUENCE {
//	    resultCode         ENUMERATED { ... },
//	    matchedDN          LDAPDN,
//	    diagnosticMessage  LDAPString,
//	    referral           [3] Referral OPTIONAL
//	}
type LDAPResult struct {
	// ResultCode indicates the outcome of the operation
	ResultCode ResultCode
	// MatchedDN contains the DN of the last entry matched during processing
	MatchedDN string
	// DiagnosticMessage contains additional diagnostic information
	DiagnosticMessage string
}

// appendTo adds the LDAPResult components to op.
func (r *LDAPResult) appendTo(op *ber.Packet) {
	op.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagEnumerated, int64(r.ResultCode), "resultCode"))
	op.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, r.MatchedDN, "matchedDN"))
	op.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, r.DiagnosticMessage, "diagnosticMessage"))
}

// parseResult reads the LDAPResult components from the start of op.
func parseResult(op *ber.Packet) (LDAPResult, error) {
	var r LDAPResult
	if len(op.Children) < 3 {
		return r, NewParseError("LDAPResult", "expected resultCode, matchedDN and diagnosticMessage", nil)
	}

	code, ok := op.Children[0].Value.(int64)
	if !ok {
		return r, NewParseError("resultCode", "not an ENUMERATED", nil)
	}
	r.ResultCode = ResultCode(code)
	r.MatchedDN = stringData(op.Children[1])
	r.DiagnosticMessage = stringData(op.Children[2])
	return r, nil
}

// NewResponse encodes a response operation that consists of an LDAPResult
// only, such as AddResponse or a generic error reply.
func NewResponse(appTag int, result *LDAPResult) *ber.Packet {
	op := ber.Encode(ber.ClassApplication, ber.TypeConstructed, ber.Tag(appTag), nil, OperationType(appTag).String())
	result.appendTo(op)
	return op
}

// ResponseTag returns the APPLICATION tag of the response paired with a
// request operation, and false for operations without a response.
func ResponseTag(request OperationType) (int, bool) {
	switch request {
	case ApplicationBindRequest:
		return ApplicationBindResponse, true
	case ApplicationSearchRequest:
		return ApplicationSearchResultDone, true
	case ApplicationModifyRequest, ApplicationAddRequest, ApplicationDelRequest,
		ApplicationModifyDNRequest, ApplicationCompareRequest:
		return int(request) + 1, true
	case ApplicationExtendedRequest:
		return ApplicationExtendedResponse, true
	default:
		return 0, false
	}
}

// cloneData returns a copy of the content octets of a primitive element.
func cloneData(p *ber.Packet) []byte {
	if p.Data != nil && p.Data.Len() > 0 {
		return bytes.Clone(p.Data.Bytes())
	}
	if s, ok := p.Value.(string); ok && s != "" {
		return []byte(s)
	}
	return nil
}

// stringData returns the content of a primitive element as a string.
func stringData(p *ber.Packet) string {
	if s, ok := p.Value.(string); ok {
		return s
	}
	if p.Data == nil {
		return ""
	}
	return p.Data.String()
}
