package ldap

import (
	ber "github.com/go-asn1-ber/asn1-ber"
)

// WhoAmIOID is the "Who am I?" extended operation (RFC 4532).
const WhoAmIOID = "1.3.6.1.4.1.4203.1.11.3"

// ExtendedRequest represents an LDAP Extended Request.
// Per RFC 4511 Section 4.12:
//
//	ExtendedRequest ::= [APPLICATION 23] SEQUENCE {
//	    requestName      [0] LDAPOID,
//	    requestValue     [1] OCTET STRING OPTIONAL
//	}
type ExtendedRequest struct {
	// Name is the OID of the extended operation
	Name string
	// Value is the optional request value
	Value []byte
}

// ParseExtendedRequest parses an ExtendedRequest from its protocolOp packet.
func ParseExtendedRequest(op *ber.Packet) (*ExtendedRequest, error) {
	if op.ClassType != ber.ClassApplication || op.Tag != ApplicationExtendedRequest {
		return nil, ErrUnexpectedOperation
	}

	req := &ExtendedRequest{}
	for _, child := range op.Children {
		if child.ClassType != ber.ClassContext {
			continue
		}
		switch child.Tag {
		case ContextTagRequestName:
			req.Name = stringData(child)
		case ContextTagRequestValue:
			req.Value = cloneData(child)
		}
	}
	if req.Name == "" {
		return nil, NewParseError("requestName", "missing extended operation OID", nil)
	}
	return req, nil
}

// Packet encodes the ExtendedRequest as a protocolOp.
func (r *ExtendedRequest) Packet() *ber.Packet {
	op := ber.Encode(ber.ClassApplication, ber.TypeConstructed, ApplicationExtendedRequest, nil, "Extended Request")
	op.AppendChild(ber.NewString(ber.ClassContext, ber.TypePrimitive, ContextTagRequestName, r.Name, "Request Name"))
	if r.Value != nil {
		op.AppendChild(ber.NewString(ber.ClassContext, ber.TypePrimitive, ContextTagRequestValue, string(r.Value), "Request Value"))
	}
	return op
}

// ExtendedResponse represents an LDAP Extended Response.
// Per RFC 4511 Section 4.12:
//
//	ExtendedResponse ::= [APPLICATION 24] SEQUENCE {
//	    COMPONENTS OF LDAPResult,
//	    responseName     [10] LDAPOID OPTIONAL,
//	    responseValue    [11] OCTET STRING OPTIONAL
//	}
type ExtendedResponse struct {
	LDAPResult
	// Name is the optional response OID
	Name string
	// Value is the optional response value. nil omits the field.
	Value []byte
}

// Packet encodes the ExtendedResponse as a protocolOp.
func (r *ExtendedResponse) Packet() *ber.Packet {
	op := ber.Encode(ber.ClassApplication, ber.TypeConstructed, ApplicationExtendedResponse, nil, "Extended Response")
	r.LDAPResult.appendTo(op)
	if r.Name != "" {
		op.AppendChild(ber.NewString(ber.ClassContext, ber.TypePrimitive, ContextTagResponseName, r.Name, "Response Name"))
	}
	if r.Value != nil {
		op.AppendChild(ber.NewString(ber.ClassContext, ber.TypePrimitive, ContextTagResponseValue, string(r.Value), "Response Value"))
	}
	return op
}

// ParseExtendedResponse parses an ExtendedResponse from its protocolOp packet.
func ParseExtendedResponse(op *ber.Packet) (*ExtendedResponse, error) {
	if op.ClassType != ber.ClassApplication || op.Tag != ApplicationExtendedResponse {
		return nil, ErrUnexpectedOperation
	}
	result, err := parseResult(op)
	if err != nil {
		return nil, err
	}

	resp := &ExtendedResponse{LDAPResult: result}
	for _, child := range op.Children[3:] {
		if child.ClassType != ber.ClassContext {
			continue
		}
		switch child.Tag {
		case ContextTagResponseName:
			resp.Name = stringData(child)
		case ContextTagResponseValue:
			resp.Value = cloneData(child)
			if resp.Value == nil {
				resp.Value = []byte{}
			}
		}
	}
	return resp, nil
}
