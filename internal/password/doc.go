// Package password verifies and hashes values stored in the userPassword
// attribute.
//
// Stored values carry an RFC 3112 style scheme prefix:
//
//	{SHA256}, {SSHA256}, {SHA512}, {SSHA512}, {BCRYPT}, {CLEARTEXT}
//
// A value without a prefix is treated as cleartext. Simple binds use Verify.
// SASL challenge-response mechanisms such as CRAM-MD5 need the shared secret
// itself and use Cleartext, which refuses hashed values.
package password
