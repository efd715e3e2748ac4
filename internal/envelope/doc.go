// Package envelope defines the message envelope exchanged between parties: an opaque encrypted
// payload plus the name of the scheme that produced it, so the recipient knows how to open it.
//
// Implementations live in subpackages. The rsa package provides raw RSA-OAEP (SHA-256) for short
// messages and JWE (RSA-OAEP-256 key wrapping with A256GCM content encryption) for messages of
// any length.
package envelope
