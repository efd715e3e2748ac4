// Package rsa implements the envelope interfaces with RSA keys. Two schemes are provided:
//
//   - RSA-OAEP-256: the message is encrypted directly with RSA-OAEP, using SHA-256 as both the
//     label hash and the MGF1 hash, and an empty label. The ciphertext is exactly as long as the
//     key's modulus, and the message must fit in a single block.
//   - JWE-RSA: JWE Compact Serialization with RSA-OAEP-256 key wrapping and A256GCM content
//     encryption, for messages too long for a single RSA block.
package rsa
