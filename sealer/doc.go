// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package sealer implements authenticated encryption of ballot payloads.

# Envelope Encryption

Every call to Seal generates a fresh 256-bit data key and a fresh 96-bit IV,
encrypts the JSON payload with AES-256-GCM, and wraps the data key with
XChaCha20-Poly1305 under a key derived (HKDF-SHA256) from the master key:

	s, err := sealer.New(masterKey)
	env, err := s.Seal(payload)   // {ciphertext, iv, auth_tag, key}
	err = s.Open(env, &payload)

The wrapped key travels with the ciphertext, so rows stay self-contained, but
a database dump alone is not enough to read ballots.

# Integrity

Open authenticates both the wrapped key and the payload before releasing any
plaintext. Altering any byte of the ciphertext, IV, tag or wrapped key yields
an error matching ErrIntegrity.
*/
package sealer
