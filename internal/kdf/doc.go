// Package kdf turns passwords into AEAD keys and folder-password hashes.
//
// Argon2id is the only derivation profile. Wrap and unwrap must use the same Params,
// otherwise every wrapped key becomes unrecoverable.
package kdf
