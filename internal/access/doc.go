// Package access gates password-protected folders with short-lived bearer tokens.
//
// A token is minted after the folder password is verified against its stored Argon2id hash.
// It grants read access to exactly one folder for exactly one user until it expires.
// Only an HMAC digest of each token is persisted.
package access
