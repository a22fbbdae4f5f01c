// Package envelope implements envelope encryption for stored files.
//
// A random ContentKey encrypts the payload into a FileBlob. The key itself is encrypted
// under a password-derived key into a KeyBlob, persisted with its Salt. Neither the
// ContentKey nor the password is ever persisted.
//
// Files uploaded in plain mode are stored as-is and never go through the unwrap path.
package envelope
