// Package audit defines the append-only security audit trail written for every
// key wrap, key unwrap, folder unlock and token verification.
package audit
