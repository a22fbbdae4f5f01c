// Package store persists folders, file records, access tokens and the audit trail.
//
// Tokens and audit entries are create-only. SQLite is the durable backend; Memory serves
// tests and embedding.
package store
