// Package encryption provides the AES-256-GCM engine and the fixed storage blob layout
// shared by file bodies and wrapped keys.
//
// Every blob is IV(12) ‖ AuthTag(16) ‖ Ciphertext and every call binds the same
// associated data, AssociatedData. Nonces are generated inside the engine.
package encryption
