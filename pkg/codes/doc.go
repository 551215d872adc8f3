// Package codes stores short-lived verification codes keyed by an external
// reference such as an email address.
//
// Each key holds one code. A new Store call for the same key replaces the
// code and restarts the window. Codes expire DefaultTTL after they were
// stored: Get reports a code as present while now < expiresAt.
//
// MemoryStore is process-local and loses codes on restart. RedisStore shares
// codes between instances.
package codes
