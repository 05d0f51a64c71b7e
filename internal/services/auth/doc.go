// Package auth owns user identity for the planner.
//
// Subpackages:
//   - domain: registration, password checks and session lifecycle
//   - session: signed session tokens
//   - storage: persistence interfaces and the SQLite implementation
package auth
