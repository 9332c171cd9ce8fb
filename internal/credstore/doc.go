// Package credstore provides persistent storage for the access/refresh
// credential pair.
//
// Supports three storage backends with different deployment tradeoffs:
//   - File: local filesystem storage with atomic writes and secure permissions
//   - Keyring: OS-native credential storage (macOS Keychain, Windows Credential
//     Manager, Linux Secret Service)
//   - Memory: process-lifetime storage for session-only use and tests
//
// Every backend stores the pair as a single record, so the two credentials
// are always written and removed together.
package credstore
