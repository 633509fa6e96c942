// Package sessionstore persists the backend session between runs.
//
// A session is the set of cookies the backend issued (session id, CSRF token),
// serialized with Encode and read back with Decode. Four backends trade off
// security and deployment:
//   - File: local file with atomic writes and 0600 permissions
//   - Env: read-only environment variable (e.g. a session exported from a browser)
//   - Keyring: OS-native credential storage (macOS Keychain, Windows Credential Manager, etc.)
//   - Memory: process-local, nothing survives the process
//
// Logging in requires writable storage; env storage is only useful for an
// already established session.
package sessionstore
