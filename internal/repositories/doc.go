// Package repositories provides optional SQLite persistence for the
// bridge's refresh token. Without it, token state lives only in process
// memory and the operator must repeat /login after every restart.
package repositories
