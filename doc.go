// Package contacts implements a multi-tenant contact management backend:
// credential lifecycle (registration, email verification, login, logout),
// bearer token authentication with a single active session per user, and
// owner-scoped access to contact records.
package contacts
