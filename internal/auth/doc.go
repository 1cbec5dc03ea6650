// Package auth signs users in to the mobile app.
//
// Credentials live in the users table with Argon2id password hashes in PHC
// format. A successful login records last_login and returns a short-lived
// HS256 JWT; logout records last_logout. Tokens are checked by signature
// only, and only when security.require_auth is on.
//
// On an empty database SeedAdmin creates the first account from
// security.admin, generating a password when none is configured.
package auth
