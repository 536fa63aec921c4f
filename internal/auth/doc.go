// Package auth hashes passwords with bcrypt and issues the HS256 JWT access
// tokens that identify users and admins.
package auth
