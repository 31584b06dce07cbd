// Package google provides shared infrastructure for the Google Drive file
// source:
//   - an oauth2.TokenSource built from a user's stored refresh token
//   - a Drive service factory
//   - classification of Google API errors into permanent and transient
//   - rate limiting to respect Google API quotas
//
// # OAuth2 Scopes
//
// The stored refresh token must carry
// https://www.googleapis.com/auth/drive.readonly.
package google
