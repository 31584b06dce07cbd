// Package httpapi serves the drive routes over HTTP with gin. Every route
// under /drive requires a bearer JWT whose "id" claim names the user.
package httpapi
