// Package credential persists a GitHub access token so that git can use it for
// HTTPS remotes, either as a git-credentials store file or by registering such
// a file as the global credential helper for github.com.
package credential
