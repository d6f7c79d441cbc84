// Package cmd implements the gh-scoped-creds command tree. The root command
// runs the GitHub device flow and stores the resulting token for git.
package cmd
