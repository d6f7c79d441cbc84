// Package auth runs the GitHub OAuth device authorization flow: it requests a
// device code, presents the user code to the operator, and polls the token
// endpoint until the user authorizes, declines, or the code expires.
package auth
