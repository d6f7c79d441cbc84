// Package display renders the device flow prompts and the final report on the
// operator's terminal. The plain presenter writes bare lines, the rich
// presenter adds colour, copies the user code through OSC 52 and offers to open
// the verification page in a browser.
package display
