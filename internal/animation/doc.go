// Package animation resolves speech markers into gesture and emotion
// commands and runs them on a background worker so that the dispatch loop
// never waits on the animation backend.
package animation
