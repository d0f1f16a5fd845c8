// Package timeline merges the marker, word and viseme tracks of a TTS
// response into a single ordered timeline and rewrites visemes spoken inside
// vocal gesture brackets.
package timeline
