// Package engines contains TTS vendor clients that implement
// ttypes.Synthesizer. Mock produces silent audio with estimated timings and
// needs nothing installed; Piper runs the offline piper binary; Fallback
// switches from a failing vendor to a spare one.
// Neither vendor reports sub-event timings, so both estimate word, viseme
// and marker offsets from the text.
package engines
