// Package audio plays the materialized speech audio. Player drives the
// sound device through oto/v3; MockPlayer simulates playback for tests and
// muted runs. Both play a file path and stop as soon as their context is
// cancelled.
package audio
