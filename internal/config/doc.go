// Package config loads talker settings from the config file and the
// environment, and reloads them when the file changes.
package config
