// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// The transcribe stage uses Prober.Duration to decide how many segments an
// audio file is cut into. Commands run through services.CommandRunner so
// tests feed canned JSON instead of invoking the binary.
package ffprobe
