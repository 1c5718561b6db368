// Package daemon assembles the briefcast pipeline from configuration and
// guards the data directory with a flock so only one process mutates the
// store and artifact tree at a time.
//
// Build wires every collaborator (store, yt-dlp and feed readers, stable-file
// detector, whisper, ffmpeg, the LLM client, the notification sink, the brief
// index, and the retention sweeper) into a workflow.Manager. The long-running
// process and the one-shot CLI commands share it so they run identical stages.
package daemon
