// Package whisper runs the openai-whisper CLI on audio segments.
//
// A Service hands out Sessions. Each transcribe worker owns one Session for
// its lifetime: the session keeps a private scratch directory for the CLI's
// output files, so concurrent workers never read each other's results.
package whisper
