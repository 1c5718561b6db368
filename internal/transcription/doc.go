// Package transcription turns downloaded audio into whisper.txt.
//
// Each entry's audio is probed for its duration, cut into fixed-length mp3
// segments under temporary/<video_id>/<video_id>_cut, and fed segment by
// segment through the worker's whisper Session. The transcript is truncated
// at the start of every attempt and appended per segment, so a retry after a
// crash starts clean. Scratch segments are removed whatever the outcome.
package transcription
