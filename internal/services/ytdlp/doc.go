// Package ytdlp wraps the yt-dlp CLI.
//
// FetchEntries enumerates the newest items of a channel or playlist without
// downloading them and normalizes each into a queue.Candidate. DownloadAudio
// extracts the best audio stream of one page to mp3. Both run through
// services.CommandRunner so tests substitute canned JSON.
package ytdlp
