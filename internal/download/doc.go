// Package download implements the front of the pipeline: the Fetcher turns
// configured sources into stored entries, and the Processor extracts audio
// for entries that have not been downloaded yet.
//
// Sources are read through the SourceReader capability. Plain URLs go to
// yt-dlp; "feed:" sources go to the RSS/Atom reader. Audio extraction goes
// through AudioDownloader. A failed download is still committed so the
// download_error column explains what happened; the entry stays at the
// download stage and is retried on the next run.
package download
