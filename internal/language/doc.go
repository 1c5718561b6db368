// Package language normalizes the language labels that reach the pipeline:
// yt-dlp and feed metadata on the way in, and the configured reading
// language on the way out.
//
// WhisperHint maps source metadata onto the small set of hints passed to the
// transcriber; anything it does not recognize means auto-detect. IsEnglish
// decides whether the digest needs translating. Display names come from
// golang.org/x/text so unusual tags still render readably.
package language
