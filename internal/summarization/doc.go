// Package summarization condenses transcripts into briefs.
//
// A transcript is split into token-budgeted chunks, each chunk is reduced to
// an outline by the outline_trace prompt, and the joined outline is turned
// into brief.txt by the brief prompt. outline.txt is reused when it already
// exists so a retry after a failed brief request does not pay for the
// outline twice.
package summarization
