// Package digest packs summarized entries into one notification.
//
// The push stage sees its whole batch at once: every entry with a non-empty
// brief becomes one part of the digest, the parts are sent as a single
// message, and the included entries are marked pushed only when delivery
// succeeds. Entries whose brief is missing or blank are skipped and stay
// unpushed.
package digest
