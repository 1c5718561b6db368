// Package queue persists pipeline entries in SQLite and exposes the stage
// queries the workflow advancers poll.
//
// Each Entry carries four monotonic stage flags (downloaded, transcribed,
// summarized, pushed). A stage query only returns entries whose predecessor
// flags are set, and Update never clears a flag that is already stored, so a
// crash between stages leaves the entry where the next poll will pick it up.
// Duplicate discovery is absorbed by the UNIQUE constraint on webpage_url.
//
// Schema changes bump the version in schema.go; operators delete the database
// to adopt the new schema.
package queue
