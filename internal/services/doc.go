// Package services defines shared utilities consumed by the stage processors
// and the external integrations they call.
//
// Key responsibilities:
//   - Context helpers that stamp entry IDs, stage names, and run identifiers
//     for logging.
//   - Structured error markers plus the Wrap helper so advancers can classify
//     failures (transient vs permanent) without string matching.
//   - A CommandRunner seam that makes external tool invocations testable.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
