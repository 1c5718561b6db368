// Command briefcast downloads, transcribes, summarizes, and pushes digests of
// feeds and channels on a schedule.
//
// "briefcast run" holds the pipeline in the foreground; "start" and "stop"
// manage it as a detached process. "once" runs a single task immediately, and
// the remaining commands inspect the queue, the brief index, and the logs.
package main
