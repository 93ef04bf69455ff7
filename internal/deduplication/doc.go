// Package deduplication detects when the work item being authored is a
// near-duplicate of an open item.
//
// # Overview
//
// A check compares the current title and description against every open item
// (optionally restricted to the current item's type) using bigram similarity.
// When a candidate's combined score meets the configured threshold, the form
// gets an error naming the match; otherwise any previous error is cleared.
//
// # Architecture
//
//  1. Checker.Check loads the similarity policy once and queries open item ids
//  2. The ids are split into chunks of ChunkSize (the batch endpoint's limit)
//  3. ChunkValidator.ValidateChunk fetches and scores one chunk
//  4. race.FirstTrue runs the chunks concurrently and resolves on the first match
//
// A chunk whose batch call answered with a non-2xx status counts as unique.
// A chunk that could not be fetched at all fails the check: the error is
// returned and the form is left as it was.
//
// # Form lifecycle
//
// Observer maps form notifications onto checks. Loads and refreshes check at
// once. Edits to the title, description or type restart a single debounce
// timer (Config.DebounceWait, default 1s).
//
// # Configuration
//
// Engine settings come from Config (see ConfigFromEnv for DUPWATCH_* variables).
// The similarity policy (threshold, compared fields, same-type restriction) lives
// in the settings store and is read on every check.
//
// Custom configuration:
//
//	config := deduplication.DefaultConfig()
//	config.MaxCandidates = 400
//	config.MaxConcurrentChunks = 2
//	checker, err := deduplication.NewChecker(form, client, client, store, config)
package deduplication
