// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history maintains a searchable full-text index of saved conversations.
//
// The index is a SQLite database with an FTS5 virtual table over turn
// content, kept in sync with the on-disk conversation files. A file
// watcher picks up saves and deletes incrementally; a full reindex
// rebuilds everything from the store.
//
// # Key Types
//
//   - Index: SQLite-backed search index over a conversation store
//   - SearchResult: One matching turn with a highlighted snippet
//   - FileWatcher: Incremental update source (fsnotify or polling)
//
// # Usage
//
// Open the index next to the history files and build it:
//
//	idx, err := history.NewIndex(st, history.DefaultConfig(st.BaseDir))
//	err = idx.ReindexAll(ctx)
//
// Search as the user types:
//
//	results, err := idx.Search("rate limit", nil)
//	for _, r := range results {
//	    fmt.Printf("%s: %s\n", r.Title, r.Snippet)
//	}
//
// Encrypted history is indexed through the store, so turn content only
// reaches the index when a key is configured. The index itself is
// plaintext; Clear purges it.
package history
