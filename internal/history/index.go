// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history maintains a searchable full-text index of saved conversations.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/parley/internal/store"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrNotIndexed    = errors.New("history not indexed")
	ErrIndexing      = errors.New("indexing in progress")
	ErrDatabaseError = errors.New("database error")
)

// =============================================================================
// HISTORY INDEX
// =============================================================================

// Index maintains a SQLite FTS index over a conversation store.
//
// Conversations are read through the store, so encrypted history is
// indexed in the clear only when the store carries a key. Note the
// index itself holds plaintext turn content; Clear wipes it.
type Index struct {
	db      *sql.DB
	store   *store.Store
	watcher FileWatcher
	config  *Config
	mu      sync.RWMutex

	// Indexing state
	indexing          bool
	indexingMu        sync.Mutex
	lastIndexed       time.Time
	conversationCount int
	turnCount         int
}

// Config holds index configuration
type Config struct {
	// DatabasePath is where to store the SQLite database
	DatabasePath string

	// EnableWatch enables file watching for incremental updates
	EnableWatch bool

	// WatchDebounce is the debounce duration for file change events
	WatchDebounce time.Duration
}

// DefaultConfig returns the default configuration for a history directory.
// The database lives as a dotfile next to the conversation files, like
// the encryption salt does.
func DefaultConfig(historyDir string) *Config {
	return &Config{
		DatabasePath:  filepath.Join(historyDir, ".index.db"),
		EnableWatch:   true,
		WatchDebounce: 500 * time.Millisecond,
	}
}

// NewIndex opens (or creates) the index database for a conversation store.
func NewIndex(st *store.Store, config *Config) (*Index, error) {
	if st == nil {
		return nil, errors.New("store cannot be nil")
	}
	if config == nil {
		config = DefaultConfig(st.BaseDir)
	}

	dbDir := filepath.Dir(config.DatabasePath)
	if err := os.MkdirAll(dbDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", config.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	idx := &Index{
		db:     db,
		store:  st,
		config: config,
	}

	if err := idx.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	// Load statistics from a previous run. Non-fatal.
	idx.loadStats()

	return idx, nil
}

// initSchema creates the database schema
func (idx *Index) initSchema() error {
	if _, err := idx.db.Exec(Schema); err != nil {
		return err
	}

	if _, err := idx.db.Exec(InitMetadata); err != nil {
		return err
	}

	_, err := idx.db.Exec("UPDATE metadata SET value = ? WHERE key = 'history_dir'", idx.store.BaseDir)
	return err
}

// Close closes the index and releases resources
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.watcher != nil {
		idx.watcher.Close()
		idx.watcher = nil
	}

	if idx.db != nil {
		return idx.db.Close()
	}

	return nil
}

// =============================================================================
// INDEXING
// =============================================================================

// ReindexAll rebuilds the whole index from the conversation store.
// Conversations that cannot be loaded (corrupted, or encrypted without
// a key) are skipped.
func (idx *Index) ReindexAll(ctx context.Context) error {
	idx.indexingMu.Lock()
	if idx.indexing {
		idx.indexingMu.Unlock()
		return ErrIndexing
	}
	idx.indexing = true
	idx.indexingMu.Unlock()

	defer func() {
		idx.indexingMu.Lock()
		idx.indexing = false
		idx.indexingMu.Unlock()
	}()

	startTime := time.Now()

	metas, err := idx.store.List()
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}

	tx, err := idx.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	// Turns first so the FTS delete trigger sees every row
	if _, err := tx.Exec("DELETE FROM turns"); err != nil {
		return fmt.Errorf("failed to clear turns: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM conversations"); err != nil {
		return fmt.Errorf("failed to clear conversations: %w", err)
	}

	var convCount, turnCount int
	for _, meta := range metas {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		conv, err := idx.store.Load(meta.ID)
		if err != nil {
			continue
		}

		n, err := insertConversation(tx, conv)
		if err != nil {
			return fmt.Errorf("failed to index %s: %w", meta.ID, err)
		}
		convCount++
		turnCount += n
	}

	now := time.Now().Unix()
	if _, err := tx.Exec("UPDATE metadata SET value = ? WHERE key = 'last_full_index'", now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	idx.mu.Lock()
	idx.lastIndexed = startTime
	idx.conversationCount = convCount
	idx.turnCount = turnCount
	idx.mu.Unlock()

	if idx.config.EnableWatch {
		idx.startWatcher()
	}

	return nil
}

// insertConversation writes one conversation and its turns, returning
// the number of turns inserted.
func insertConversation(tx *sql.Tx, conv *store.StoredConversation) (int, error) {
	_, err := tx.Exec(`
		INSERT INTO conversations (id, title, role_id, model, created_at, updated_at, turn_count, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, conv.ID, conv.Title, conv.RoleID, conv.Model,
		conv.CreatedAt.Unix(), conv.UpdatedAt.Unix(), len(conv.Turns), time.Now().Unix())
	if err != nil {
		return 0, err
	}

	for i, turn := range conv.Turns {
		_, err := tx.Exec(`
			INSERT INTO turns (conversation_id, turn_index, author, content, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, conv.ID, i, turn.Author, turn.Text, turn.Timestamp.Unix())
		if err != nil {
			return 0, err
		}
	}

	return len(conv.Turns), nil
}

// ReindexConversation incrementally indexes a single conversation by ID.
// A conversation missing from the store is removed from the index.
func (idx *Index) ReindexConversation(id string) error {
	conv, err := idx.store.Load(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return idx.RemoveConversation(id)
		}
		// Unreadable now; keep whatever was indexed before
		return nil
	}

	tx, err := idx.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	if err := deleteConversationTx(tx, id); err != nil {
		return err
	}

	if _, err := insertConversation(tx, conv); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	idx.refreshCounts()
	return nil
}

// RemoveConversation deletes a conversation from the index.
func (idx *Index) RemoveConversation(id string) error {
	tx, err := idx.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	if err := deleteConversationTx(tx, id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	idx.refreshCounts()
	return nil
}

// deleteConversationTx removes one conversation and its turns. Turns go
// first with an explicit DELETE so the FTS sync trigger fires for each
// row; FK cascades do not run triggers reliably.
func deleteConversationTx(tx *sql.Tx, id string) error {
	if _, err := tx.Exec("DELETE FROM turns WHERE conversation_id = ?", id); err != nil {
		return err
	}
	_, err := tx.Exec("DELETE FROM conversations WHERE id = ?", id)
	return err
}

// Clear wipes the entire index. Used when history is cleared, and to
// purge plaintext search data for encrypted conversations.
func (idx *Index) Clear() error {
	tx, err := idx.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM turns"); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM conversations"); err != nil {
		return err
	}
	if _, err := tx.Exec("UPDATE metadata SET value = '0' WHERE key = 'last_full_index'"); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	idx.mu.Lock()
	idx.lastIndexed = time.Time{}
	idx.conversationCount = 0
	idx.turnCount = 0
	idx.mu.Unlock()

	return nil
}

// refreshCounts re-reads row counts after an incremental change.
func (idx *Index) refreshCounts() {
	var convCount, turnCount int
	if err := idx.db.QueryRow("SELECT COUNT(*) FROM conversations").Scan(&convCount); err != nil {
		return
	}
	if err := idx.db.QueryRow("SELECT COUNT(*) FROM turns").Scan(&turnCount); err != nil {
		return
	}

	idx.mu.Lock()
	idx.conversationCount = convCount
	idx.turnCount = turnCount
	idx.mu.Unlock()
}

// loadStats loads statistics from a previous run of the database.
func (idx *Index) loadStats() error {
	var lastIndexed int64
	err := idx.db.QueryRow("SELECT value FROM metadata WHERE key = 'last_full_index'").Scan(&lastIndexed)
	if err != nil {
		return err
	}

	if lastIndexed > 0 {
		idx.lastIndexed = time.Unix(lastIndexed, 0)
	}

	if err := idx.db.QueryRow("SELECT COUNT(*) FROM conversations").Scan(&idx.conversationCount); err != nil {
		return err
	}
	return idx.db.QueryRow("SELECT COUNT(*) FROM turns").Scan(&idx.turnCount)
}

// =============================================================================
// STATISTICS
// =============================================================================

// Stats describes the current index state.
type Stats struct {
	ConversationCount int
	TurnCount         int
	LastIndexed       time.Time
	IsIndexing        bool
	DatabaseSize      int64
}

// Stats returns current index statistics
func (idx *Index) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	idx.indexingMu.Lock()
	indexing := idx.indexing
	idx.indexingMu.Unlock()

	var dbSize int64
	if info, err := os.Stat(idx.config.DatabasePath); err == nil {
		dbSize = info.Size()
	}

	return Stats{
		ConversationCount: idx.conversationCount,
		TurnCount:         idx.turnCount,
		LastIndexed:       idx.lastIndexed,
		IsIndexing:        indexing,
		DatabaseSize:      dbSize,
	}
}

// IsIndexed returns true if a full index has completed.
func (idx *Index) IsIndexed() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return !idx.lastIndexed.IsZero()
}
