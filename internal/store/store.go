// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// store.go - Conversation persistence with JSON files, one per conversation.

package store

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/util"
)

// =============================================================================
// STORED CONVERSATION TYPE
// =============================================================================

// StoredConversation represents a persisted conversation.
type StoredConversation struct {
	// Identity
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	RoleID    string    `json:"role_id"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Turns
	Turns []StoredTurn `json:"turns"`

	// Context tracking
	TokensUsed int `json:"tokens_used,omitempty"`
}

// StoredTurn represents a persisted conversation turn.
type StoredTurn struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"` // "user" or "assistant"
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`

	// Attachment metadata. Raw bytes never hit the history files.
	Attachments []StoredAttachment `json:"attachments,omitempty"`

	// Statistics (for assistant turns)
	TokenCount   int     `json:"token_count,omitempty"`
	DurationMs   int64   `json:"duration_ms,omitempty"`
	TokensPerSec float64 `json:"tokens_per_sec,omitempty"`
	TTFTMs       int64   `json:"ttft_ms,omitempty"`
}

// StoredAttachment records what was attached without its content.
type StoredAttachment struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// ConversationMeta contains metadata for listing conversations.
type ConversationMeta struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	RoleID    string    `json:"role_id"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	TurnCount int       `json:"turn_count"`
	Preview   string    `json:"preview"` // First user turn truncated
}

// =============================================================================
// CONVERSATION STORE
// =============================================================================

// Store handles conversation persistence. One JSON file per
// conversation; files are optionally encrypted at rest.
type Store struct {
	// BaseDir is the directory for storing conversations
	// Default: ~/.parley/history/
	BaseDir string

	// MaxConversations limits stored conversations (0 = unlimited)
	MaxConversations int

	// Crypter encrypts files at rest when non-nil.
	Crypter *Crypter
}

// NewStore creates a store under the user's parley directory.
func NewStore() (*Store, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	return NewStoreWithDir(filepath.Join(homeDir, ".parley", "history"))
}

// NewStoreWithDir creates a store with a custom directory.
func NewStoreWithDir(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, err
	}

	return &Store{
		BaseDir:          baseDir,
		MaxConversations: 200,
	}, nil
}

// =============================================================================
// SAVE OPERATIONS
// =============================================================================

// Save persists a conversation and returns its ID.
func (s *Store) Save(conv *StoredConversation) (string, error) {
	// Generate ID if not set
	if conv.ID == "" {
		conv.ID = generateConversationID()
	}

	// Auto-generate title if not set
	if conv.Title == "" {
		conv.Title = s.generateTitle(conv)
	}

	// Update timestamp
	conv.UpdatedAt = time.Now()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = conv.UpdatedAt
	}

	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return "", err
	}

	if s.Crypter != nil {
		enc, err := s.Crypter.EncryptString(string(data))
		if err != nil {
			return "", err
		}
		data = []byte(enc)
	}

	filePath := s.filePath(conv.ID)
	if err := util.AtomicWriteFile(filePath, data, 0600); err != nil {
		return "", err
	}

	// Enforce max conversations limit
	if s.MaxConversations > 0 {
		s.enforceLimit()
	}

	return conv.ID, nil
}

// generateTitle creates a title from the first user turn.
func (s *Store) generateTitle(conv *StoredConversation) string {
	for _, turn := range conv.Turns {
		if turn.Author == "user" && turn.Text != "" {
			return util.TruncateRunes(util.FirstLine(turn.Text), 50)
		}
	}
	return "New conversation"
}

// enforceLimit removes oldest conversations if over limit.
func (s *Store) enforceLimit() {
	metas, err := s.List()
	if err != nil || len(metas) <= s.MaxConversations {
		return
	}

	// Oldest first
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.Before(metas[j].UpdatedAt)
	})

	excess := len(metas) - s.MaxConversations
	for i := 0; i < excess; i++ {
		s.Delete(metas[i].ID)
	}
}

// =============================================================================
// LOAD OPERATIONS
// =============================================================================

// Load retrieves a conversation by ID.
func (s *Store) Load(id string) (*StoredConversation, error) {
	filePath := s.filePath(id)

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if IsEncrypted(string(data)) {
		if s.Crypter == nil {
			return nil, ErrEncrypted
		}
		plain, err := s.Crypter.DecryptString(string(data))
		if err != nil {
			return nil, err
		}
		data = []byte(plain)
	}

	var conv StoredConversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, err
	}

	return &conv, nil
}

// LoadByIndex loads a conversation by its index in the list (0 = most recent).
func (s *Store) LoadByIndex(index int) (*StoredConversation, error) {
	metas, err := s.List()
	if err != nil {
		return nil, err
	}

	if index < 0 || index >= len(metas) {
		return nil, ErrNotFound
	}

	return s.Load(metas[index].ID)
}

// =============================================================================
// LIST OPERATIONS
// =============================================================================

// List returns all saved conversations (most recent first).
func (s *Store) List() ([]ConversationMeta, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []ConversationMeta{}, nil
		}
		return nil, err
	}

	var metas []ConversationMeta

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		id := strings.TrimSuffix(entry.Name(), ".json")

		// Skip unreadable or corrupted files
		conv, err := s.Load(id)
		if err != nil {
			continue
		}

		metas = append(metas, ConversationMeta{
			ID:        conv.ID,
			Title:     conv.Title,
			RoleID:    conv.RoleID,
			Model:     conv.Model,
			CreatedAt: conv.CreatedAt,
			UpdatedAt: conv.UpdatedAt,
			TurnCount: len(conv.Turns),
			Preview:   conv.GetPreview(),
		})
	}

	// Most recent first
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})

	return metas, nil
}

// Search finds conversations whose title or preview matches a query string.
func (s *Store) Search(query string) ([]ConversationMeta, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(query)
	var results []ConversationMeta

	for _, meta := range all {
		if strings.Contains(strings.ToLower(meta.Title), query) ||
			strings.Contains(strings.ToLower(meta.Preview), query) {
			results = append(results, meta)
		}
	}

	return results, nil
}

// SearchTurns searches conversations by turn content (case-insensitive).
// This is the slow path used when the search index is unavailable.
func (s *Store) SearchTurns(query string) ([]ConversationMeta, error) {
	if query == "" {
		return s.List()
	}

	query = strings.ToLower(query)
	all, err := s.List()
	if err != nil {
		return nil, err
	}

	var results []ConversationMeta

	for _, meta := range all {
		conv, err := s.Load(meta.ID)
		if err != nil {
			continue
		}

		for _, turn := range conv.Turns {
			if strings.Contains(strings.ToLower(turn.Text), query) {
				results = append(results, meta)
				break
			}
		}
	}

	return results, nil
}

// =============================================================================
// DELETE OPERATIONS
// =============================================================================

// Delete removes a conversation by ID.
func (s *Store) Delete(id string) error {
	filePath := s.filePath(id)

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}

	return nil
}

// Clear removes all saved conversations.
func (s *Store) Clear() error {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			os.Remove(filepath.Join(s.BaseDir, entry.Name()))
		}
	}

	return nil
}

// =============================================================================
// TRANSCRIPT BRIDGE
// =============================================================================

// FromTurns builds a storable conversation from transcript turns.
// Streaming turns are skipped; a conversation is only stored settled.
func FromTurns(roleID, modelID string, turns []model.Turn) *StoredConversation {
	conv := &StoredConversation{
		RoleID: roleID,
		Model:  modelID,
	}

	for _, t := range turns {
		if t.IsStreaming || t.Text == "" {
			continue
		}

		st := StoredTurn{
			ID:           t.ID,
			Author:       t.Author.String(),
			Text:         t.Text,
			Timestamp:    t.CreatedAt,
			TokenCount:   t.TokenCount,
			DurationMs:   t.TotalDuration.Milliseconds(),
			TokensPerSec: t.TokensPerSec,
			TTFTMs:       t.TTFT.Milliseconds(),
		}
		for _, att := range t.Attachments {
			st.Attachments = append(st.Attachments, StoredAttachment{
				Name: att.Name,
				Size: att.Size,
			})
		}
		conv.Turns = append(conv.Turns, st)
		conv.TokensUsed += t.TokenCount
	}

	return conv
}

// ToTurns rebuilds transcript turns from a stored conversation.
// Attachment content is gone; only the metadata survives.
func (c *StoredConversation) ToTurns() []model.Turn {
	turns := make([]model.Turn, 0, len(c.Turns))
	for _, st := range c.Turns {
		t := model.Turn{
			ID:           st.ID,
			Author:       model.Author(st.Author),
			CreatedAt:    st.Timestamp,
			Text:         st.Text,
			TokenCount:   st.TokenCount,
			TTFT:         time.Duration(st.TTFTMs) * time.Millisecond,
			TokensPerSec: st.TokensPerSec,
		}
		t.TotalDuration = time.Duration(st.DurationMs) * time.Millisecond
		for _, att := range st.Attachments {
			t.Attachments = append(t.Attachments, model.Attachment{
				Name: att.Name,
				Size: att.Size,
			})
		}
		turns = append(turns, t)
	}
	return turns
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// filePath returns the file path for a conversation ID.
func (s *Store) filePath(id string) string {
	return filepath.Join(s.BaseDir, id+".json")
}

// generateConversationID creates a unique conversation ID.
func generateConversationID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "conv_" + hex.EncodeToString(bytes)
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrNotFound is returned when a conversation doesn't exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &StoreError{Message: "conversation not found"}

// ErrEncrypted is returned when loading an encrypted conversation
// without a configured key.
var ErrEncrypted = &StoreError{Message: "conversation is encrypted: set " + HistoryKeyEnv}

// StoreError represents a persistence error.
// It implements the error interface and can be compared using errors.Is.
type StoreError struct {
	Message string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing store errors.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// =============================================================================
// EXPORT
// =============================================================================

// ExportMarkdown exports the conversation as a Markdown formatted string.
func (c *StoredConversation) ExportMarkdown() string {
	var sb strings.Builder
	sb.WriteString("# " + c.Title + "\n\n")
	sb.WriteString("Created: " + c.CreatedAt.Format(time.RFC3339) + "\n")
	sb.WriteString("Role: " + c.RoleID + " | Model: " + c.Model + "\n\n")
	sb.WriteString("---\n\n")

	for _, turn := range c.Turns {
		label := "**User**"
		if turn.Author == "assistant" {
			label = "**Assistant**"
		}
		sb.WriteString(label + " (" + turn.Timestamp.Format("15:04") + "):\n\n")
		sb.WriteString(turn.Text)
		sb.WriteString("\n\n---\n\n")
	}

	return sb.String()
}

// ExportJSON exports the conversation as a pretty-printed JSON byte array.
func (c *StoredConversation) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// GetPreview returns a preview string from the first user turn.
func (c *StoredConversation) GetPreview() string {
	for _, turn := range c.Turns {
		if turn.Author == "user" && turn.Text != "" {
			return util.TruncateRunes(util.FirstLine(turn.Text), 80)
		}
	}
	return ""
}

// TurnCount returns the number of turns in the conversation.
func (c *StoredConversation) TurnCount() int {
	return len(c.Turns)
}
