// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history maintains a searchable full-text index of saved conversations.
package history

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// SEARCH RESULT
// =============================================================================

// SearchResult is one matching turn.
type SearchResult struct {
	ConversationID string
	Title          string
	RoleID         string
	Model          string
	UpdatedAt      time.Time

	TurnIndex int
	Author    string
	Snippet   string  // Matching fragment with [..] highlights
	Rank      float64 // BM25 relevance, smaller is better
}

// SearchOptions configures search behavior
type SearchOptions struct {
	// MaxResults limits the number of results (0 = unlimited)
	MaxResults int

	// RoleID filters by the role the conversation was held under
	RoleID string

	// Author filters by turn author ("user" or "assistant")
	Author string
}

// DefaultSearchOptions returns default search options
func DefaultSearchOptions() *SearchOptions {
	return &SearchOptions{
		MaxResults: 20,
	}
}

// =============================================================================
// SEARCH METHODS
// =============================================================================

// Search finds turns matching the query using full-text search. The
// last term matches by prefix, so a query grows results as it is typed.
func (idx *Index) Search(query string, options *SearchOptions) ([]SearchResult, error) {
	if !idx.IsIndexed() {
		return nil, ErrNotIndexed
	}

	if options == nil {
		options = DefaultSearchOptions()
	}

	ftsQuery := buildFTSQuery(query)
	if ftsQuery == "" {
		return []SearchResult{}, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	sqlQuery := `
		SELECT
			c.id, c.title, c.role_id, c.model, c.updated_at,
			t.turn_index, t.author,
			snippet(turns_fts, 0, '[', ']', '...', 12),
			rank
		FROM turns_fts
		JOIN turns t ON t.id = turns_fts.rowid
		JOIN conversations c ON c.id = t.conversation_id
		WHERE turns_fts MATCH ?
	`

	args := []interface{}{ftsQuery}

	if options.RoleID != "" {
		sqlQuery += " AND c.role_id = ?"
		args = append(args, options.RoleID)
	}
	if options.Author != "" {
		sqlQuery += " AND t.author = ?"
		args = append(args, options.Author)
	}

	// BM25 rank ascends from best match
	sqlQuery += " ORDER BY rank"

	if options.MaxResults > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, options.MaxResults)
	}

	rows, err := idx.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var result SearchResult
		var updatedAt int64

		err := rows.Scan(
			&result.ConversationID,
			&result.Title,
			&result.RoleID,
			&result.Model,
			&updatedAt,
			&result.TurnIndex,
			&result.Author,
			&result.Snippet,
			&result.Rank,
		)
		if err != nil {
			continue
		}

		result.UpdatedAt = time.Unix(updatedAt, 0)
		results = append(results, result)
	}

	return results, rows.Err()
}

// SearchTitles finds conversations whose title contains the given text.
func (idx *Index) SearchTitles(text string, limit int) ([]SearchResult, error) {
	if !idx.IsIndexed() {
		return nil, ErrNotIndexed
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	sqlQuery := `
		SELECT id, title, role_id, model, updated_at
		FROM conversations
		WHERE title LIKE ? ESCAPE '\'
		ORDER BY updated_at DESC
	`

	args := []interface{}{"%" + escapeLike(text) + "%"}
	if limit > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := idx.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var result SearchResult
		var updatedAt int64

		if err := rows.Scan(&result.ConversationID, &result.Title,
			&result.RoleID, &result.Model, &updatedAt); err != nil {
			continue
		}

		result.UpdatedAt = time.Unix(updatedAt, 0)
		result.Snippet = result.Title
		results = append(results, result)
	}

	return results, rows.Err()
}

// =============================================================================
// QUERY BUILDING
// =============================================================================

// buildFTSQuery turns free text into a safe FTS5 query. Every term is
// double-quoted so user input cannot inject FTS operators; terms are
// implicitly ANDed and the final term matches by prefix.
func buildFTSQuery(query string) string {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return ""
	}

	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.ReplaceAll(term, `"`, `""`)
		quoted = append(quoted, `"`+term+`"`)
	}

	// Prefix-match the final term
	quoted[len(quoted)-1] += "*"

	return strings.Join(quoted, " ")
}

// escapeLike escapes LIKE wildcards in user input.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
