// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store persists conversations as one JSON file each under the
// history directory, with metadata listing, previews, substring search,
// Markdown/JSON export, and a capped retention limit.
//
// When a Crypter is attached, files are written encrypted (AES-256-GCM,
// key derived from a passphrase) and transparently decrypted on load.
// Plaintext files written before encryption was enabled keep loading;
// the format is sniffed per file.
//
// FromTurns and ToTurns bridge the live transcript to the stored form.
// Attachment bytes are dropped at that boundary: only name and size are
// persisted.
package store
