// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package role defines the static catalog of assistant roles.
//
// A role pairs a system prompt with a default model and a history policy:
// multi-turn roles accumulate conversation context, stateless roles treat
// every send as independent. The catalog is fixed at process start; lookups
// never mutate it.
package role
