// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across packages.
//
//   - WriteFileAtomic: crash-safe file writing with fsync and rename
//   - TruncateWidth, Preview: display-width aware shortening of text
package util
