// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shield

import "errors"

// Common shield errors.
var (
	// ErrClosed is returned by operations on a cleaned-up Handler.
	ErrClosed = errors.New("shield: handler closed")

	// ErrNotInitialized is returned when Initialize has not succeeded.
	ErrNotInitialized = errors.New("shield: not initialized")
)
