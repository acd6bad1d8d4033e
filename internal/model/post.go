// Copyright (c) 2025-2026 MudBeaver Labs
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model contains domain models and constants for the application.
package model

// MaxPostImages is the maximum number of images a blog post may carry.
// Files submitted beyond the cap are ignored, first-come wins.
const MaxPostImages = 4
