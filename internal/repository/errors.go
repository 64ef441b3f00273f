// Package repository provides data access over MySQL for screens, campaigns,
// bundles, proposals and slot holds, plus a Redis-backed store for draft
// selections.  The sentinel values defined here allow higher layers such as
// handlers to distinguish between different failure scenarios without
// inspecting raw SQL errors.
package repository

import "errors"

// ErrScreenNotFound is returned when a screen lookup matches no row.
var ErrScreenNotFound = errors.New("screen not found")

// ErrCampaignNotFound is returned when a campaign lookup matches no row.
var ErrCampaignNotFound = errors.New("campaign not found")

// ErrBundleNotFound is returned when a campaign has no assembled bundle or
// a bundle id matches no row.
var ErrBundleNotFound = errors.New("bundle not found")

// ErrProposalNotFound is returned when a proposal lookup matches no row.
var ErrProposalNotFound = errors.New("proposal not found")

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an update cannot be performed because of
// conflicting state. Handlers should translate this into an HTTP 409
// response.
var ErrConflict = errors.New("conflict")
