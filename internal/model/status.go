// Copyright (c) 2025-2026 MudBeaver Labs
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Internship application statuses
const (
	ApplicationStatusPending  = "pending"
	ApplicationStatusApproved = "approved"
	ApplicationStatusRejected = "rejected"
)

// Requirement statuses
const (
	RequirementStatusNew       = "new"
	RequirementStatusContacted = "contacted"
	RequirementStatusQuoted    = "quoted"
	RequirementStatusClosed    = "closed"
)

// Contact message statuses
const (
	ContactStatusNew     = "new"
	ContactStatusRead    = "read"
	ContactStatusReplied = "replied"
)

// ValidApplicationStatuses returns the closed set of internship application statuses.
func ValidApplicationStatuses() []string {
	return []string{ApplicationStatusPending, ApplicationStatusApproved, ApplicationStatusRejected}
}

// ValidRequirementStatuses returns the closed set of requirement statuses.
func ValidRequirementStatuses() []string {
	return []string{RequirementStatusNew, RequirementStatusContacted, RequirementStatusQuoted, RequirementStatusClosed}
}

// ValidContactStatuses returns the closed set of contact message statuses.
func ValidContactStatuses() []string {
	return []string{ContactStatusNew, ContactStatusRead, ContactStatusReplied}
}

// IsValidApplicationStatus checks a status against the application enum.
func IsValidApplicationStatus(status string) bool {
	return contains(ValidApplicationStatuses(), status)
}

// IsValidRequirementStatus checks a status against the requirement enum.
func IsValidRequirementStatus(status string) bool {
	return contains(ValidRequirementStatuses(), status)
}

// IsValidContactStatus checks a status against the contact message enum.
func IsValidContactStatus(status string) bool {
	return contains(ValidContactStatuses(), status)
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
