package model

import "strings"

// Dog statuses written by this service. Stored values are free text.
const (
	DogStatusAvailable = "Available"
	DogStatusAdopted   = "Adopted"
)

// Application statuses written by this service.
const (
	ApplicationStatusPending  = "Pending"
	ApplicationStatusApproved = "Approved"
	ApplicationStatusRejected = "Rejected"
)

// StatusClass is the normalized, lowercase bucket of a free text status.
type StatusClass string

const (
	ClassAvailable StatusClass = "available"
	ClassAdopted   StatusClass = "adopted"
	ClassPending   StatusClass = "pending"
	ClassApproved  StatusClass = "approved"
	ClassRejected  StatusClass = "rejected"
)

// DogStatusClass buckets any status mentioning "adopt" as adopted.
// Blank and unknown statuses count as available.
func DogStatusClass(status string) StatusClass {
	if strings.Contains(strings.ToLower(status), "adopt") {
		return ClassAdopted
	}
	return ClassAvailable
}

// ApplicationStatusClass buckets an application status for display.
func ApplicationStatusClass(status string) StatusClass {
	s := strings.ToLower(status)
	switch {
	case strings.Contains(s, "approve"):
		return ClassApproved
	case strings.Contains(s, "reject"):
		return ClassRejected
	}
	return ClassPending
}

// ToggleDogStatus flips Available to Adopted; anything else becomes Available.
func ToggleDogStatus(current string) string {
	if current == DogStatusAvailable {
		return DogStatusAdopted
	}
	return DogStatusAvailable
}
