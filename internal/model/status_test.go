package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDogStatusClass(t *testing.T) {
	tests := []struct {
		status string
		want   StatusClass
	}{
		{"Adopted", ClassAdopted},
		{"Adopted-Pending-Review", ClassAdopted},
		{"ADOPTION IN PROGRESS", ClassAdopted},
		{"Available", ClassAvailable},
		{"", ClassAvailable},
		{"on hold", ClassAvailable},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DogStatusClass(tt.status), tt.status)
	}
}

func TestApplicationStatusClass(t *testing.T) {
	tests := []struct {
		status string
		want   StatusClass
	}{
		{"Approved", ClassApproved},
		{"pre-approved", ClassApproved},
		{"Re-Rejected", ClassRejected},
		{"rejected", ClassRejected},
		{"Pending", ClassPending},
		{"", ClassPending},
		{"under review", ClassPending},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ApplicationStatusClass(tt.status), tt.status)
	}
}

func TestToggleDogStatus(t *testing.T) {
	assert.Equal(t, DogStatusAdopted, ToggleDogStatus("Available"))
	assert.Equal(t, DogStatusAvailable, ToggleDogStatus("Adopted"))
	assert.Equal(t, DogStatusAvailable, ToggleDogStatus("available"))
	assert.Equal(t, DogStatusAvailable, ToggleDogStatus(""))
}
