package model

// DashboardStats are the admin dashboard counters.
type DashboardStats struct {
	TotalDogs            int `json:"total_dogs"`
	AdoptedDogs          int `json:"adopted_dogs"`
	AvailableDogs        int `json:"available_dogs"`
	TotalApplications    int `json:"total_applications"`
	ApprovedApplications int `json:"approved_applications"`
	RejectedApplications int `json:"rejected_applications"`
}
