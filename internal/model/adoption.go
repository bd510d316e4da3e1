package model

import (
	"strconv"
	"strings"
	"time"

	"github.com/jwalitptl/dogfinder/internal/datastore"
)

// Adoption is an adoption application. Deployments disagree on which contact
// columns exist, so every optional column is nullable.
type Adoption struct {
	ID              int64      `json:"id" db:"id"`
	DogID           *int64     `json:"dog_id" db:"dog_id"`
	ApplicantName   *string    `json:"applicant_name" db:"applicant_name"`
	ApplicantAge    *int       `json:"applicant_age" db:"applicant_age"`
	ApplicantGender *string    `json:"applicant_gender" db:"applicant_gender"`
	Contact         *string    `json:"contact" db:"contact"`
	Email           *string    `json:"email,omitempty" db:"email"`
	ApplicantEmail  *string    `json:"applicant_email,omitempty" db:"applicant_email"`
	Name            *string    `json:"name,omitempty" db:"name"`
	Status          *string    `json:"status" db:"status"`
	CreatedAt       *time.Time `json:"created_at,omitempty" db:"created_at"`
}

func AdoptionFromRow(r datastore.Row) Adoption {
	id, _ := asInt64(r["id"])
	return Adoption{
		ID:              id,
		DogID:           asInt64Ptr(r["dog_id"]),
		ApplicantName:   asStringPtr(r["applicant_name"]),
		ApplicantAge:    asIntPtr(r["applicant_age"]),
		ApplicantGender: asStringPtr(r["applicant_gender"]),
		Contact:         asStringPtr(r["contact"]),
		Email:           asStringPtr(r["email"]),
		ApplicantEmail:  asStringPtr(r["applicant_email"]),
		Name:            asStringPtr(r["name"]),
		Status:          asStringPtr(r["status"]),
		CreatedAt:       asTimePtr(r["created_at"]),
	}
}

func AdoptionsFromRows(rows []datastore.Row) []Adoption {
	out := make([]Adoption, 0, len(rows))
	for _, r := range rows {
		out = append(out, AdoptionFromRow(r))
	}
	return out
}

// StatusText is the stored status, "Pending" when unset.
func (a Adoption) StatusText() string {
	if s := firstNonEmpty(a.Status); s != "" {
		return s
	}
	return ApplicationStatusPending
}

func (a Adoption) StatusClass() StatusClass {
	return ApplicationStatusClass(a.StatusText())
}

// Recipient is where decision notices go: email, then contact, then applicant_email.
func (a Adoption) Recipient() string {
	return firstNonEmpty(a.Email, a.Contact, a.ApplicantEmail)
}

// Applicant is the display name on the notification feed.
func (a Adoption) Applicant() string {
	if s := firstNonEmpty(a.ApplicantName, a.Contact); s != "" {
		return s
	}
	return "—"
}

// AdminName is the applicant column of the admin table.
func (a Adoption) AdminName() string {
	if s := firstNonEmpty(a.ApplicantName, a.Name); s != "" {
		return s
	}
	return "N/A"
}

// AdoptionForm is the public adoption form. Either name or applicant_name may carry the name.
type AdoptionForm struct {
	DogID         *int64 `json:"dog_id" form:"dog_id"`
	Name          string `json:"name" form:"name" binding:"max=200" validate:"max=200"`
	ApplicantName string `json:"applicant_name" form:"applicant_name" binding:"max=200" validate:"max=200"`
	Age           string `json:"age" form:"age"`
	Gender        string `json:"gender" form:"gender" binding:"max=50" validate:"max=50"`
	Contact       string `json:"contact" form:"contact" binding:"max=320" validate:"max=320"`
}

// Row builds the insert payload. An age that does not parse as an integer is stored as null.
func (f AdoptionForm) Row() datastore.Row {
	name := f.Name
	if name == "" {
		name = f.ApplicantName
	}
	row := datastore.Row{
		"dog_id":           nil,
		"applicant_name":   name,
		"applicant_age":    nil,
		"applicant_gender": f.Gender,
		"contact":          f.Contact,
	}
	if f.DogID != nil {
		row["dog_id"] = *f.DogID
	}
	if age, ok := parseLeadingInt(f.Age); ok {
		row["applicant_age"] = age
	}
	return row
}

// parseLeadingInt reads an optional sign and the digits that follow, ignoring
// the rest. Values outside the int4 range of applicant_age are rejected.
func parseLeadingInt(s string) (int, bool) {
	s = strings.TrimLeft(s, " \t\n")
	i := 0
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		i++
	}
	start := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == start {
		return 0, false
	}
	n, err := strconv.ParseInt(s[:i], 10, 32)
	if err != nil {
		return 0, false
	}
	return int(n), true
}
