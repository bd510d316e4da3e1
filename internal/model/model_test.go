package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dogfinder/internal/datastore"
)

func TestAdoptionFromJSONRow(t *testing.T) {
	var row datastore.Row
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": 42, "dog_id": 7, "applicant_name": "Alex", "applicant_age": 30,
		"contact": "alex@example.com", "status": null,
		"created_at": "2024-05-01T10:00:00.123456+00:00"
	}`), &row))

	a := AdoptionFromRow(row)
	assert.Equal(t, int64(42), a.ID)
	require.NotNil(t, a.DogID)
	assert.Equal(t, int64(7), *a.DogID)
	require.NotNil(t, a.ApplicantAge)
	assert.Equal(t, 30, *a.ApplicantAge)
	assert.Nil(t, a.Status)
	assert.Equal(t, "Pending", a.StatusText())
	assert.Equal(t, ClassPending, a.StatusClass())
	require.NotNil(t, a.CreatedAt)
	assert.Equal(t, 2024, a.CreatedAt.Year())
}

func TestAdoptionFromSQLRow(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	a := AdoptionFromRow(datastore.Row{"id": int64(1), "dog_id": int64(3), "created_at": created, "status": "Approved"})

	assert.Equal(t, int64(3), *a.DogID)
	assert.Equal(t, created, *a.CreatedAt)
	assert.Equal(t, ClassApproved, a.StatusClass())
}

func TestPostgresTimestampWithoutZone(t *testing.T) {
	a := AdoptionFromRow(datastore.Row{"id": 1, "created_at": "2024-05-01T10:00:00.5"})
	require.NotNil(t, a.CreatedAt)
	assert.Equal(t, 10, a.CreatedAt.Hour())
}

func TestAdoptionRecipientOrder(t *testing.T) {
	email, contact, applicant := "e@x.io", "c@x.io", "a@x.io"
	blank := " "

	assert.Equal(t, "e@x.io", Adoption{Email: &email, Contact: &contact, ApplicantEmail: &applicant}.Recipient())
	assert.Equal(t, "c@x.io", Adoption{Email: &blank, Contact: &contact, ApplicantEmail: &applicant}.Recipient())
	assert.Equal(t, "a@x.io", Adoption{ApplicantEmail: &applicant}.Recipient())
	assert.Empty(t, Adoption{}.Recipient())
}

func TestAdoptionApplicant(t *testing.T) {
	name, contact := "Alex", "alex@example.com"
	assert.Equal(t, "Alex", Adoption{ApplicantName: &name, Contact: &contact}.Applicant())
	assert.Equal(t, "alex@example.com", Adoption{Contact: &contact}.Applicant())
	assert.Equal(t, "—", Adoption{}.Applicant())
	assert.Equal(t, "N/A", Adoption{}.AdminName())
}

func TestAdoptionFormRow(t *testing.T) {
	dogID := int64(7)
	row := AdoptionForm{DogID: &dogID, Name: "Alex", Age: "30", Contact: "alex@example.com"}.Row()
	assert.Equal(t, datastore.Row{
		"dog_id":           int64(7),
		"applicant_name":   "Alex",
		"applicant_age":    30,
		"applicant_gender": "",
		"contact":          "alex@example.com",
	}, row)

	row = AdoptionForm{ApplicantName: "Sam", Age: "thirty"}.Row()
	assert.Equal(t, "Sam", row["applicant_name"])
	assert.Nil(t, row["applicant_age"])
	assert.Nil(t, row["dog_id"])

	assert.Equal(t, 12, AdoptionForm{Age: " 12 years"}.Row()["applicant_age"])
	assert.Equal(t, -3, AdoptionForm{Age: "-3"}.Row()["applicant_age"])

	for _, age := range []string{"99999999999999999999", "9223372036854775808", "2147483648"} {
		assert.Nil(t, AdoptionForm{Age: age}.Row()["applicant_age"], "age %q", age)
	}
}

func TestNotificationDefaults(t *testing.T) {
	n := NotificationFromRow(datastore.Row{"id": 1, "created": "2024-05-01T10:00:00Z"})
	assert.Equal(t, "Notification", n.Title())
	assert.Equal(t, "unread", n.StatusText())
	assert.NotNil(t, n.CreatedAt)

	kind := "adoption"
	assert.Equal(t, "adoption", Notification{Type: &kind}.Title())
}

func TestNotificationAddressedTo(t *testing.T) {
	bob := "bob@x.io"
	n := Notification{Recipient: &bob}

	assert.True(t, n.AddressedTo("bob@x.io"))
	assert.True(t, n.AddressedTo(""))
	assert.False(t, n.AddressedTo("alice@x.io"))
	assert.True(t, Notification{}.AddressedTo("alice@x.io"))
}

func TestDogRequests(t *testing.T) {
	age := 3
	row := CreateDogRequest{Name: "Rex", Breed: "Lab", Age: &age, Status: "Available"}.Row()
	assert.NotContains(t, row, "image_url")
	assert.Equal(t, 3, row["age"])

	status := "Adopted"
	assert.Equal(t, datastore.Row{"status": "Adopted"}, UpdateDogRequest{Status: &status}.Row())
}
