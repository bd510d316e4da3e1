package model

import (
	"time"

	"github.com/jwalitptl/dogfinder/internal/datastore"
)

// Dog is one adoptable dog.
type Dog struct {
	ID          int64      `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Breed       string     `json:"breed" db:"breed"`
	Age         *int       `json:"age" db:"age"`
	Gender      *string    `json:"gender,omitempty" db:"gender"`
	Description *string    `json:"description,omitempty" db:"description"`
	Status      string     `json:"status" db:"status"`
	ImageURL    *string    `json:"image_url,omitempty" db:"image_url"`
	CreatedAt   *time.Time `json:"created_at,omitempty" db:"created_at"`
}

func DogFromRow(r datastore.Row) Dog {
	id, _ := asInt64(r["id"])
	return Dog{
		ID:          id,
		Name:        asString(r["name"]),
		Breed:       asString(r["breed"]),
		Age:         asIntPtr(r["age"]),
		Gender:      asStringPtr(r["gender"]),
		Description: asStringPtr(r["description"]),
		Status:      asString(r["status"]),
		ImageURL:    asStringPtr(r["image_url"]),
		CreatedAt:   asTimePtr(r["created_at"]),
	}
}

func DogsFromRows(rows []datastore.Row) []Dog {
	out := make([]Dog, 0, len(rows))
	for _, r := range rows {
		out = append(out, DogFromRow(r))
	}
	return out
}

func (d Dog) StatusClass() StatusClass {
	return DogStatusClass(d.Status)
}

// CreateDogRequest is the admin "add dog" form.
type CreateDogRequest struct {
	Name        string  `json:"name" form:"name" binding:"required"`
	Breed       string  `json:"breed" form:"breed" binding:"required"`
	Age         *int    `json:"age" form:"age" binding:"required,min=0"`
	Status      string  `json:"status" form:"status" binding:"required"`
	Gender      *string `json:"gender" form:"gender"`
	Description *string `json:"description" form:"description"`
	ImageURL    *string `json:"image_url" form:"image_url" binding:"omitempty,url"`
}

func (r CreateDogRequest) Row() datastore.Row {
	row := datastore.Row{
		"name":   r.Name,
		"breed":  r.Breed,
		"age":    *r.Age,
		"status": r.Status,
	}
	if r.ImageURL != nil && *r.ImageURL != "" {
		row["image_url"] = *r.ImageURL
	}
	if r.Gender != nil {
		row["gender"] = *r.Gender
	}
	if r.Description != nil {
		row["description"] = *r.Description
	}
	return row
}

// UpdateDogRequest changes only the fields present.
type UpdateDogRequest struct {
	Name        *string `json:"name"`
	Breed       *string `json:"breed"`
	Age         *int    `json:"age" binding:"omitempty,min=0"`
	Gender      *string `json:"gender"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	ImageURL    *string `json:"image_url"`
}

func (r UpdateDogRequest) Row() datastore.Row {
	row := datastore.Row{}
	if r.Name != nil {
		row["name"] = *r.Name
	}
	if r.Breed != nil {
		row["breed"] = *r.Breed
	}
	if r.Age != nil {
		row["age"] = *r.Age
	}
	if r.Status != nil {
		row["status"] = *r.Status
	}
	if r.Gender != nil {
		row["gender"] = *r.Gender
	}
	if r.Description != nil {
		row["description"] = *r.Description
	}
	if r.ImageURL != nil {
		row["image_url"] = *r.ImageURL
	}
	return row
}
