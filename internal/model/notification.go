package model

import (
	"time"

	"github.com/jwalitptl/dogfinder/internal/datastore"
)

const (
	NotificationTypeAdoption = "adoption"
	NotificationStatusUnread = "unread"
)

// Notification is a row of the optional notifications table.
type Notification struct {
	ID         int64      `json:"id" db:"id"`
	AdoptionID *int64     `json:"adoption_id" db:"adoption_id"`
	Recipient  *string    `json:"recipient" db:"recipient"`
	Message    *string    `json:"message" db:"message"`
	Type       *string    `json:"type" db:"type"`
	Status     *string    `json:"status" db:"status"`
	CreatedAt  *time.Time `json:"created_at,omitempty" db:"created_at"`
}

func NotificationFromRow(r datastore.Row) Notification {
	id, _ := asInt64(r["id"])
	created := asTimePtr(r["created_at"])
	if created == nil {
		created = asTimePtr(r["created"])
	}
	return Notification{
		ID:         id,
		AdoptionID: asInt64Ptr(r["adoption_id"]),
		Recipient:  asStringPtr(r["recipient"]),
		Message:    asStringPtr(r["message"]),
		Type:       asStringPtr(r["type"]),
		Status:     asStringPtr(r["status"]),
		CreatedAt:  created,
	}
}

func NotificationsFromRows(rows []datastore.Row) []Notification {
	out := make([]Notification, 0, len(rows))
	for _, r := range rows {
		out = append(out, NotificationFromRow(r))
	}
	return out
}

// Title is message, then type, then "Notification".
func (n Notification) Title() string {
	if s := firstNonEmpty(n.Message, n.Type); s != "" {
		return s
	}
	return "Notification"
}

func (n Notification) StatusText() string {
	if s := firstNonEmpty(n.Status); s != "" {
		return s
	}
	return NotificationStatusUnread
}

// AddressedTo reports whether a viewer resolved as recipient should see n.
// Unaddressed rows and unknown viewers see everything.
func (n Notification) AddressedTo(recipient string) bool {
	r := Deref(n.Recipient)
	return r == "" || recipient == "" || r == recipient
}
