package notification

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/jwalitptl/dogfinder/internal/model"
)

// Replacement texts shown in place of the list.
const (
	MessageEmpty       = "No notifications yet."
	MessageSignIn      = "No notifications available. Please sign in to view your notifications."
	messageUnavailable = "Unable to load notifications."
)

// Pill classes.
const (
	PillApproved = "status-approved"
	PillRejected = "status-rejected"
	PillPending  = "status-pending"
)

// Feed sources, also used as metric labels.
const (
	SourceNotifications = "notifications"
	SourceAdoptions     = "adoptions"
	SourceNone          = "none"
)

const dateLayout = "Jan 2, 2006, 3:04 PM"

// Item is one rendered notification card.
type Item struct {
	Title     string     `json:"title"`
	Meta      string     `json:"meta"`
	Status    string     `json:"status"`
	PillClass string     `json:"pill_class"`
	ImageURL  string     `json:"image_url,omitempty"`
	ImageAlt  string     `json:"image_alt,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Feed is a loaded notification list. When Message is set it replaces the list.
type Feed struct {
	Source  string `json:"source"`
	Items   []Item `json:"items"`
	Count   int    `json:"count"`
	Message string `json:"message,omitempty"`
}

func UnavailableMessage(err error) string {
	return messageUnavailable + " " + err.Error()
}

var tmpl = template.Must(template.New("notifications").Parse(`
{{- define "item" -}}
<li class="notif-card">
  <img class="notif-avatar" src="{{.ImageURL}}" alt="{{.ImageAlt}}"{{if not .ImageURL}} style="display:none"{{end}} />
  <div class="notif-body">
    <div class="notif-title">{{.Title}}</div>
    <div class="notif-meta">{{.Meta}}</div>
  </div>
  <div class="notif-status"><div class="status-pill {{.PillClass}}">{{.Status}}</div></div>
</li>
{{- end -}}
{{- define "list" -}}
{{- if .Message -}}
<li class="notif-card">{{.Message}}</li>
{{- else -}}
{{- range .Items}}{{template "item" .}}{{end -}}
{{- end -}}
{{- end -}}
`))

// RenderList writes the feed as <li> cards, or its replacement message.
func RenderList(w io.Writer, f Feed) error {
	return tmpl.ExecuteTemplate(w, "list", f)
}

// RenderItem writes a single card.
func RenderItem(w io.Writer, it Item) error {
	return tmpl.ExecuteTemplate(w, "item", it)
}

func renderString(fn func(io.Writer) error) (string, error) {
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// CountText is the badge value.
func (f Feed) CountText() string {
	if f.Message != "" {
		return "0"
	}
	return fmt.Sprint(f.Count)
}

// NotificationItem renders a dedicated notification row. These always carry the pending pill.
func NotificationItem(n model.Notification) Item {
	return Item{
		Title:     n.Title(),
		Meta:      meta(model.Deref(n.Recipient), n.CreatedAt),
		Status:    n.StatusText(),
		PillClass: PillPending,
		CreatedAt: n.CreatedAt,
	}
}

// AdoptionItem renders an application as a notification, with its dog's picture when known.
func AdoptionItem(a model.Adoption, dog *model.Dog) Item {
	status := a.StatusText()
	it := Item{
		Title:     AdoptionMessage(a.DogID, status),
		Meta:      meta("Applicant: "+a.Applicant(), a.CreatedAt),
		Status:    status,
		PillClass: PillClass(status),
		CreatedAt: a.CreatedAt,
	}
	if dog != nil {
		it.ImageURL = model.Deref(dog.ImageURL)
		it.ImageAlt = dog.Name
	}
	return it
}

// AdoptionMessage is the sentence used both for synthesized feed entries and for decision notices.
func AdoptionMessage(dogID *int64, status string) string {
	base := "Your adoption request"
	if dogID != nil && *dogID != 0 {
		base += fmt.Sprintf(" (dog #%d)", *dogID)
	}
	switch model.ApplicationStatusClass(status) {
	case model.ClassApproved:
		return base + " has been Approved."
	case model.ClassRejected:
		return base + " has been Rejected."
	}
	return base + " is " + status + "."
}

func PillClass(status string) string {
	switch model.ApplicationStatusClass(status) {
	case model.ClassApproved:
		return PillApproved
	case model.ClassRejected:
		return PillRejected
	}
	return PillPending
}

func meta(prefix string, at *time.Time) string {
	date := ""
	if at != nil {
		date = at.Format(dateLayout)
	}
	return prefix + " • " + date
}
