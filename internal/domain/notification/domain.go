package notification

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	DefaultTitle = "Beacon"
	DefaultBody  = "New notification received"
)

type Status string

const (
	StatusNone     Status = ""
	StatusNew      Status = "new"
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ValidStatuses is the set accepted by the templated test endpoint.
var ValidStatuses = []Status{StatusNew, StatusPending, StatusApproved, StatusRejected}

type ErrUnknownStatus struct {
	Got string
}

func (e *ErrUnknownStatus) Error() string {
	return fmt.Sprintf("notification: unknown status %q (valid: new, pending, approved, rejected)", e.Got)
}

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusNew, StatusPending, StatusApproved, StatusRejected:
		return Status(s), nil
	}
	return StatusNone, &ErrUnknownStatus{Got: s}
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

type Payload struct {
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Status    Status         `json:"status,omitempty"`
	Priority  Priority       `json:"priority,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// Normalize fills empty title/body with the defaults. Every payload is
// normalized before delivery.
func (p *Payload) Normalize() {
	if p.Title == "" {
		p.Title = DefaultTitle
	}
	if p.Body == "" {
		p.Body = DefaultBody
	}
}

// Encode serializes the payload once; the same bytes go to every target.
func (p *Payload) Encode() ([]byte, error) {
	cp := *p
	cp.Normalize()
	return json.Marshal(&cp)
}

// Heartbeat is the canned payload broadcast by the heartbeat trigger.
func Heartbeat(now time.Time) Payload {
	return Payload{
		Title:     "Heartbeat",
		Body:      "This is a heartbeat notification to all devices.",
		Priority:  PriorityNormal,
		Timestamp: now,
	}
}

type template struct {
	title    string
	body     string
	priority Priority
}

var templates = map[Status]template{
	StatusNew:      {title: "New request", body: "A new request is waiting for review.", priority: PriorityHigh},
	StatusPending:  {title: "Request pending", body: "A request is pending your approval.", priority: PriorityHigh},
	StatusApproved: {title: "Request approved", body: "Your request has been approved.", priority: PriorityNormal},
	StatusRejected: {title: "Request rejected", body: "Your request has been rejected.", priority: PriorityNormal},
}

// Overrides are caller-supplied replacements for template fields. Zero
// values mean "keep the template's value".
type Overrides struct {
	Title    string
	Body     string
	Priority Priority
	Data     map[string]any
}

// FromTemplate builds the canned payload for status and applies o field
// by field on top of it.
func FromTemplate(status Status, o Overrides, now time.Time) (Payload, error) {
	t, ok := templates[status]
	if !ok {
		return Payload{}, &ErrUnknownStatus{Got: string(status)}
	}
	p := Payload{
		Title:     t.title,
		Body:      t.body,
		Status:    status,
		Priority:  t.priority,
		Timestamp: now,
	}
	if o.Title != "" {
		p.Title = o.Title
	}
	if o.Body != "" {
		p.Body = o.Body
	}
	if o.Priority != "" {
		p.Priority = o.Priority
	}
	if o.Data != nil {
		p.Data = o.Data
	}
	return p, nil
}
