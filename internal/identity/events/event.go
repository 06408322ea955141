// Package events reconciles identity-provider lifecycle events into the user directory.
package events

import (
	"encoding/json"
	"strings"
	"time"

	apperrors "givebridge/backend/internal/platform/errors"
)

// Provider event type tags.
const (
	TypeUserCreated = "user.created"
	TypeUserUpdated = "user.updated"
	TypeUserDeleted = "user.deleted"
)

// Payload is the provider's view of an account, already mapped to directory fields.
type Payload struct {
	ExternalID    string
	Email         string
	FirstName     string
	LastName      string
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Event is one of Created, Updated, Deleted or Unrecognized.
type Event interface {
	ExternalID() string
	isEvent()
}

// Created announces a new provider account.
type Created struct{ Payload }

// Updated carries changed mutable fields for an existing account.
type Updated struct{ Payload }

// Deleted announces that the provider account was removed.
type Deleted struct{ Payload }

// Unrecognized is any event type this service does not handle. Processing it never touches the directory.
type Unrecognized struct {
	Type string
	ID   string
}

func (e Created) ExternalID() string      { return e.Payload.ExternalID }
func (e Updated) ExternalID() string      { return e.Payload.ExternalID }
func (e Deleted) ExternalID() string      { return e.Payload.ExternalID }
func (e Unrecognized) ExternalID() string { return e.ID }

func (Created) isEvent()      {}
func (Updated) isEvent()      {}
func (Deleted) isEvent()      {}
func (Unrecognized) isEvent() {}

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type emailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
	Verification *struct {
		Status string `json:"status"`
	} `json:"verification"`
}

type userData struct {
	ID                    string         `json:"id"`
	EmailAddresses        []emailAddress `json:"email_addresses"`
	PrimaryEmailAddressID string         `json:"primary_email_address_id"`
	FirstName             *string        `json:"first_name"`
	LastName              *string        `json:"last_name"`
	CreatedAt             int64          `json:"created_at"`
	UpdatedAt             int64          `json:"updated_at"`
}

// Decode parses a webhook body into an Event. Unknown types decode to Unrecognized
// without inspecting data; known types require data.id.
func Decode(body []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidArgument, "malformed event body", err)
	}
	switch env.Type {
	case TypeUserCreated, TypeUserUpdated, TypeUserDeleted:
	default:
		var partial struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(env.Data, &partial)
		return Unrecognized{Type: env.Type, ID: partial.ID}, nil
	}

	var data userData
	if len(env.Data) == 0 {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, "event has no data")
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidArgument, "malformed event data", err)
	}
	if strings.TrimSpace(data.ID) == "" {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, "event data has no id")
	}
	p := data.payload()
	switch env.Type {
	case TypeUserCreated:
		return Created{p}, nil
	case TypeUserUpdated:
		return Updated{p}, nil
	default:
		return Deleted{p}, nil
	}
}

func (d userData) payload() Payload {
	p := Payload{
		ExternalID: strings.TrimSpace(d.ID),
		CreatedAt:  epoch(d.CreatedAt),
		UpdatedAt:  epoch(d.UpdatedAt),
	}
	if d.FirstName != nil {
		p.FirstName = *d.FirstName
	}
	if d.LastName != nil {
		p.LastName = *d.LastName
	}
	if e, ok := d.primaryEmail(); ok {
		p.Email = e.EmailAddress
		p.EmailVerified = e.Verification != nil && e.Verification.Status == "verified"
	}
	return p
}

// primaryEmail picks the address named by primary_email_address_id, else the first one.
func (d userData) primaryEmail() (emailAddress, bool) {
	if len(d.EmailAddresses) == 0 {
		return emailAddress{}, false
	}
	if d.PrimaryEmailAddressID != "" {
		for _, e := range d.EmailAddresses {
			if e.ID == d.PrimaryEmailAddressID {
				return e, true
			}
		}
	}
	return d.EmailAddresses[0], true
}

// epoch converts provider epoch seconds (scaled to milliseconds) to UTC time. Zero stays zero.
func epoch(secs int64) time.Time {
	if secs == 0 {
		return time.Time{}
	}
	return time.UnixMilli(secs * 1000).UTC()
}
