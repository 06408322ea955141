package events

import (
	"errors"
	"testing"
	"time"

	apperrors "givebridge/backend/internal/platform/errors"
)

func TestDecode_Created(t *testing.T) {
	body := []byte(`{"type":"user.created","data":{"id":"ext_1","email_addresses":[{"email_address":"a@x.com","verification":{"status":"verified"}}],"first_name":"Ann","created_at":1000,"updated_at":1000}}`)
	ev, err := Decode(body)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	c, ok := ev.(Created)
	if !ok {
		t.Fatalf("event = %T, want Created", ev)
	}
	if c.ExternalID() != "ext_1" || c.Email != "a@x.com" || !c.EmailVerified || c.FirstName != "Ann" || c.LastName != "" {
		t.Errorf("payload = %+v", c.Payload)
	}
	if want := time.Unix(1000, 0).UTC(); !c.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", c.CreatedAt, want)
	}
}

func TestDecode_PrimaryEmail(t *testing.T) {
	body := []byte(`{"type":"user.updated","data":{"id":"ext_1","primary_email_address_id":"idn_2","email_addresses":[
		{"id":"idn_1","email_address":"old@x.com","verification":{"status":"verified"}},
		{"id":"idn_2","email_address":"new@x.com","verification":{"status":"unverified"}}]}}`)
	ev, err := Decode(body)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	u := ev.(Updated)
	if u.Email != "new@x.com" || u.EmailVerified {
		t.Errorf("email = %q verified = %v; want primary address", u.Email, u.EmailVerified)
	}
}

func TestDecode_Variants(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"type":"user.deleted","data":{"id":"ext_1","deleted":true}}`, "Deleted"},
		{`{"type":"session.created","data":{"id":"sess_1"}}`, "Unrecognized"},
		{`{"type":"","data":null}`, "Unrecognized"},
	}
	for _, tt := range tests {
		ev, err := Decode([]byte(tt.body))
		if err != nil {
			t.Fatalf("Decode(%s): %v", tt.body, err)
		}
		var got string
		switch ev.(type) {
		case Deleted:
			got = "Deleted"
		case Unrecognized:
			got = "Unrecognized"
		default:
			got = "other"
		}
		if got != tt.want {
			t.Errorf("Decode(%s) = %s, want %s", tt.body, got, tt.want)
		}
	}
}

func TestDecode_Invalid(t *testing.T) {
	for _, body := range []string{
		`not json`,
		`{"type":"user.created"}`,
		`{"type":"user.created","data":{"first_name":"Ann"}}`,
		`{"type":"user.updated","data":"oops"}`,
	} {
		if _, err := Decode([]byte(body)); !errors.Is(err, apperrors.ErrInvalidArgument) {
			t.Errorf("Decode(%s) err = %v, want InvalidArgument", body, err)
		}
	}
}
