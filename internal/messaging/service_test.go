package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/rallypointza/rallypoint/internal/whatsapp"
)

func TestCanonicalizePhone(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"+27 82 000 1111", "27820001111", false},
		{"27820001111", "27820001111", false},
		{"(082) 000-1111", "0820001111", false},
		{"", "", true},
		{"abc", "", true},
		{"12345", "", true},
	}
	for _, c := range cases {
		got, err := canonicalizePhone(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("canonicalizePhone(%q): expected error", c.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("canonicalizePhone(%q) failed: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("canonicalizePhone(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestWhatsAppServiceSendCanonicalizes(t *testing.T) {
	svc := NewWhatsAppService(whatsapp.NewMockClient())

	if err := svc.SendMessage(context.Background(), "+27 82 000 1111", "hello"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if err := svc.SendMessage(context.Background(), "not-a-number", "hello"); err == nil {
		t.Error("expected validation error for a non-numeric recipient")
	}
}

func TestWhatsAppServiceStopBlocksSends(t *testing.T) {
	svc := NewWhatsAppService(whatsapp.NewMockClient())

	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := svc.Stop(); err != nil {
		t.Fatalf("repeated Stop failed: %v", err)
	}
	if err := svc.SendMessage(context.Background(), "27820001111", "hello"); !errors.Is(err, ErrServiceStopped) {
		t.Errorf("expected ErrServiceStopped, got %v", err)
	}
}

func TestRecorderServiceRecordsSends(t *testing.T) {
	rec := NewRecorderService()

	if err := rec.SendMessage(context.Background(), "27820001111", "hello"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	sent := rec.Sent()
	if len(sent) != 1 || sent[0].To != "27820001111" || sent[0].Body != "hello" {
		t.Errorf("unexpected recorded sends: %+v", sent)
	}

	rec.SendErr = errors.New("boom")
	if err := rec.SendMessage(context.Background(), "27820001111", "again"); err == nil {
		t.Error("expected configured error")
	}
	if len(rec.Sent()) != 1 {
		t.Error("failed send must not be recorded")
	}
}

func TestNewSMSServiceRequiresCredentials(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_FROM_NUMBER", "")

	if _, err := NewSMSService(); err == nil {
		t.Error("expected error with no credentials")
	}
	if _, err := NewSMSService(WithAccountSID("sid"), WithAuthToken("token")); err == nil {
		t.Error("expected error with no from number")
	}
	if _, err := NewSMSService(WithAccountSID("sid"), WithAuthToken("token"), WithFromNumber("+15550001111")); err != nil {
		t.Errorf("expected client construction to succeed, got %v", err)
	}
}
