package validate

import (
	"context"
	"testing"
)

func TestValidateAcceptsWellFormedPacket(t *testing.T) {
	raw := []byte(`{
		"response_queue": "r1",
		"version_utc_seconds": 1700000000,
		"type": "show_user",
		"uuid": "U1",
		"sent_at": 1700000000,
		"args": {"username": "foo"},
		"style": {"2xx": {"operation": "copy", "log_level": "INFO"}},
		"ignore_version": true
	}`)

	p, err := Validate(context.Background(), raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ResponseQueue != "r1" || p.Type != "show_user" || p.UUID != "U1" {
		t.Fatalf("unexpected packet: %+v", p)
	}
	if !p.IgnoreVersion {
		t.Fatal("expected ignore_version true")
	}
	if p.Args["username"] != "foo" {
		t.Fatalf("unexpected args: %+v", p.Args)
	}
}

func TestValidateRejectsNonObjectBody(t *testing.T) {
	_, err := Validate(context.Background(), []byte(`[1,2,3]`))
	if err == nil {
		t.Fatal("expected error for non-object body")
	}
}

func TestValidateRejectsMissingResponseQueue(t *testing.T) {
	raw := []byte(`{"version_utc_seconds": 1, "type": "_ping", "uuid": "U", "sent_at": 1}`)
	_, err := Validate(context.Background(), raw)
	if err == nil {
		t.Fatal("expected error for missing response_queue")
	}
}

func TestValidateRejectsNonNumericVersion(t *testing.T) {
	raw := []byte(`{"response_queue":"r","version_utc_seconds":"five","type":"_ping","uuid":"U","sent_at":1}`)
	_, err := Validate(context.Background(), raw)
	if err == nil {
		t.Fatal("expected error for non-numeric version")
	}
}

func TestValidateRejectsInvalidStyleKey(t *testing.T) {
	raw := []byte(`{
		"response_queue":"r","version_utc_seconds":1,"type":"_ping","uuid":"U","sent_at":1,
		"style": {"not-a-key": {"operation": "copy"}}
	}`)
	_, err := Validate(context.Background(), raw)
	if err == nil {
		t.Fatal("expected error for invalid style key")
	}
}

func TestValidateRejectsUnrecognizedOperation(t *testing.T) {
	raw := []byte(`{
		"response_queue":"r","version_utc_seconds":1,"type":"_ping","uuid":"U","sent_at":1,
		"style": {"200": {"operation": "explode"}}
	}`)
	_, err := Validate(context.Background(), raw)
	if err == nil {
		t.Fatal("expected error for unrecognized operation")
	}
}

func TestValidateRejectsInvalidLogLevel(t *testing.T) {
	raw := []byte(`{
		"response_queue":"r","version_utc_seconds":1,"type":"_ping","uuid":"U","sent_at":1,
		"style": {"200": {"operation": "copy", "log_level": "LOUD"}}
	}`)
	_, err := Validate(context.Background(), raw)
	if err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

func TestValidateRejectsNonBooleanRetryIgnoreVersion(t *testing.T) {
	raw := []byte(`{
		"response_queue":"r","version_utc_seconds":1,"type":"_ping","uuid":"U","sent_at":1,
		"style": {"5xx": {"operation": "retry", "ignore_version": "yes"}}
	}`)
	_, err := Validate(context.Background(), raw)
	if err == nil {
		t.Fatal("expected error for non-boolean retry ignore_version")
	}
}

func TestValidateAcceptsClassWildcardStyleKeys(t *testing.T) {
	raw := []byte(`{
		"response_queue":"r","version_utc_seconds":1,"type":"_ping","uuid":"U","sent_at":1,
		"style": {"4xx": {"operation": "failure"}, "599": {"operation": "retry"}}
	}`)
	if _, err := Validate(context.Background(), raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateDefaultsArgsToEmptyMap(t *testing.T) {
	raw := []byte(`{"response_queue":"r","version_utc_seconds":1,"type":"_ping","uuid":"U","sent_at":1}`)
	p, err := Validate(context.Background(), raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Args == nil || len(p.Args) != 0 {
		t.Fatalf("expected empty args map, got %+v", p.Args)
	}
}
