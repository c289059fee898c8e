package process

import (
	"strings"
	"testing"

	"github.com/zalando/go-keyring"

	apperrors "github.com/kbukum/procinvoke/errors"
)

func TestCredentialFromKeyring(t *testing.T) {
	keyring.MockInit()
	if err := keyring.Set("procinvoke-test", "alice", "s3cret"); err != nil {
		t.Fatalf("keyring.Set: %v", err)
	}

	cred, err := CredentialFromKeyring("procinvoke-test", "alice")
	if err != nil {
		t.Fatalf("CredentialFromKeyring: %v", err)
	}
	if cred.Password != "" {
		t.Fatal("the password should stay in the keyring until start")
	}
	pw, err := cred.password()
	if err != nil || pw != "s3cret" {
		t.Fatalf("password() = %q, %v", pw, err)
	}

	if _, err := CredentialFromKeyring("procinvoke-test", "bob"); !apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		t.Fatalf("expected NOT_FOUND for a missing entry, got %v", err)
	}
}

func TestCredentialPasswordPrefersExplicit(t *testing.T) {
	keyring.MockInit()
	cred := &Credential{Username: "alice", Password: "explicit", KeyringService: "unused"}
	pw, err := cred.password()
	if err != nil || pw != "explicit" {
		t.Fatalf("password() = %q, %v", pw, err)
	}
}

func TestCredentialRedaction(t *testing.T) {
	cred := &Credential{Username: "alice", Domain: "CORP", Password: "s3cret"}

	if s := cred.String(); strings.Contains(s, "s3cret") || !strings.HasPrefix(s, `CORP\alice`) {
		t.Fatalf("String() leaked or lost data: %q", s)
	}
	red := cred.redacted()
	if red.Password != "" || cred.Password != "s3cret" {
		t.Fatal("redacted must copy without touching the original")
	}
	cred.clear()
	if cred.Password != "" {
		t.Fatal("clear must wipe the password")
	}

	var none *Credential
	if none.redacted() != nil || none.String() != "<none>" {
		t.Fatal("nil credential helpers must be safe")
	}
	none.clear()
}
