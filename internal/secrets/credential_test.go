package secrets

import (
	"errors"
	"testing"

	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
)

func TestCredential_UseAndDestroy(t *testing.T) {
	input := []byte("hunter2")
	cred, err := NewCredential(input)
	if err != nil {
		t.Fatalf("Failed to create credential: %v", err)
	}

	// The handle owns a copy.
	input[0] = 'X'

	for i := 0; i < 2; i++ {
		err := cred.Use(func(password []byte) error {
			if string(password) != "hunter2" {
				t.Errorf("Expected %q, got %q", "hunter2", password)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("Use %d failed: %v", i, err)
		}
	}

	cred.Destroy()
	cred.Destroy()
	if !cred.Destroyed() {
		t.Error("Expected credential to report destroyed")
	}

	err = cred.Use(func([]byte) error {
		t.Error("Callback should not run after Destroy")
		return nil
	})
	if !errors.Is(err, kerrors.ErrCredentialDestroyed) {
		t.Errorf("Expected ErrCredentialDestroyed, got %v", err)
	}
}

func TestCredential_OneShot(t *testing.T) {
	cred, err := NewOneShotCredential([]byte("once"))
	if err != nil {
		t.Fatalf("Failed to create credential: %v", err)
	}

	var captured []byte
	if err := cred.Use(func(password []byte) error {
		captured = password
		return nil
	}); err != nil {
		t.Fatalf("First use failed: %v", err)
	}

	for _, b := range captured {
		if b != 0 {
			t.Fatal("One-shot credential should zero the password after use")
		}
	}

	if err := cred.Use(func([]byte) error { return nil }); !errors.Is(err, kerrors.ErrCredentialDestroyed) {
		t.Errorf("Expected ErrCredentialDestroyed on second use, got %v", err)
	}
}

func TestCredential_PropagatesCallbackError(t *testing.T) {
	cred, _ := NewCredential([]byte("pw"))
	want := errors.New("boom")

	if err := cred.Use(func([]byte) error { return want }); !errors.Is(err, want) {
		t.Errorf("Expected callback error, got %v", err)
	}
}

func TestNewCredential_Empty(t *testing.T) {
	if _, err := NewCredential(nil); !errors.Is(err, kerrors.ErrEmptyPassword) {
		t.Errorf("Expected ErrEmptyPassword, got %v", err)
	}

	var zeroValue Credential
	if err := zeroValue.Use(func([]byte) error { return nil }); !errors.Is(err, kerrors.ErrCredentialDestroyed) {
		t.Errorf("Expected zero value to behave as destroyed, got %v", err)
	}
}
