package secrets

import (
	"sync"

	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
)

// Credential is a short-lived handle to an account password.
//
// The password is copied in at creation and zeroed by Destroy. A one-shot
// credential destroys itself after its first use. The zero value is a
// destroyed credential.
type Credential struct {
	mu        sync.Mutex
	secret    []byte
	oneShot   bool
	destroyed bool
}

// NewCredential copies password into a new handle. The caller may zero its
// own copy afterwards.
func NewCredential(password []byte) (*Credential, error) {
	if len(password) == 0 {
		return nil, kerrors.ErrEmptyPassword
	}
	secret := make([]byte, len(password))
	copy(secret, password)
	return &Credential{secret: secret}, nil
}

// NewOneShotCredential is like NewCredential but the handle is destroyed
// after the first call to Use.
func NewOneShotCredential(password []byte) (*Credential, error) {
	c, err := NewCredential(password)
	if err != nil {
		return nil, err
	}
	c.oneShot = true
	return c, nil
}

// Use calls fn with the password. fn must not retain the slice.
func (c *Credential) Use(fn func(password []byte) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.destroyed || c.secret == nil {
		return kerrors.ErrCredentialDestroyed
	}

	err := fn(c.secret)
	if c.oneShot {
		c.destroyLocked()
	}
	return err
}

// Destroy zeroes the password. Calling it more than once is harmless.
func (c *Credential) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.destroyLocked()
}

// Destroyed reports whether the credential can no longer be used.
func (c *Credential) Destroyed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed || c.secret == nil
}

func (c *Credential) destroyLocked() {
	zero(c.secret)
	c.secret = nil
	c.destroyed = true
}
