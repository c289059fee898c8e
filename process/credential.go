package process

import (
	"errors"

	"github.com/zalando/go-keyring"

	apperrors "github.com/kbukum/procinvoke/errors"
	"github.com/kbukum/procinvoke/util"
)

// Credential identifies the account a process runs as. On Unix only the
// user name is used and the caller must be privileged to switch to it; on
// Windows the password logs the user on.
type Credential struct {
	Username string `validate:"required"`
	Domain   string
	Password string
	// KeyringService names the OS keyring entry holding Password when it is empty.
	KeyringService string
}

// CredentialFromKeyring builds a credential whose password is read from the
// OS keyring entry service/username.
func CredentialFromKeyring(service, username string) (*Credential, error) {
	c := &Credential{Username: username, KeyringService: service}
	if _, err := c.password(); err != nil {
		return nil, err
	}
	return c, nil
}

// password returns Password, falling back to the keyring.
func (c *Credential) password() (string, error) {
	if c.Password != "" || c.KeyringService == "" {
		return c.Password, nil
	}
	secret, err := keyring.Get(c.KeyringService, c.Username)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", apperrors.NotFound("credential", c.KeyringService+"/"+c.Username)
		}
		return "", apperrors.PermissionDenied("keyring is unavailable or locked").WithCause(err)
	}
	return secret, nil
}

// account renders DOMAIN\user or user.
func (c *Credential) account() string {
	if c.Domain == "" {
		return c.Username
	}
	return c.Domain + `\` + c.Username
}

// redacted returns a copy without the password.
func (c *Credential) redacted() *Credential {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Password = ""
	return &cp
}

// clear wipes the password in place.
func (c *Credential) clear() {
	if c != nil {
		c.Password = ""
	}
}

func (c *Credential) String() string {
	if c == nil {
		return "<none>"
	}
	if c.Password == "" {
		return c.account()
	}
	return c.account() + ":" + util.MaskSecret(c.Password, 0)
}
