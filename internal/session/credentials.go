package session

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

type CredentialKind string

const (
	PasswordCredentials CredentialKind = "password"
	CookieCredentials   CredentialKind = "cookie"
)

// Credentials holds the login material for one account.  The core never
// inspects the secret material itself, it just hands it to the transport's
// login call.  Immutable after construction.
type Credentials struct {
	Kind     CredentialKind `validate:"required,oneof=password cookie"`
	Username string         `validate:"required_if=Kind password,omitempty,email"`
	Password string         `validate:"required_if=Kind password"`
	Cookies  string         `validate:"required_if=Kind cookie"`
	BotName  string         `validate:"required"`
}

var validate = validator.New()

func NewPasswordCredentials(username string, password string, botName string) Credentials {
	return Credentials{
		Kind:     PasswordCredentials,
		Username: username,
		Password: password,
		BotName:  botName,
	}
}

func NewCookieCredentials(cookies string, botName string) Credentials {
	return Credentials{
		Kind:    CookieCredentials,
		Cookies: cookies,
		BotName: botName,
	}
}

func (c Credentials) Validate() error {
	return validate.Struct(c)
}

// String keeps the secret material out of the logs
func (c Credentials) String() string {
	return fmt.Sprintf("<Credentials(kind=%s, username=%s, bot=%s)>", c.Kind, c.Username, c.BotName)
}
