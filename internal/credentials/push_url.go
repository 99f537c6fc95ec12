package credentials

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/temirov/reposync/internal/execshell"
)

// AccessTokenUser is the userinfo name paired with the token in push URLs.
const AccessTokenUser = "x-access-token"

const (
	httpSchemeConstant               = "http"
	httpsSchemeConstant              = "https"
	unsupportedSchemeMessageConstant = "unsupported scheme for push url"
	tokenMissingMessageConstant      = "push token must be provided"
	unparsableURLTemplateConstant    = "%w: %v"
	schemeTemplateConstant           = "%w: %q"
	userinfoSeparatorConstant        = ":"
)

var (
	// ErrUnsupportedScheme indicates the repository URL cannot carry a token.
	ErrUnsupportedScheme = errors.New(unsupportedSchemeMessageConstant)
	// ErrTokenMissing indicates an empty token was supplied.
	ErrTokenMissing = errors.New(tokenMissingMessageConstant)
)

// PushURL holds a credential-bearing URL together with its loggable form.
type PushURL struct {
	Value        string
	Masked       string
	EscapedToken string
}

// BuildPushURL injects the token as userinfo into an http or https URL, replacing any userinfo already present.
func BuildPushURL(repositoryURL string, token string) (PushURL, error) {
	if len(token) == 0 {
		return PushURL{}, ErrTokenMissing
	}
	parsedURL, parseError := url.Parse(strings.TrimSpace(repositoryURL))
	if parseError != nil {
		return PushURL{}, fmt.Errorf(unparsableURLTemplateConstant, ErrUnsupportedScheme, parseError)
	}
	scheme := strings.ToLower(parsedURL.Scheme)
	if scheme != httpSchemeConstant && scheme != httpsSchemeConstant {
		return PushURL{}, fmt.Errorf(schemeTemplateConstant, ErrUnsupportedScheme, parsedURL.Scheme)
	}

	userinfo := url.UserPassword(AccessTokenUser, token)
	escapedToken := strings.TrimPrefix(userinfo.String(), AccessTokenUser+userinfoSeparatorConstant)
	parsedURL.User = userinfo
	value := parsedURL.String()

	return PushURL{
		Value:        value,
		Masked:       strings.ReplaceAll(value, escapedToken, execshell.RedactionMask),
		EscapedToken: escapedToken,
	}, nil
}
