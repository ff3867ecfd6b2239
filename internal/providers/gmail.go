package providers

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailv1 "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	mserrors "github.com/mailsweep/mailsweep/internal/errors"
	"github.com/mailsweep/mailsweep/pkg/credstore"
)

// GmailProbe confirms mailbox reachability by fetching the authenticated
// user's profile. It reads the OAuth client registration and refresh token
// from the credential store on every call so a freshly completed sign-in is
// picked up without restarting.
type GmailProbe struct {
	store credstore.Store

	// endpoint overrides the Google token/API endpoints in tests.
	endpoint string
}

// NewGmailProbe creates a Gmail connectivity probe.
func NewGmailProbe(store credstore.Store) *GmailProbe {
	return &GmailProbe{store: store}
}

// TestConnectivity fetches the Gmail profile of the signed-in account and
// returns its email address. No mailbox data is read or modified.
func (p *GmailProbe) TestConnectivity(ctx context.Context) (string, error) {
	clientID, err := p.retrieve(credstore.KeyGmailClientID)
	if err != nil {
		return "", err
	}
	clientSecret, err := p.retrieve(credstore.KeyGmailClientSecret)
	if err != nil {
		return "", err
	}
	refreshToken, err := p.retrieve(credstore.KeyGmailRefreshToken)
	if err != nil {
		return "", err
	}

	cfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmailv1.GmailReadonlyScope, gmailv1.GmailModifyScope},
	}
	token := &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Now().Add(-time.Minute), // force refresh through the token source
	}

	opts := []option.ClientOption{option.WithHTTPClient(cfg.Client(ctx, token))}
	if p.endpoint != "" {
		opts = append(opts, option.WithEndpoint(p.endpoint))
	}

	svc, err := gmailv1.NewService(ctx, opts...)
	if err != nil {
		return "", mserrors.NetworkError{Provider: string(KindGmail), Message: "client init", Err: err}
	}

	profile, err := svc.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return "", mserrors.ProviderError(string(KindGmail), "probe", err)
	}
	return profile.EmailAddress, nil
}

func (p *GmailProbe) retrieve(key string) (string, error) {
	value, found, err := p.store.Retrieve(key)
	if err != nil {
		return "", err
	}
	if !found {
		return "", mserrors.ConfigurationError{
			Provider: string(KindGmail),
			Message:  fmt.Sprintf("credential %s missing", key),
		}
	}
	return value, nil
}
