package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
)

const tokenFileName = "token.json"

// Authorizer obtains a brand new token, usually by asking the user.
type Authorizer func(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error)

// Authenticator produces an authorized http.Client. The token is cached at
// TokenPath and only Authorize touches the user, at most once per run.
type Authenticator struct {
	Config    *oauth2.Config
	TokenPath string
	Authorize Authorizer
}

func GetDefaultCredentialsPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, "credentials.json"), nil
}

func GetDefaultTokenPath() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(cacheDir, APP_NAME, tokenFileName), nil
}

// LoadOAuthConfig reads an OAuth client secret file as downloaded from the
// Google Cloud console. Access is limited to the application data folder.
func LoadOAuthConfig(credentialsPath string) (*oauth2.Config, error) {
	b, err := os.ReadFile(credentialsPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &AuthError{Op: "read client secret", Err: fmt.Errorf("%w at %s", ErrNoCredentials, credentialsPath)}
	}
	if err != nil {
		return nil, &AuthError{Op: "read client secret", Err: err}
	}

	config, err := google.ConfigFromJSON(b, drive.DriveAppdataScope)
	if err != nil {
		return nil, &AuthError{Op: "parse client secret", Err: err}
	}

	return config, nil
}

func NewAuthenticator(config *oauth2.Config, tokenPath string, openURL func(string) error) *Authenticator {
	return &Authenticator{
		Config:    config,
		TokenPath: tokenPath,
		Authorize: WebAuthorizer(os.Stdout, openURL),
	}
}

// Authenticate returns a client backed by the cached token when it is still
// valid or can be refreshed, and falls back to Authorize otherwise.
func (a *Authenticator) Authenticate(ctx context.Context) (*http.Client, error) {
	tok, err := a.cachedToken(ctx)
	if err != nil {
		Log.WithError(err).Info("No usable cached token, requesting authorization")
		tok, err = a.Authorize(ctx, a.Config)
		if err != nil {
			return nil, &AuthError{Op: "authorize", Err: err}
		}

		if err := saveToken(a.TokenPath, tok); err != nil {
			return nil, &AuthError{Op: "cache token", Err: err}
		}
	}

	source := &cachingTokenSource{
		base: oauth2.ReuseTokenSource(tok, a.Config.TokenSource(ctx, tok)),
		path: a.TokenPath,
		last: tok,
	}
	return oauth2.NewClient(ctx, source), nil
}

func (a *Authenticator) cachedToken(ctx context.Context) (*oauth2.Token, error) {
	tok, err := tokenFromFile(a.TokenPath)
	if err != nil {
		return nil, err
	}

	fresh, err := a.Config.TokenSource(ctx, tok).Token()
	if err != nil {
		return nil, err
	}

	if fresh.AccessToken != tok.AccessToken {
		Log.Debug("Refreshed cached token")
		if err := saveToken(a.TokenPath, fresh); err != nil {
			return nil, err
		}
	}

	return fresh, nil
}

// cachingTokenSource writes every refreshed token back to disk so the next
// run starts from it.
type cachingTokenSource struct {
	base oauth2.TokenSource
	path string

	mu   sync.Mutex
	last *oauth2.Token
}

func (s *cachingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil || tok.AccessToken != s.last.AccessToken {
		if err := saveToken(s.path, tok); err != nil {
			Log.WithError(err).Error("Unable to cache refreshed token")
		}
		s.last = tok
	}

	return tok, nil
}

// WebAuthorizer runs the loopback redirect flow: a one-shot listener on a
// random local port receives the authorization code.
func WebAuthorizer(out io.Writer, openURL func(string) error) Authorizer {
	return func(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return nil, err
		}

		cfg := *config
		cfg.RedirectURL = fmt.Sprintf("http://%v/", listener.Addr())
		state := uuid.NewString()
		authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)

		codes := make(chan string, 1)
		failures := make(chan error, 1)
		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if r.FormValue("state") != state {
				http.Error(w, "unexpected state", http.StatusBadRequest)
				return
			}

			if reason := r.FormValue("error"); reason != "" {
				w.Write([]byte("Authorization was not granted. You can close this tab."))
				select {
				case failures <- fmt.Errorf("authorization denied: %s", reason):
				default:
				}
				return
			}

			w.Write([]byte("Success! You can safely close this tab."))
			select {
			case codes <- r.FormValue("code"):
			default:
			}
		})

		server := &http.Server{Handler: mux}
		go server.Serve(listener)
		defer server.Close()

		fmt.Fprintf(out, "Authorize SimpleSync in your browser. If it does not open, visit:\n%v\n", authURL)
		if openURL != nil {
			if err := openURL(authURL); err != nil {
				Log.WithError(err).Warn("Unable to open browser")
			}
		}

		select {
		case code := <-codes:
			return cfg.Exchange(ctx, code, oauth2.AccessTypeOffline)
		case err := <-failures:
			return nil, err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

func saveToken(path string, token *oauth2.Token) error {
	Log.WithField("path", path).Info("Saving credential file")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(token)
}
