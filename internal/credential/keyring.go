package credential

import (
	"errors"
	"fmt"
	"os"

	"github.com/99designs/keyring"
)

const serviceName = "portal-notify"

// TokenEnvVar overrides the stored token when set.
const TokenEnvVar = "PORTAL_TOKEN"

// ErrNoToken is returned when no credential is stored for a profile.
var ErrNoToken = errors.New("no portal token stored; run `portal-notify login`")

// Store reads and writes bearer credentials.
type Store struct {
	open func() (keyring.Keyring, error)
}

// New returns a Store backed by the system keyring.
func New() *Store {
	return &Store{open: openKeyring}
}

// NewWithKeyring returns a Store over an existing keyring, such as
// keyring.NewArrayKeyring in tests.
func NewWithKeyring(ring keyring.Keyring) *Store {
	return &Store{open: func() (keyring.Keyring, error) { return ring, nil }}
}

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/portal-notify/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("portal-notify-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// TokenKey is the keyring entry for a profile's token.
func TokenKey(profile string) string {
	if profile == "" {
		profile = "default"
	}
	return "portal-" + profile
}

// Token returns the bearer token for profile. PORTAL_TOKEN wins over
// the keyring.
func (s *Store) Token(profile string) (string, error) {
	if tok := os.Getenv(TokenEnvVar); tok != "" {
		return tok, nil
	}

	ring, err := s.open()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(TokenKey(profile))
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", TokenKey(profile), err)
	}
	if len(item.Data) == 0 {
		return "", ErrNoToken
	}

	return string(item.Data), nil
}

// SetToken stores the bearer token for profile.
func (s *Store) SetToken(profile, token string) error {
	ring, err := s.open()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:   TokenKey(profile),
		Data:  []byte(token),
		Label: "portal-notify token (" + profile + ")",
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", TokenKey(profile), err)
	}

	return nil
}

// DeleteToken removes the stored token for profile.
func (s *Store) DeleteToken(profile string) error {
	ring, err := s.open()
	if err != nil {
		return err
	}

	err = ring.Remove(TokenKey(profile))
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", TokenKey(profile), err)
	}

	return nil
}
