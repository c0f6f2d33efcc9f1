package secrets

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/99designs/keyring"
	"golang.org/x/term"

	"github.com/steipete/sheetpeek/internal/config"
	"github.com/steipete/sheetpeek/internal/googleauth"
)

const keyringPasswordEnv = "SHEETPEEK_KEYRING_PASSWORD"

var (
	errInvalidKeyringBackend = errors.New("invalid keyring backend")
	errNoTTY                 = errors.New("no TTY available for keyring password prompt; set " + keyringPasswordEnv)
)

type Store interface {
	Keys() ([]string, error)
	SetServiceAccount(key []byte) (ServiceAccount, error)
	GetServiceAccount(email string) (ServiceAccount, error)
	DeleteServiceAccount(email string) error
	ListServiceAccounts() ([]ServiceAccount, error)
}

type KeyringStore struct {
	ring keyring.Keyring
}

// ServiceAccount is a service-account key held in the keyring. Key is the
// raw JSON key file content.
type ServiceAccount struct {
	Email     string    `json:"email"`
	ProjectID string    `json:"project_id,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	Key       []byte    `json:"-"`
}

// OpenDefault opens the OS keyring. backend is "", "auto" or one of
// keychain|secret-service|wincred|file.
func OpenDefault(backend string) (Store, error) {
	allowed, err := allowedBackends(backend)
	if err != nil {
		return nil, err
	}

	// On Linux/WSL/containers, OS keychains (secret-service/kwallet) may be unavailable.
	// In that case github.com/99designs/keyring falls back to the "file" backend,
	// which *requires* both a directory and a password prompt function.
	keyringDir, err := config.EnsureKeyringDir()
	if err != nil {
		return nil, err
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName:      config.AppName,
		AllowedBackends:  allowed,
		FileDir:          keyringDir,
		FilePasswordFunc: fileKeyringPasswordFunc(),
	})
	if err != nil {
		return nil, err
	}
	return &KeyringStore{ring: ring}, nil
}

func NewKeyringStore(ring keyring.Keyring) *KeyringStore {
	return &KeyringStore{ring: ring}
}

func (s *KeyringStore) Keys() ([]string, error) {
	return s.ring.Keys()
}

type storedKey struct {
	Key       json.RawMessage `json:"key"`
	ProjectID string          `json:"project_id,omitempty"`
	CreatedAt time.Time       `json:"created_at,omitempty"`
}

func (s *KeyringStore) SetServiceAccount(key []byte) (ServiceAccount, error) {
	parsed, err := googleauth.ParseServiceAccountKey(key)
	if err != nil {
		return ServiceAccount{}, err
	}
	email := normalize(parsed.ClientEmail)
	createdAt := time.Now().UTC()

	payload, err := json.Marshal(storedKey{
		Key:       json.RawMessage(key),
		ProjectID: parsed.ProjectID,
		CreatedAt: createdAt,
	})
	if err != nil {
		return ServiceAccount{}, err
	}

	if err := s.ring.Set(keyring.Item{
		Key:   accountKey(email),
		Data:  payload,
		Label: config.AppName + " " + email,
	}); err != nil {
		return ServiceAccount{}, err
	}
	return ServiceAccount{Email: email, ProjectID: parsed.ProjectID, CreatedAt: createdAt, Key: key}, nil
}

func (s *KeyringStore) GetServiceAccount(email string) (ServiceAccount, error) {
	email = normalize(email)
	if email == "" {
		return ServiceAccount{}, fmt.Errorf("missing email")
	}
	it, err := s.ring.Get(accountKey(email))
	if err != nil {
		return ServiceAccount{}, err
	}
	var st storedKey
	if err := json.Unmarshal(it.Data, &st); err != nil {
		return ServiceAccount{}, err
	}
	return ServiceAccount{
		Email:     email,
		ProjectID: st.ProjectID,
		CreatedAt: st.CreatedAt,
		Key:       []byte(st.Key),
	}, nil
}

func (s *KeyringStore) DeleteServiceAccount(email string) error {
	email = normalize(email)
	if email == "" {
		return fmt.Errorf("missing email")
	}
	return s.ring.Remove(accountKey(email))
}

func (s *KeyringStore) ListServiceAccounts() ([]ServiceAccount, error) {
	keys, err := s.Keys()
	if err != nil {
		return nil, err
	}
	out := make([]ServiceAccount, 0)
	for _, k := range keys {
		email, ok := ParseAccountKey(k)
		if !ok {
			continue
		}
		sa, err := s.GetServiceAccount(email)
		if err != nil {
			return nil, err
		}
		out = append(out, sa)
	}
	return out, nil
}

func ParseAccountKey(k string) (email string, ok bool) {
	const prefix = "service-account:"
	if !strings.HasPrefix(k, prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(k, prefix)
	if strings.TrimSpace(rest) == "" {
		return "", false
	}
	return rest, true
}

func accountKey(email string) string {
	return fmt.Sprintf("service-account:%s", email)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func allowedBackends(name string) ([]keyring.BackendType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return nil, nil
	case "keychain":
		return []keyring.BackendType{keyring.KeychainBackend}, nil
	case "secret-service":
		return []keyring.BackendType{keyring.SecretServiceBackend}, nil
	case "wincred":
		return []keyring.BackendType{keyring.WinCredBackend}, nil
	case "file":
		return []keyring.BackendType{keyring.FileBackend}, nil
	default:
		return nil, fmt.Errorf("%w %q (expected auto|keychain|secret-service|wincred|file)", errInvalidKeyringBackend, name)
	}
}

func fileKeyringPasswordFunc() keyring.PromptFunc {
	return fileKeyringPasswordFuncFrom(os.Getenv(keyringPasswordEnv), term.IsTerminal(int(os.Stdin.Fd())))
}

func fileKeyringPasswordFuncFrom(password string, isTTY bool) keyring.PromptFunc {
	if password != "" {
		return keyring.FixedStringPrompt(password)
	}
	if isTTY {
		return keyring.TerminalPrompt
	}
	return func(string) (string, error) {
		return "", errNoTTY
	}
}
