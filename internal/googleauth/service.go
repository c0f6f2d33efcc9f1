package googleauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
)

type Service string

const ServiceSheets Service = "sheets"

const serviceAccountType = "service_account"

var (
	errMissingClientEmail = errors.New("service account key has no client_email")
	errMissingPrivateKey  = errors.New("service account key has no private_key")
)

func Scopes(service Service) ([]string, error) {
	switch service {
	case ServiceSheets:
		return []string{"https://www.googleapis.com/auth/spreadsheets.readonly"}, nil
	default:
		return nil, errors.New("unknown service")
	}
}

// ServiceAccountKey is the subset of a service-account key file we inspect
// before handing the raw JSON to the oauth2 library.
type ServiceAccountKey struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
	TokenURI     string `json:"token_uri"`
}

func ParseServiceAccountKey(data []byte) (ServiceAccountKey, error) {
	var key ServiceAccountKey
	if err := json.Unmarshal(data, &key); err != nil {
		return ServiceAccountKey{}, fmt.Errorf("decode service account key: %w", err)
	}
	if key.Type != serviceAccountType {
		return ServiceAccountKey{}, fmt.Errorf("unexpected credential type %q (expected %s)", key.Type, serviceAccountType)
	}
	if strings.TrimSpace(key.ClientEmail) == "" {
		return ServiceAccountKey{}, errMissingClientEmail
	}
	if strings.TrimSpace(key.PrivateKey) == "" {
		return ServiceAccountKey{}, errMissingPrivateKey
	}
	return key, nil
}

// JWTConfig validates the key material and builds a two-legged JWT config
// for the given service's scopes.
func JWTConfig(data []byte, service Service) (*jwt.Config, error) {
	if _, err := ParseServiceAccountKey(data); err != nil {
		return nil, err
	}
	scopes, err := Scopes(service)
	if err != nil {
		return nil, err
	}
	return google.JWTConfigFromJSON(data, scopes...)
}
