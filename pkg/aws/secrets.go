package aws

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// MongoURLSecret names the secret holding the catalog's Mongo connection
// string.
const MongoURLSecret = "catalog/MONGO_DB_URL"

// ErrSecretEmpty is returned when a secret exists but carries no string
// value.
var ErrSecretEmpty = errors.New("secret has no string value")

type secretValueAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// CatalogSecrets resolves the catalog's connection settings from Secrets
// Manager. Values are cached for the process lifetime.
type CatalogSecrets struct {
	api   secretValueAPI
	mu    sync.Mutex
	cache map[string]string
}

func NewCatalogSecrets(cfg sdkaws.Config) *CatalogSecrets {
	return newCatalogSecrets(secretsmanager.NewFromConfig(cfg))
}

func newCatalogSecrets(api secretValueAPI) *CatalogSecrets {
	return &CatalogSecrets{api: api, cache: map[string]string{}}
}

// MongoURL returns the Mongo connection string, or ErrSecretEmpty when the
// secret is blank.
func (s *CatalogSecrets) MongoURL(ctx context.Context) (string, error) {
	return s.lookup(ctx, MongoURLSecret)
}

func (s *CatalogSecrets) lookup(ctx context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.cache[name]; ok {
		return v, nil
	}

	out, err := s.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: sdkaws.String(name)})
	if err != nil {
		return "", fmt.Errorf("read secret %s: %w", name, err)
	}
	v := strings.TrimSpace(sdkaws.ToString(out.SecretString))
	if v == "" {
		return "", fmt.Errorf("%s: %w", name, ErrSecretEmpty)
	}
	s.cache[name] = v
	return v, nil
}
