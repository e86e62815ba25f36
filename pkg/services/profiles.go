package services

import (
	"context"
	"fmt"

	"github.com/ekaya-inc/ekaya-checkpoint/pkg/crypto"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/models"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/repositories"
)

// HostResolver rewrites a datasource host before connecting.
// config.HostResolver is the production implementation.
type HostResolver interface {
	Resolve(host string) string
}

type passthroughResolver struct{}

func (passthroughResolver) Resolve(host string) string { return host }

// profileLoader turns a stored datasource into a connectable profile.
type profileLoader struct {
	repo      repositories.DatasourceRepository
	encryptor *crypto.CredentialEncryptor
	resolver  HostResolver
}

func newProfileLoader(repo repositories.DatasourceRepository, encryptor *crypto.CredentialEncryptor, resolver HostResolver) profileLoader {
	if resolver == nil {
		resolver = passthroughResolver{}
	}
	return profileLoader{repo: repo, encryptor: encryptor, resolver: resolver}
}

// load returns a copy of the datasource with its password opened and its host
// resolved. The stored record is never modified.
func (l profileLoader) load(ctx context.Context, id int64) (*models.Datasource, error) {
	stored, err := l.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return l.prepare(stored)
}

func (l profileLoader) prepare(stored *models.Datasource) (*models.Datasource, error) {
	profile := *stored
	password, err := l.encryptor.Open(stored.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to open password for datasource %d: %w", stored.ID, err)
	}
	profile.Password = password
	profile.Host = l.resolver.Resolve(stored.Host)
	return &profile, nil
}
