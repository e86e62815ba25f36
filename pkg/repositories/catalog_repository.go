package repositories

import (
	"context"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/ekaya-checkpoint/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/models"
)

// Catalog is a YAML file holding checkpoints and datasources, used for
// offline runs without a repository database. It implements both
// CheckpointRepository and DatasourceRepository.
//
//	checkpoints:
//	  - id: 1
//	    name: Locked accounts
//	    db_type: oracle
//	    sql_test: SELECT COUNT(*) FROM dba_users WHERE account_status LIKE 'LOCKED%'
//	    test_condition: "== 0"
//	datasources:
//	  - id: 10
//	    name: prod-ora
//	    db_type: oracle
//	    host: ora1.example.com
//	    oracle_service_name: ORCLPDB1
//	    username: auditor
//	    password: enc:v1:...
type Catalog struct {
	checkpoints map[int64]*models.Checkpoint
	datasources map[int64]*models.Datasource
}

type catalogFile struct {
	Checkpoints []*models.Checkpoint `yaml:"checkpoints"`
	Datasources []*models.Datasource `yaml:"datasources"`
}

// LoadCatalog reads and validates a catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog parses catalog YAML. IDs must be unique per section and every
// entry must pass model validation.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := &Catalog{
		checkpoints: make(map[int64]*models.Checkpoint, len(file.Checkpoints)),
		datasources: make(map[int64]*models.Datasource, len(file.Datasources)),
	}

	for _, cp := range file.Checkpoints {
		cp.DBType = normalizeDBType(string(cp.DBType))
		cp.Severity = normalizeSeverity(string(cp.Severity))
		if err := cp.Validate(); err != nil {
			return nil, fmt.Errorf("checkpoint %d: %w", cp.ID, err)
		}
		if _, dup := c.checkpoints[cp.ID]; dup {
			return nil, fmt.Errorf("duplicate checkpoint id %d", cp.ID)
		}
		c.checkpoints[cp.ID] = cp
	}

	for _, ds := range file.Datasources {
		ds.DBType = normalizeDBType(string(ds.DBType))
		if err := ds.Validate(); err != nil {
			return nil, fmt.Errorf("datasource %d: %w", ds.ID, err)
		}
		if _, dup := c.datasources[ds.ID]; dup {
			return nil, fmt.Errorf("duplicate datasource id %d", ds.ID)
		}
		c.datasources[ds.ID] = ds
	}

	return c, nil
}

// Checkpoints returns the catalog as a CheckpointRepository.
func (c *Catalog) Checkpoints() CheckpointRepository {
	return catalogCheckpoints{c}
}

// Datasources returns the catalog as a DatasourceRepository.
func (c *Catalog) Datasources() DatasourceRepository {
	return catalogDatasources{c}
}

type catalogCheckpoints struct{ c *Catalog }

func (r catalogCheckpoints) GetByID(ctx context.Context, id int64) (*models.Checkpoint, error) {
	cp, ok := r.c.checkpoints[id]
	if !ok {
		return nil, apperrors.ErrCheckpointNotFound
	}
	copied := *cp
	return &copied, nil
}

func (r catalogCheckpoints) List(ctx context.Context) ([]*models.Checkpoint, error) {
	list := make([]*models.Checkpoint, 0, len(r.c.checkpoints))
	for _, cp := range r.c.checkpoints {
		copied := *cp
		list = append(list, &copied)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}

type catalogDatasources struct{ c *Catalog }

func (r catalogDatasources) GetByID(ctx context.Context, id int64) (*models.Datasource, error) {
	ds, ok := r.c.datasources[id]
	if !ok {
		return nil, apperrors.ErrDatasourceNotFound
	}
	copied := *ds
	return &copied, nil
}

func (r catalogDatasources) ListByDBType(ctx context.Context, dbType models.DBType) ([]*models.Datasource, error) {
	list := make([]*models.Datasource, 0)
	for _, ds := range r.c.datasources {
		if ds.DBType == dbType {
			copied := *ds
			list = append(list, &copied)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}

// Ensure the catalog views implement their interfaces at compile time.
var (
	_ CheckpointRepository = catalogCheckpoints{}
	_ DatasourceRepository = catalogDatasources{}
)
