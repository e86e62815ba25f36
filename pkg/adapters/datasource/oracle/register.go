package oracle

import (
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/models"
)

func init() {
	datasource.Register(datasource.DatasourceAdapterRegistration{
		Info: datasource.DatasourceAdapterInfo{
			Type:        models.DBTypeOracle,
			DisplayName: "Oracle",
			Description: "Connect to Oracle Database by service name or SID",
			DefaultPort: DefaultPort(),
		},
		Connector: Connector{},
	})
}
