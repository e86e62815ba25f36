package mssql

import (
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/models"
)

func init() {
	datasource.Register(datasource.DatasourceAdapterRegistration{
		Info: datasource.DatasourceAdapterInfo{
			Type:        models.DBTypeMSSQL,
			DisplayName: "SQL Server",
			Description: "Connect to Microsoft SQL Server with SQL or Windows authentication",
			DefaultPort: DefaultPort(),
		},
		Connector: Connector{},
	})
}
