// run-checkpoint runs one checkpoint against one datasource from the shell,
// without starting the HTTP server.
//
// Usage:
//
//	go run ./scripts/run-checkpoint [flags] run-test   <checkpoint-id> <datasource-id>
//	go run ./scripts/run-checkpoint [flags] run-detail <checkpoint-id> <datasource-id>
//	go run ./scripts/run-checkpoint [flags] check      <datasource-id>
//	go run ./scripts/run-checkpoint [flags] test-port  <datasource-id>
//	go run ./scripts/run-checkpoint seal-password <password>
//
// Repository settings come from the same environment variables as the server
// (REPOSITORY_DRIVER, PG*, MYSQL_*, CHECKPOINT_CATALOG, CHECKPOINT_CREDENTIALS_KEY).
//
// Exit status: 0 for PASS, OK and NO_CONDITION, 1 for FAIL, 2 for ERROR or bad usage.
//
// Flags:
//
//	-catalog  Read checkpoints and datasources from this YAML catalog
//	-verbose  Log run progress to stderr
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-checkpoint/pkg/adapters/datasource"
	_ "github.com/ekaya-inc/ekaya-checkpoint/pkg/adapters/datasource/mssql"
	_ "github.com/ekaya-inc/ekaya-checkpoint/pkg/adapters/datasource/oracle"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/config"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/crypto"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/logging"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/models"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/repositories"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/services"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [-catalog file] [-verbose] <command> <args>\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "\nCommands:\n")
	fmt.Fprintf(os.Stderr, "  run-test <checkpoint-id> <datasource-id>\n")
	fmt.Fprintf(os.Stderr, "  run-detail <checkpoint-id> <datasource-id>\n")
	fmt.Fprintf(os.Stderr, "  check <datasource-id>\n")
	fmt.Fprintf(os.Stderr, "  test-port <datasource-id>\n")
	fmt.Fprintf(os.Stderr, "  seal-password <password>\n")
	fmt.Fprintf(os.Stderr, "\nFlags:\n")
	flag.PrintDefaults()
}

func main() {
	catalogPath := flag.String("catalog", "", "Read checkpoints and datasources from this YAML catalog")
	verbose := flag.Bool("verbose", false, "Log run progress to stderr")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if err := validateArgs(args); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n\n", err)
		usage()
		os.Exit(2)
	}

	cfg, err := config.LoadEnv("cli")
	if err != nil {
		fail("Failed to load config: %v", err)
	}
	if *catalogPath != "" {
		cfg.Repository.Driver = config.RepositoryCatalog
		cfg.Repository.CatalogPath = *catalogPath
	}

	if args[0] == "seal-password" {
		sealPassword(cfg, args[1])
		return
	}

	logger := zap.NewNop()
	if *verbose {
		if logger, err = logging.NewLogger("local", "debug"); err != nil {
			fail("Failed to create logger: %v", err)
		}
	}

	ctx := context.Background()
	store, err := repositories.OpenStore(ctx, cfg, logger)
	if err != nil {
		fail("Failed to open checkpoint repository: %v", err)
	}

	encryptor, err := crypto.NewOptionalEncryptor(cfg.CredentialsKey)
	if err != nil {
		fail("Invalid credentials key: %v", err)
	}
	resolver := config.NewHostResolver(cfg.Runner.RewriteLocalhostInDocker)
	factory := datasource.NewDatasourceAdapterFactory(nil, datasource.OpenOptions{
		ConnectTimeout:         cfg.Runner.ConnectTimeout(),
		Encrypt:                cfg.Runner.MSSQLEncrypt,
		TrustServerCertificate: cfg.Runner.MSSQLTrustServerCertificate,
	}, logger)

	code := 0
	switch args[0] {
	case "run-test", "run-detail":
		checkpointID, datasourceID := parseID(args[1]), parseID(args[2])
		svc := services.NewCheckpointService(store.Checkpoints, store.Datasources, encryptor, resolver,
			services.NewCheckpointRunner(factory, logger), logger)

		run := svc.RunTest
		if args[0] == "run-detail" {
			run = svc.RunDetail
		}
		result, err := run(ctx, checkpointID, datasourceID)
		if err != nil {
			fail("%v", err)
		}
		printJSON(result)
		code = exitCode(result.Status)

	case "check", "test-port":
		svc := services.NewDatasourceService(store.Datasources, encryptor, resolver, factory, services.DatasourceServiceOptions{
			CheckTimeout:     cfg.Runner.CheckTimeout(),
			PortProbeTimeout: cfg.Runner.PortProbeTimeout(),
		}, logger)

		check := svc.Check
		if args[0] == "test-port" {
			check = svc.TestPort
		}
		result, err := check(ctx, parseID(args[1]))
		if err != nil {
			fail("%v", err)
		}
		printJSON(result)
		if !result.OK {
			code = 2
		}
	}

	_ = store.Close()
	os.Exit(code)
}

// commandArgs is the number of arguments each command takes.
var commandArgs = map[string]int{
	"run-test":      2,
	"run-detail":    2,
	"check":         1,
	"test-port":     1,
	"seal-password": 1,
}

func validateArgs(args []string) error {
	if len(args) == 0 {
		return errors.New("missing command")
	}
	want, ok := commandArgs[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q", args[0])
	}
	if got := len(args) - 1; got != want {
		return fmt.Errorf("%s takes %d argument(s), got %d", args[0], want, got)
	}
	return nil
}

func sealPassword(cfg *config.Config, password string) {
	encryptor, err := crypto.NewCredentialEncryptor(cfg.CredentialsKey)
	if err != nil {
		fail("CHECKPOINT_CREDENTIALS_KEY is required to seal passwords: %v", err)
	}
	sealed, err := encryptor.Seal(password)
	if err != nil {
		fail("Failed to seal password: %v", err)
	}
	fmt.Println(sealed)
}

func exitCode(status models.RunStatus) int {
	switch status {
	case models.RunStatusFail:
		return 1
	case models.RunStatusError:
		return 2
	}
	return 0
}

func parseID(s string) int64 {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		fail("Invalid ID %q: must be a positive integer", s)
	}
	return id
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fail("Failed to encode result: %v", err)
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(2)
}
