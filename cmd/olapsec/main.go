package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/mmcdole/olapsec/pkg/access"
	"github.com/mmcdole/olapsec/pkg/logging"
	"github.com/mmcdole/olapsec/pkg/olap"
	"github.com/mmcdole/olapsec/pkg/policy"
	"github.com/mmcdole/olapsec/pkg/roles"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	version     = "dev" // Will be set during build
	cfgFile     string
	showVersion bool
)

func main() {
	cobra.CheckErr(rootCmd.Execute())
}

var rootCmd = &cobra.Command{
	Use:           "olapsec",
	Short:         "Role-based access checks for OLAP catalogs",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `olapsec evaluates role grants against a multidimensional catalog.

Configuration file must be in JSON format (comments allowed):
{
    "catalog_path": "catalog.yaml",
    "policy_path": "policy.yaml",
    "policy_cache_time": 60,
    "member_cache_size": 4096,
    "audit_log_path": "/var/log/olapsec/audit.log",
    "log_level": "info"
}`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Fprintf(cmd.OutOrStdout(), "olapsec %s\n", version)
			return nil
		}
		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to config file (required)")
	rootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "show version information")

	rootCmd.AddCommand(newCheckCmd(), newReportCmd(), newRolesCmd())
}

// environment is everything a command needs once the config is loaded
type environment struct {
	config  Config
	catalog *olap.Catalog
	roles   *roles.Repository
}

func loadEnvironment(fs afero.Fs) (*environment, error) {
	if cfgFile == "" {
		return nil, fmt.Errorf("config file is required (use --config)")
	}

	path := cfgFile
	if !filepath.IsAbs(path) {
		var err error
		path, err = filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path: %v", err)
		}
	}

	var config Config
	if err := LoadConfig(fs, path, &config); err != nil {
		return nil, fmt.Errorf("failed to load config: %v", err)
	}

	logConfig := logging.Config{
		AuditLogPath: config.AuditLogPath,
		AppLogPath:   config.AppLogPath,
		Level:        logging.LogLevel(config.LogLevel),
		MaxSize:      config.LogMaxSize,
	}
	if err := logging.Initialize(logConfig); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %v", err)
	}

	catalog, err := olap.LoadCatalog(fs, config.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %v", err)
	}

	repository, err := roles.NewRepository(
		policy.NewFileSource(fs, config.PolicyPath),
		catalog,
		time.Duration(config.PolicyCacheTime)*time.Second,
		policy.Options{MemberCacheSize: config.MemberCacheSize},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load roles: %v", err)
	}

	logging.App.Debug("Loaded environment", "catalog", catalog.Name(), "roles", len(repository.RoleNames()))
	return &environment{config: config, catalog: catalog, roles: repository}, nil
}

// authorizer resolves --role or --user to an audited authorizer
func (e *environment) authorizer(roleNames []string, user string) (access.Authorizer, string, error) {
	switch {
	case len(roleNames) > 0 && user != "":
		return nil, "", fmt.Errorf("use either --role or --user")
	case len(roleNames) > 0:
		a, err := e.roles.Resolve(roleNames...)
		if err != nil {
			return nil, "", err
		}
		name := fmt.Sprint(roleNames)
		return access.NewAuditor(name, a, nil), name, nil
	case user != "":
		a, err := e.roles.ResolvePrincipal(user)
		if err != nil {
			return nil, "", err
		}
		return access.NewAuditor(user, a, nil), user, nil
	}
	return nil, "", fmt.Errorf("one of --role or --user is required")
}

func (e *environment) cube(name string) (*olap.CatalogCube, error) {
	c, ok := e.catalog.Cube(name)
	if !ok {
		return nil, fmt.Errorf("cube %q not found", name)
	}
	return c, nil
}
