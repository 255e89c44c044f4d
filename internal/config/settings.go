package config

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/viper"
)

// SettingType represents the type of a setting
type SettingType string

const (
	// String type for string settings
	String SettingType = "string"
	// Bool type for boolean settings
	Bool SettingType = "bool"
	// Int type for integer settings
	Int SettingType = "int"
	// Duration type for time.Duration settings
	Duration SettingType = "duration"
	// StringSlice type for string slice settings
	StringSlice SettingType = "stringSlice"
)

// Setting defines a configuration setting
type Setting struct {
	// Name is the name of the setting
	Name string
	// Short is a short description of the setting
	Short string
	// Type is the type of the setting
	Type SettingType
	// Default is the default value of the setting
	Default interface{}
}

// Env returns the environment variable that overrides the setting
func (s Setting) Env() string {
	return EnvPrefix + "_" + s.Name
}

// SettingList is a list of settings
type SettingList []Setting

// PopulateViperDefaults sets default values for all settings in Viper
func (sl SettingList) PopulateViperDefaults(v *viper.Viper) {
	for _, s := range sl {
		v.SetDefault(s.Name, s.Default)
	}
}

// PrintUsage writes a table of every setting with its environment variable and default
func (sl SettingList) PrintUsage(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ENV\tTYPE\tDEFAULT\tDESCRIPTION")
	for _, s := range sl {
		fmt.Fprintf(tw, "%s\t%s\t%v\t%s\n", s.Env(), s.Type, s.Default, s.Short)
	}
	return tw.Flush()
}

// Settings defines all application settings
var Settings = SettingList{
	// Server settings
	{
		Name:    "SERVER_ADDR",
		Short:   "Address on which the server listens",
		Type:    String,
		Default: ":8000",
	},
	{
		Name:    "METRICS_ADDR",
		Short:   "Address on which the metrics server listens",
		Type:    String,
		Default: ":9090",
	},
	{
		Name:    "SHUTDOWN_TIMEOUT",
		Short:   "Maximum time to wait for graceful shutdown",
		Type:    Duration,
		Default: "30s",
	},

	// TLS settings
	{
		Name:    "TLS_ENABLED",
		Short:   "Serve HTTPS",
		Type:    Bool,
		Default: false,
	},
	{
		Name:    "TLS_CERT_PATH",
		Short:   "Path to TLS certificate file",
		Type:    String,
		Default: "",
	},
	{
		Name:    "TLS_KEY_PATH",
		Short:   "Path to TLS key file",
		Type:    String,
		Default: "",
	},
	{
		Name:    "TLS_CLIENT_CA_PATHS",
		Short:   "CA certificates that client certificates must chain to",
		Type:    StringSlice,
		Default: []string{},
	},
	{
		Name:    "TLS_REQUIRE_CLIENT_CERT",
		Short:   "Reject connections without a client certificate",
		Type:    Bool,
		Default: false,
	},

	// Authentication: trusted headers
	{
		Name:    "AUTH_HEADER_ENABLED",
		Short:   "Fall back to identity headers set by a trusted proxy",
		Type:    Bool,
		Default: false,
	},
	{
		Name:    "AUTH_HEADER_USERNAME",
		Short:   "Header carrying the username",
		Type:    String,
		Default: "X-Remote-User",
	},
	{
		Name:    "AUTH_HEADER_GROUP",
		Short:   "Header carrying group memberships",
		Type:    String,
		Default: "X-Remote-Group",
	},

	// Health
	{
		Name:    "HEALTH_FAILURE_STATUS",
		Short:   "HTTP status for failing health checks, 0 keeps 200",
		Type:    Int,
		Default: 0,
	},

	// Observability
	{
		Name:    "LOG_LEVEL",
		Short:   "Logging level (debug, info, warn, error)",
		Type:    String,
		Default: "info",
	},
	{
		Name:    "LOG_FORMAT",
		Short:   "Logging format (text, json)",
		Type:    String,
		Default: "text",
	},
}
