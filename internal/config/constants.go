package config

// Application constants
const (
	AppName    = "salesreport"
	AppVersion = "1.0.0"

	// DefaultEnvFile is read from the working directory when no --env-file is given.
	DefaultEnvFile = ".env"
	// ConfigFileEnv names the variable holding the YAML config path.
	ConfigFileEnv = "REPORT_CONFIG_FILE"

	DefaultLogFile         = "logs/automation.log"
	DefaultFilePrefix      = "Daily_Sales_Report"
	DefaultCategoricalFill = "Unknown"

	// DateLayout is the canonical date format for file names and cleaned dates.
	DateLayout = "2006-01-02"
	// WorkbookExt is the extension of the exported report.
	WorkbookExt = ".xlsx"
)
