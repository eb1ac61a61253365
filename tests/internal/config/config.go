package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

const (
	// PathToDefaultParamsFile path to config file with default parameters.
	PathToDefaultParamsFile = "./default.yaml"
)

// GeneralConfig type keeps general configuration.
type GeneralConfig struct {
	ReportsDirAbsPath   string        `yaml:"reports_dump_dir" envconfig:"OST_REPORTS_DUMP_DIR"`
	VerboseLevel        string        `yaml:"verbose_level" envconfig:"OST_VERBOSE_LEVEL"`
	DumpFailedTests     bool          `yaml:"dump_failed_tests" envconfig:"OST_DUMP_FAILED_TESTS"`
	DryRun              bool          `yaml:"dry_run" envconfig:"OST_DRY_RUN"`
	EngineURL           string        `yaml:"engine_url" envconfig:"OST_ENGINE_URL"`
	EngineUser          string        `yaml:"engine_user" envconfig:"OST_ENGINE_USER"`
	EnginePassword      string        `yaml:"engine_password" envconfig:"OST_ENGINE_PASSWORD"`
	EngineCAFile        string        `yaml:"engine_ca_file" envconfig:"OST_ENGINE_CA_FILE"`
	EngineInsecure      bool          `yaml:"engine_insecure" envconfig:"OST_ENGINE_INSECURE"`
	EngineFQDN          string        `yaml:"engine_fqdn" envconfig:"OST_ENGINE_FQDN"`
	EngineIP            string        `yaml:"engine_ip" envconfig:"OST_ENGINE_IP"`
	SSHUser             string        `yaml:"ssh_user" envconfig:"OST_SSH_USER"`
	SSHPassword         string        `yaml:"ssh_password" envconfig:"OST_SSH_PASSWORD"`
	SSHKeyPath          string        `envconfig:"OST_SSH_KEY_PATH"`
	SSHPort             int           `yaml:"ssh_port" envconfig:"OST_SSH_PORT"`
	HostNames           []string      `yaml:"host_names" envconfig:"OST_HOST_NAMES"`
	ShortTimeout        time.Duration `yaml:"short_timeout" envconfig:"OST_SHORT_TIMEOUT"`
	LongTimeout         time.Duration `yaml:"long_timeout" envconfig:"OST_LONG_TIMEOUT"`
	PollInterval        time.Duration `yaml:"poll_interval" envconfig:"OST_POLL_INTERVAL"`
	ClusterVersion      string        `yaml:"cluster_version" envconfig:"OST_CLUSTER_VERSION"`
	FailureDumpCommands []string      `yaml:"failure_dump_commands" envconfig:"OST_FAILURE_DUMP_COMMANDS"`
}

// NewConfig returns instance of GeneralConfig config type.
func NewConfig() *GeneralConfig {
	log.Print("Creating new GeneralConfig struct")

	var conf GeneralConfig

	_, filename, _, _ := runtime.Caller(0)
	baseDir := filepath.Dir(filename)
	confFile := filepath.Join(baseDir, PathToDefaultParamsFile)

	err := readFile(&conf, confFile)
	if err != nil {
		log.Printf("Error to read config file %s", confFile)

		return nil
	}

	err = readEnv(&conf)
	if err != nil {
		log.Print("Error to read environment variables")

		return nil
	}

	err = deployReportDir(conf.ReportsDirAbsPath)
	if err != nil {
		log.Printf("Error to deploy report directory %s due to %s", conf.ReportsDirAbsPath, err.Error())

		return nil
	}

	return &conf
}

// GetJunitReportPath returns full path to the junit report file.
func (cfg *GeneralConfig) GetJunitReportPath(file string) string {
	reportFileName := strings.TrimSuffix(filepath.Base(file), filepath.Ext(filepath.Base(file)))

	return fmt.Sprintf("%s_junit.xml", filepath.Join(cfg.ReportsDirAbsPath, reportFileName))
}

// GetDumpFailedTestReportLocation returns destination directory for failed tests logs.
func (cfg *GeneralConfig) GetDumpFailedTestReportLocation(file string) string {
	if cfg.DumpFailedTests {
		if _, err := os.Stat(cfg.ReportsDirAbsPath); os.IsNotExist(err) {
			err := os.MkdirAll(cfg.ReportsDirAbsPath, 0744)
			if err != nil {
				log.Fatalf("panic: Failed to create report dir due to %s", err)
			}
		}

		dumpFileName := strings.TrimSuffix(filepath.Base(file), filepath.Ext(filepath.Base(file)))

		return filepath.Join(cfg.ReportsDirAbsPath, fmt.Sprintf("failed_%s", dumpFileName))
	}

	return ""
}

// EngineAPIURL returns the engine API endpoint, derived from the engine FQDN when no URL is configured.
func (cfg *GeneralConfig) EngineAPIURL() string {
	if cfg.EngineURL != "" {
		return cfg.EngineURL
	}

	return fmt.Sprintf("https://%s/ovirt-engine/api", cfg.EngineFQDN)
}

func readFile(cfg *GeneralConfig, cfgFile string) error {
	openedCfgFile, err := os.Open(cfgFile)
	if err != nil {
		return err
	}

	defer func() {
		_ = openedCfgFile.Close()
	}()

	decoder := yaml.NewDecoder(openedCfgFile)

	err = decoder.Decode(&cfg)
	if err != nil {
		return err
	}

	return nil
}

func readEnv(cfg *GeneralConfig) error {
	err := envconfig.Process("", cfg)
	if err != nil {
		return err
	}

	if cfg.EngineFQDN == "" && cfg.EngineURL != "" {
		cfg.EngineFQDN = hostFromURL(cfg.EngineURL)
	}

	return nil
}

func hostFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	return parsed.Hostname()
}

func deployReportDir(dirName string) error {
	_, err := os.Stat(dirName)
	if os.IsNotExist(err) {
		return os.MkdirAll(dirName, 0777)
	}

	return err
}
