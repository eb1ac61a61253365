package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultFileParses(t *testing.T) {
	var conf GeneralConfig

	require.NoError(t, readFile(&conf, PathToDefaultParamsFile))

	assert.Equal(t, 3*time.Minute, conf.ShortTimeout)
	assert.Equal(t, 10*time.Minute, conf.LongTimeout)
	assert.Equal(t, 3*time.Second, conf.PollInterval)
	assert.Equal(t, "admin@internal", conf.EngineUser)
	assert.Equal(t, 22, conf.SSHPort)
	assert.NotEmpty(t, conf.FailureDumpCommands)
}

func TestReadEnvOverrides(t *testing.T) {
	conf := GeneralConfig{EngineUser: "admin@internal", ShortTimeout: time.Minute}

	t.Setenv("OST_ENGINE_USER", "admin@ovirt")
	t.Setenv("OST_SHORT_TIMEOUT", "90s")
	t.Setenv("OST_HOST_NAMES", "host-0,host-1")
	t.Setenv("OST_ENGINE_URL", "https://engine.ost.local/ovirt-engine/api")

	require.NoError(t, readEnv(&conf))

	assert.Equal(t, "admin@ovirt", conf.EngineUser)
	assert.Equal(t, 90*time.Second, conf.ShortTimeout)
	assert.Equal(t, []string{"host-0", "host-1"}, conf.HostNames)
	assert.Equal(t, "engine.ost.local", conf.EngineFQDN)
}

func TestReadFileMissing(t *testing.T) {
	var conf GeneralConfig

	assert.Error(t, readFile(&conf, filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestGetJunitReportPath(t *testing.T) {
	conf := GeneralConfig{ReportsDirAbsPath: "/tmp/reports"}

	assert.Equal(t, "/tmp/reports/basic_suite_test_junit.xml", conf.GetJunitReportPath("/src/basic_suite_test.go"))
}

func TestGetDumpFailedTestReportLocation(t *testing.T) {
	reportsDir := filepath.Join(t.TempDir(), "reports")
	conf := GeneralConfig{ReportsDirAbsPath: reportsDir}

	assert.Empty(t, conf.GetDumpFailedTestReportLocation("basic_suite_test.go"))

	conf.DumpFailedTests = true

	assert.Equal(t, filepath.Join(reportsDir, "failed_basic_suite_test"),
		conf.GetDumpFailedTestReportLocation("basic_suite_test.go"))

	_, err := os.Stat(reportsDir)
	assert.NoError(t, err)
}

func TestEngineAPIURL(t *testing.T) {
	assert.Equal(t, "https://engine/ovirt-engine/api", (&GeneralConfig{EngineFQDN: "engine"}).EngineAPIURL())
	assert.Equal(t, "https://10.0.0.1/api", (&GeneralConfig{EngineURL: "https://10.0.0.1/api"}).EngineAPIURL())
}

func TestHostFromURL(t *testing.T) {
	assert.Equal(t, "engine", hostFromURL("https://engine:443/ovirt-engine/api"))
	assert.Equal(t, "fd00::2", hostFromURL("https://[fd00::2]/ovirt-engine/api"))
}
