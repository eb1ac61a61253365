package inittools

import (
	"flag"
	"os"

	"github.com/golang/glog"
	"github.com/ovirt/ost-gotests/pkg/clients"
	"github.com/ovirt/ost-gotests/tests/internal/await"
	"github.com/ovirt/ost-gotests/tests/internal/config"
)

var (
	// APIClient provides access to the engine.
	APIClient *clients.Settings
	// GeneralConfig provides access to general configuration parameters.
	GeneralConfig *config.GeneralConfig
	// Waiter carries the configured poll interval and the short and long timeout classes.
	Waiter = await.DefaultWaiter()
)

// init loads all variables automatically when this package is imported. Once package is imported a user has full
// access to all vars within init function. It is recommended to import this package using dot import.
func init() {
	// Skip loading config if running unit tests
	if os.Getenv("UNIT_TEST") == "true" {
		return
	}

	if GeneralConfig = config.NewConfig(); GeneralConfig == nil {
		glog.Fatalf("error to load general config")
	}

	_ = flag.Lookup("logtostderr").Value.Set("true")
	_ = flag.Lookup("v").Value.Set(GeneralConfig.VerboseLevel)

	Waiter = await.NewWaiter(GeneralConfig.PollInterval, GeneralConfig.ShortTimeout, GeneralConfig.LongTimeout)

	APIClient = clients.New(
		GeneralConfig.EngineAPIURL(),
		GeneralConfig.EngineUser,
		GeneralConfig.EnginePassword,
		GeneralConfig.EngineCAFile,
		GeneralConfig.EngineInsecure)
	if APIClient == nil {
		if GeneralConfig.DryRun {
			return
		}

		glog.Exitf("can not connect to the engine. Please check OST_ENGINE_URL and the engine credentials")
	}
}
