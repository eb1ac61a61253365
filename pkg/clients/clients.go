package clients

import (
	"fmt"
	"time"

	"github.com/golang/glog"
	ovirtsdk4 "github.com/ovirt/go-ovirt"
)

// DefaultTimeout bounds a single request to the engine API.
const DefaultTimeout = 2 * time.Minute

// Settings provides the struct to talk with the engine API.
type Settings struct {
	*ovirtsdk4.Connection
	URL string
}

// New returns a *Settings connected to the engine API at url. The CA file is only used when insecure is false.
// Returns nil if the connection cannot be built.
func New(url, user, password, caFile string, insecure bool) *Settings {
	if url == "" {
		glog.V(4).Info("Engine API URL is empty")

		return nil
	}

	glog.V(4).Infof("Building engine API connection to %s as %s", url, user)

	connectionBuilder := ovirtsdk4.NewConnectionBuilder().
		URL(url).
		Username(user).
		Password(password).
		Insecure(insecure).
		Compress(true).
		Timeout(DefaultTimeout)

	if !insecure && caFile != "" {
		connectionBuilder = connectionBuilder.CAFile(caFile)
	}

	connection, err := connectionBuilder.Build()
	if err != nil {
		glog.V(4).Infof("Failed to build engine API connection: %v", err)

		return nil
	}

	return &Settings{Connection: connection, URL: url}
}

// Check verifies that the engine API answers with the configured credentials.
func (settings *Settings) Check() error {
	if settings == nil || settings.Connection == nil {
		return fmt.Errorf("engine API connection is not initialized")
	}

	return settings.Test()
}
