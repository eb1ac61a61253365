package uiparams

import (
	"time"

	"github.com/ovirt/ost-gotests/tests/internal/params"
	"github.com/ovirt/ost-gotests/tests/ost/internal/ostparams"
)

const (
	// WebAdminPath is the engine administration portal.
	WebAdminPath = "/ovirt-engine/webadmin/"
	// GridStartTimeout bounds pulling the images and starting the grid.
	GridStartTimeout = 10 * time.Minute
)

var (
	// Labels represents the range of labels that can be used for test cases selection.
	Labels = []string{params.Label, ostparams.Label, ostparams.LabelUI}
)
