package basicparams

import (
	"github.com/ovirt/ost-gotests/tests/internal/params"
	"github.com/ovirt/ost-gotests/tests/ost/internal/ostparams"
)

var (
	// Labels represents the range of labels that can be used for test cases selection.
	Labels = []string{params.Label, ostparams.Label, Label}
)
