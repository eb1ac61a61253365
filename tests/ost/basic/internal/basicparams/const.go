package basicparams

const (
	// Label represents the basic suite label that can be used for test cases selection.
	Label = "basic"
)
