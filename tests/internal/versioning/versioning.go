package versioning

import (
	"fmt"

	"github.com/hashicorp/go-version"
)

// Compatibility is a cluster compatibility level, the major.minor pair data centers and clusters are created with.
type Compatibility struct {
	Major int64
	Minor int64
}

// String returns major.minor.
func (compatibility Compatibility) String() string {
	return fmt.Sprintf("%d.%d", compatibility.Major, compatibility.Minor)
}

// ParseCompatibility reads a compatibility level from a version string such as 4.7 or 4.7.8.
func ParseCompatibility(raw string) (Compatibility, error) {
	parsed, err := version.NewVersion(raw)
	if err != nil {
		return Compatibility{}, fmt.Errorf("invalid compatibility version %q: %w", raw, err)
	}

	segments := parsed.Segments64()

	return Compatibility{Major: segments[0], Minor: segments[1]}, nil
}

// AtLeast tells whether current is greater than or equal to minimum.
func AtLeast(current, minimum string) (bool, error) {
	currentVersion, err := version.NewVersion(current)
	if err != nil {
		return false, fmt.Errorf("invalid version provided: '%s'", current)
	}

	minimumVersion, err := version.NewVersion(minimum)
	if err != nil {
		return false, fmt.Errorf("invalid minimum provided: '%s'", minimum)
	}

	return !currentVersion.LessThan(minimumVersion), nil
}

// Requirement checks that current meets minimum and returns a message explaining why it does not.
func Requirement(current, minimum string) (bool, string) {
	meets, err := AtLeast(current, minimum)
	if err != nil {
		return false, err.Error()
	}

	if !meets {
		return false, fmt.Sprintf("version %s does not meet requirement %s", current, minimum)
	}

	return true, ""
}
