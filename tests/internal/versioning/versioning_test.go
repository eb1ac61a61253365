package versioning

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCompatibility(t *testing.T) {
	testCases := []struct {
		raw           string
		expected      Compatibility
		expectedError bool
	}{
		{raw: "4.7", expected: Compatibility{Major: 4, Minor: 7}},
		{raw: "4.4.10", expected: Compatibility{Major: 4, Minor: 4}},
		{raw: "4", expected: Compatibility{Major: 4, Minor: 0}},
		{raw: "four", expectedError: true},
	}

	for _, testCase := range testCases {
		compatibility, err := ParseCompatibility(testCase.raw)

		if testCase.expectedError {
			assert.Error(t, err)

			continue
		}

		assert.NoError(t, err)
		assert.Equal(t, testCase.expected, compatibility)
	}
}

func TestCompatibilityString(t *testing.T) {
	assert.Equal(t, "4.7", Compatibility{Major: 4, Minor: 7}.String())
}

func TestAtLeast(t *testing.T) {
	testCases := []struct {
		current        string
		minimum        string
		expectedResult bool
		expectedError  error
	}{
		{current: "4.4.1", minimum: "4.4", expectedResult: true},
		{current: "4.3.9", minimum: "4.4", expectedResult: false},
		{current: "4.5", minimum: "4.5.0", expectedResult: true},
		{current: "bad", minimum: "4.4", expectedError: fmt.Errorf("invalid version provided: 'bad'")},
		{current: "4.4", minimum: "bad", expectedError: fmt.Errorf("invalid minimum provided: 'bad'")},
	}

	for _, testCase := range testCases {
		result, err := AtLeast(testCase.current, testCase.minimum)

		assert.Equal(t, testCase.expectedResult, result)
		assert.Equal(t, testCase.expectedError, err)
	}
}

func TestRequirement(t *testing.T) {
	meets, message := Requirement("4.4.0", "4.3")
	assert.True(t, meets)
	assert.Empty(t, message)

	meets, message = Requirement("4.2.0", "4.3")
	assert.False(t, meets)
	assert.Equal(t, "version 4.2.0 does not meet requirement 4.3", message)
}
