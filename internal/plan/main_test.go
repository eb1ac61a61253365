package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ovirt/ost-gotests/tests/internal/sequence"
	"github.com/ovirt/ost-gotests/tests/ost/internal/ostscenario"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintPlan(t *testing.T) {
	testCases := []struct {
		suite string
		first string
		last  string
	}{
		{suite: "", first: "[0] copy storage script {bootstrap}", last: "[202] assign labeled network {network-by-label}"},
		{suite: "basic", first: "[0] copy storage script {bootstrap}",
			last: "[202] assign labeled network {network-by-label}"},
		{suite: "sanity", first: "[0] add vm blank", last: "[10] hotplug disk"},
		{suite: "network-by-label", first: "[0] assign hosts network label", last: "[2] assign labeled network"},
	}

	for _, testCase := range testCases {
		var output bytes.Buffer

		require.NoError(t, printPlan(&output, testCase.suite))

		lines := strings.Split(strings.TrimSpace(output.String()), "\n")
		assert.Equal(t, testCase.first, lines[0], testCase.suite)
		assert.Equal(t, testCase.last, lines[len(lines)-1], testCase.suite)
		assert.NotContains(t, output.String(), "warning:", testCase.suite)
	}
}

func TestPrintPlanUnknownSuite(t *testing.T) {
	var output bytes.Buffer

	err := printPlan(&output, "missing")
	assert.EqualError(t, err, `unknown suite "missing", expected one of basic, bootstrap, network-by-label, sanity`)
	assert.Empty(t, output.String())
}

func TestPrintPlanDuplicateNames(t *testing.T) {
	suites["duplicated"] = func(*ostscenario.Env) []sequence.Case {
		return []sequence.Case{
			sequence.New("add dc", 0, nil),
			sequence.New("add dc", 1, nil),
		}
	}

	defer delete(suites, "duplicated")

	var output bytes.Buffer

	err := printPlan(&output, "duplicated")
	assert.EqualError(t, err, `suite duplicated: case "add dc" is already registered`)
	assert.Empty(t, output.String())
}
