package systemreporter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	re "regexp"
	"strings"

	"github.com/golang/glog"
	"github.com/onsi/ginkgo/v2/types"
	"github.com/ovirt/ost-gotests/tests/internal/remote"
	"github.com/ovirt/ost-gotests/tests/internal/testevent"
	"github.com/walle/targz"
)

var (
	// Matches option hypens, spaces, and special characters.
	specialChars = re.MustCompile(`-?\s-?|[/|'"\.\[\]]`)

	// Matches duplicate underscores.
	dupUnderscores = re.MustCompile(`__+`)

	// Matches leading and trailing underscores.
	leadAndTrailUnderscores = re.MustCompile(`^_|_$`)
)

// Target is a machine the reporter can run dump commands on.
type Target struct {
	Name     string
	Executor remote.Executor
}

// EventLog returns the newest engine events.
type EventLog interface {
	Latest(ctx context.Context, limit int64) ([]testevent.Event, error)
}

// ReportIfFailed dumps the output of commands from every target and the latest engine events into
// <dumpDir>/<spec name>/system when the spec failed and packs the folder into system.tar.gz. Nothing is written for
// passed or skipped specs, or when dumpDir is empty.
func ReportIfFailed(
	ctx context.Context, report types.SpecReport, dumpDir string, commands []string, targets []Target, log EventLog) {
	if dumpDir == "" || !types.SpecStateFailureStates.Is(report.State) {
		return
	}

	systemFolder := SystemFolder(dumpDir, report.FullText())

	err := os.MkdirAll(systemFolder, 0755)
	if err != nil {
		glog.Errorf("failed to create directory for storing system info %s", err)

		return
	}

	GatherCommandOutput(ctx, commands, systemFolder, targets)

	if log != nil {
		GatherEvents(ctx, systemFolder, log, 100)
	}

	if _, err := Archive(systemFolder); err != nil {
		glog.Errorf("failed to archive %s: %s", systemFolder, err)
	}
}

// Archive packs folder into <folder>.tar.gz next to it and returns the archive path.
func Archive(folder string) (string, error) {
	archive := filepath.Clean(folder) + ".tar.gz"

	err := targz.Compress(folder, archive)
	if err != nil {
		return "", err
	}

	return archive, nil
}

// SystemFolder returns the folder a failed spec's dumps go to.
func SystemFolder(dumpDir, specText string) string {
	return filepath.Join(dumpDir, strings.ReplaceAll(specText, " ", "_"), "system")
}

// GatherCommandOutput runs every command on every target and writes each output to
// <outputDir>/<target>_<command>. Failures are logged and the remaining commands still run.
func GatherCommandOutput(ctx context.Context, commands []string, outputDir string, targets []Target) {
	for _, target := range targets {
		for _, command := range commands {
			output, err := target.Executor.Run(ctx, "sh", "-c", command)
			if err != nil {
				glog.Errorf("error executing command '%s' on %s: %s", command, target.Name, err)

				continue
			}

			fileName := filepath.Join(outputDir, target.Name+"_"+fileNameFromCommand(command))

			err = os.WriteFile(fileName, []byte(output), 0650)
			if err != nil {
				glog.Errorf("error writing to file: %s", err)
			}
		}
	}
}

// GatherEvents writes the newest engine events, one per line, to <outputDir>/engine_events.
func GatherEvents(ctx context.Context, outputDir string, log EventLog, limit int64) {
	events, err := log.Latest(ctx, limit)
	if err != nil {
		glog.Errorf("failed to read engine events: %s", err)

		return
	}

	var builder strings.Builder

	for _, event := range events {
		fmt.Fprintf(&builder, "%d\t%d\t%s\n", event.ID, event.Code, event.Description)
	}

	err = os.WriteFile(filepath.Join(outputDir, "engine_events"), []byte(builder.String()), 0650)
	if err != nil {
		glog.Errorf("error writing to file: %s", err)
	}
}

func fileNameFromCommand(command string) string {
	fileName := command

	// Replace option hypens, spaces, and special characters with underscores everywhere in the command.
	fileName = specialChars.ReplaceAllString(fileName, "_")

	// Remove repeated underscores
	fileName = dupUnderscores.ReplaceAllString(fileName, "_")

	// Remove leading and trailing underscores
	fileName = leadAndTrailUnderscores.ReplaceAllString(fileName, "")

	return fileName
}
