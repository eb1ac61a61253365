package vm

import (
	"fmt"

	"github.com/golang/glog"
	"github.com/google/uuid"
	ovirtsdk4 "github.com/ovirt/go-ovirt"
)

// CorrelationID returns a fresh id used to find the engine jobs started by a single request.
func CorrelationID() string {
	return uuid.NewString()
}

// SnapshotSpec describes a snapshot to take.
type SnapshotSpec struct {
	Description   string
	PersistMemory bool
	// DiskIDs limits the snapshot to these disks. Empty means every disk.
	DiskIDs []string
}

// CreateSnapshot takes a snapshot tagged with correlationID.
func (builder *Builder) CreateSnapshot(spec SnapshotSpec, correlationID string) (*ovirtsdk4.Snapshot, error) {
	if !builder.Exists() {
		return nil, fmt.Errorf("cannot snapshot non-existent vm %s", builder.Definition.MustName())
	}

	glog.V(100).Infof("Creating snapshot %q of vm %s correlation id %s",
		spec.Description, builder.Definition.MustName(), correlationID)

	snapshot := ovirtsdk4.NewSnapshotBuilder().Description(spec.Description).PersistMemorystate(spec.PersistMemory)

	if len(spec.DiskIDs) > 0 {
		attachments := make([]*ovirtsdk4.DiskAttachment, 0, len(spec.DiskIDs))
		for _, diskID := range spec.DiskIDs {
			attachments = append(attachments, ovirtsdk4.NewDiskAttachmentBuilder().
				Disk(ovirtsdk4.NewDiskBuilder().Id(diskID).MustBuild()).
				MustBuild())
		}

		snapshot.DiskAttachmentsOfAny(attachments...)
	}

	request := builder.service().SnapshotsService().Add().Snapshot(snapshot.MustBuild())
	if correlationID != "" {
		request.Query("correlation_id", correlationID)
	}

	response, err := request.Send()
	if err != nil {
		return nil, err
	}

	return response.MustSnapshot(), nil
}

// Snapshots returns the VM snapshots, the active one included, in engine order.
func (builder *Builder) Snapshots() ([]*ovirtsdk4.Snapshot, error) {
	if !builder.Exists() {
		return nil, fmt.Errorf("vm %s does not exist", builder.Definition.MustName())
	}

	response, err := builder.service().SnapshotsService().List().Send()
	if err != nil {
		return nil, err
	}

	snapshots, ok := response.Snapshots()
	if !ok {
		return nil, nil
	}

	return snapshots.Slice(), nil
}

// SnapshotsOK tells whether every snapshot is in the ok state.
func (builder *Builder) SnapshotsOK() (bool, error) {
	snapshots, err := builder.Snapshots()
	if err != nil {
		return false, err
	}

	for _, snapshot := range snapshots {
		if status, _ := snapshot.SnapshotStatus(); status != ovirtsdk4.SNAPSHOTSTATUS_OK {
			return false, nil
		}
	}

	return true, nil
}

// RemoveSnapshot removes the snapshot with snapshotID, merging it into its neighbour.
func (builder *Builder) RemoveSnapshot(snapshotID, correlationID string) error {
	if !builder.Exists() {
		return fmt.Errorf("vm %s does not exist", builder.Definition.MustName())
	}

	glog.V(100).Infof("Removing snapshot %s of vm %s correlation id %s",
		snapshotID, builder.Definition.MustName(), correlationID)

	request := builder.service().SnapshotsService().SnapshotService(snapshotID).Remove()
	if correlationID != "" {
		request.Query("correlation_id", correlationID)
	}

	_, err := request.Send()

	return err
}

// JobsFinished tells whether every engine job tagged with correlationID has finished. No jobs yet means not
// finished.
func (builder *Builder) JobsFinished(correlationID string) (bool, error) {
	if valid, err := builder.validate(); !valid {
		return false, err
	}

	response, err := builder.apiClient.SystemService().JobsService().List().
		Search("correlation_id=" + correlationID).Send()
	if err != nil {
		return false, err
	}

	jobs, ok := response.Jobs()
	if !ok || len(jobs.Slice()) == 0 {
		return false, nil
	}

	for _, job := range jobs.Slice() {
		status, _ := job.Status()

		glog.V(100).Infof("Job %s for correlation id %s is %s", job.MustId(), correlationID, status)

		if status != ovirtsdk4.JOBSTATUS_FINISHED {
			return false, nil
		}
	}

	return true, nil
}
