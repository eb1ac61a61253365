package datacenter

import (
	"fmt"

	"github.com/golang/glog"
	ovirtsdk4 "github.com/ovirt/go-ovirt"
	"github.com/ovirt/ost-gotests/pkg/clients"
)

// Builder provides struct for data center object which contains connection to the engine and data center
// definition.
type Builder struct {
	// Data center definition. Used to create the data center object.
	Definition *ovirtsdk4.DataCenter
	// Created data center object.
	Object *ovirtsdk4.DataCenter
	// Used in functions that define or mutate the data center definition. errorMsg is processed before the
	// data center object is created.
	errorMsg  string
	apiClient *clients.Settings
}

// NewBuilder creates new instance of Builder for a shared data center.
func NewBuilder(apiClient *clients.Settings, name string) *Builder {
	glog.V(100).Infof("Initializing new data center structure with name: %s", name)

	builder := Builder{
		apiClient:  apiClient,
		Definition: ovirtsdk4.NewDataCenterBuilder().Name(name).Local(false).MustBuild(),
	}

	if apiClient == nil {
		builder.errorMsg = "data center 'apiClient' cannot be nil"
	}

	if name == "" {
		builder.errorMsg = "data center 'name' cannot be empty"
	}

	return &builder
}

// Pull loads an existing data center into Builder struct.
func Pull(apiClient *clients.Settings, name string) (*Builder, error) {
	glog.V(100).Infof("Pulling existing data center name: %s", name)

	builder := NewBuilder(apiClient, name)
	if builder.errorMsg != "" {
		return nil, fmt.Errorf("%s", builder.errorMsg)
	}

	if !builder.Exists() {
		return nil, fmt.Errorf("data center object %s does not exist", name)
	}

	builder.Definition = builder.Object

	return builder, nil
}

// WithDescription sets the data center description.
func (builder *Builder) WithDescription(description string) *Builder {
	if valid, _ := builder.validate(); !valid {
		return builder
	}

	builder.Definition.SetDescription(description)

	return builder
}

// WithLocal sets whether the data center uses local storage.
func (builder *Builder) WithLocal(local bool) *Builder {
	if valid, _ := builder.validate(); !valid {
		return builder
	}

	builder.Definition.SetLocal(local)

	return builder
}

// WithVersion sets the compatibility version of the data center.
func (builder *Builder) WithVersion(major, minor int64) *Builder {
	if valid, _ := builder.validate(); !valid {
		return builder
	}

	if major <= 0 {
		builder.errorMsg = "data center version major must be positive"

		return builder
	}

	builder.Definition.SetVersion(ovirtsdk4.NewVersionBuilder().Major(major).Minor(minor).MustBuild())

	return builder
}

// WithQuotaMode sets the quota enforcement mode.
func (builder *Builder) WithQuotaMode(mode ovirtsdk4.QuotaModeType) *Builder {
	if valid, _ := builder.validate(); !valid {
		return builder
	}

	builder.Definition.SetQuotaMode(mode)

	return builder
}

// Create makes a data center according to the definition and stores the created object in the builder.
func (builder *Builder) Create() (*Builder, error) {
	if valid, err := builder.validate(); !valid {
		return builder, err
	}

	glog.V(100).Infof("Creating data center %s", builder.Definition.MustName())

	if builder.Exists() {
		return builder, nil
	}

	response, err := builder.apiClient.SystemService().DataCentersService().Add().DataCenter(builder.Definition).Send()
	if err != nil {
		return builder, err
	}

	builder.Object = response.MustDataCenter()

	return builder, nil
}

// Update pushes the definition to the existing data center. Only the attributes set on the definition change.
func (builder *Builder) Update() (*Builder, error) {
	if valid, err := builder.validate(); !valid {
		return builder, err
	}

	if !builder.Exists() {
		return builder, fmt.Errorf("cannot update non-existent data center %s", builder.Definition.MustName())
	}

	glog.V(100).Infof("Updating data center %s", builder.Definition.MustName())

	response, err := builder.apiClient.SystemService().DataCentersService().
		DataCenterService(builder.Object.MustId()).Update().DataCenter(builder.Definition).Send()
	if err != nil {
		return builder, err
	}

	builder.Object = response.MustDataCenter()

	return builder, nil
}

// Delete removes the data center.
func (builder *Builder) Delete() error {
	if valid, err := builder.validate(); !valid {
		return err
	}

	if !builder.Exists() {
		return nil
	}

	glog.V(100).Infof("Deleting data center %s", builder.Definition.MustName())

	_, err := builder.apiClient.SystemService().DataCentersService().
		DataCenterService(builder.Object.MustId()).Remove().Send()
	if err != nil {
		return err
	}

	builder.Object = nil

	return nil
}

// Exists tells whether the data center exists and refreshes Object.
func (builder *Builder) Exists() bool {
	if valid, _ := builder.validate(); !valid {
		return false
	}

	name := builder.Definition.MustName()

	glog.V(100).Infof("Checking if data center %s exists", name)

	response, err := builder.apiClient.SystemService().DataCentersService().List().Search("name=" + name).Send()
	if err != nil {
		glog.V(100).Infof("Failed to list data centers: %v", err)

		return false
	}

	dataCenters, ok := response.DataCenters()
	if !ok || len(dataCenters.Slice()) == 0 {
		return false
	}

	builder.Object = dataCenters.Slice()[0]

	return true
}

// AddQuota adds a quota to the data center.
func (builder *Builder) AddQuota(name, description string, clusterSoftLimitPct int64) (*ovirtsdk4.Quota, error) {
	if !builder.Exists() {
		return nil, fmt.Errorf("cannot add quota to non-existent data center %s", builder.Definition.MustName())
	}

	glog.V(100).Infof("Adding quota %s to data center %s", name, builder.Definition.MustName())

	quota, err := ovirtsdk4.NewQuotaBuilder().
		Name(name).
		Description(description).
		DataCenter(builder.Object).
		ClusterSoftLimitPct(clusterSoftLimitPct).
		Build()
	if err != nil {
		return nil, err
	}

	response, err := builder.apiClient.SystemService().DataCentersService().
		DataCenterService(builder.Object.MustId()).QuotasService().Add().Quota(quota).Send()
	if err != nil {
		return nil, err
	}

	return response.MustQuota(), nil
}

// SetQuotaStorageLimit replaces the quota wide storage limit of the named quota with limitGB.
func (builder *Builder) SetQuotaStorageLimit(quotaName string, limitGB int64) error {
	quotaService, err := builder.quotaService(quotaName)
	if err != nil {
		return err
	}

	limitsService := quotaService.QuotaStorageLimitsService()

	response, err := limitsService.List().Send()
	if err != nil {
		return err
	}

	if limits, ok := response.Limits(); ok {
		for _, limit := range limits.Slice() {
			if _, perDomain := limit.StorageDomain(); perDomain {
				continue
			}

			glog.V(100).Infof("Removing storage limit %s of quota %s", limit.MustId(), quotaName)

			if _, err := limitsService.LimitService(limit.MustId()).Remove().Send(); err != nil {
				return err
			}
		}
	}

	glog.V(100).Infof("Setting storage limit of quota %s to %d GB", quotaName, limitGB)

	_, err = limitsService.Add().Limit(ovirtsdk4.NewQuotaStorageLimitBuilder().Limit(limitGB).MustBuild()).Send()

	return err
}

// AddQuotaClusterLimit adds a quota wide cluster limit of vcpus and memoryGB to the named quota.
func (builder *Builder) AddQuotaClusterLimit(quotaName string, vcpus int64, memoryGB float64) error {
	quotaService, err := builder.quotaService(quotaName)
	if err != nil {
		return err
	}

	glog.V(100).Infof("Adding cluster limit of %d vcpus and %.0f GB to quota %s", vcpus, memoryGB, quotaName)

	limit := ovirtsdk4.NewQuotaClusterLimitBuilder().VcpuLimit(vcpus).MemoryLimit(memoryGB).MustBuild()

	_, err = quotaService.QuotaClusterLimitsService().Add().Limit(limit).Send()

	return err
}

func (builder *Builder) quotaService(name string) (*ovirtsdk4.QuotaService, error) {
	if !builder.Exists() {
		return nil, fmt.Errorf("data center %s does not exist", builder.Definition.MustName())
	}

	quotasService := builder.apiClient.SystemService().DataCentersService().
		DataCenterService(builder.Object.MustId()).QuotasService()

	response, err := quotasService.List().Send()
	if err != nil {
		return nil, err
	}

	if quotas, ok := response.Quotas(); ok {
		for _, quota := range quotas.Slice() {
			if quotaName, _ := quota.Name(); quotaName == name {
				return quotasService.QuotaService(quota.MustId()), nil
			}
		}
	}

	return nil, fmt.Errorf("quota %s does not exist in data center %s", name, builder.Definition.MustName())
}

// AddQos adds a quality of service entry to the data center.
func (builder *Builder) AddQos(qos *ovirtsdk4.Qos) (*ovirtsdk4.Qos, error) {
	if qos == nil {
		return nil, fmt.Errorf("qos cannot be nil")
	}

	if !builder.Exists() {
		return nil, fmt.Errorf("cannot add qos to non-existent data center %s", builder.Definition.MustName())
	}

	glog.V(100).Infof("Adding qos %s to data center %s", qos.MustName(), builder.Definition.MustName())

	response, err := builder.apiClient.SystemService().DataCentersService().
		DataCenterService(builder.Object.MustId()).QossService().Add().Qos(qos).Send()
	if err != nil {
		return nil, err
	}

	return response.MustQos(), nil
}

func (builder *Builder) validate() (bool, error) {
	if builder == nil {
		glog.V(100).Info("The data center builder is uninitialized")

		return false, fmt.Errorf("error: received nil data center builder")
	}

	if builder.Definition == nil {
		glog.V(100).Info("The data center is undefined")

		return false, fmt.Errorf("can not redefine the undefined data center")
	}

	if builder.apiClient == nil {
		glog.V(100).Info("The data center builder apiclient is nil")

		return false, fmt.Errorf("data center builder cannot have nil apiClient")
	}

	if builder.errorMsg != "" {
		glog.V(100).Infof("The data center builder has error message: %s", builder.errorMsg)

		return false, fmt.Errorf("%s", builder.errorMsg)
	}

	return true, nil
}
