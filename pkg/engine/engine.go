// Package engine holds operations on engine wide entities that have no lifecycle of their own in the suites.
package engine

import (
	"fmt"
	"slices"

	"github.com/golang/glog"
	"github.com/ovirt/ost-gotests/pkg/clients"
)

// Version returns the full engine product version.
func Version(apiClient *clients.Settings) (string, error) {
	if apiClient == nil {
		return "", fmt.Errorf("engine 'apiClient' cannot be nil")
	}

	response, err := apiClient.SystemService().Get().Send()
	if err != nil {
		return "", err
	}

	api, ok := response.Api()
	if !ok {
		return "", fmt.Errorf("engine returned no api description")
	}

	info, ok := api.ProductInfo()
	if !ok {
		return "", fmt.Errorf("engine returned no product info")
	}

	version, ok := info.Version()
	if !ok {
		return "", fmt.Errorf("engine returned no version")
	}

	full, _ := version.FullVersion()

	glog.V(100).Infof("Engine version is %s", full)

	return full, nil
}

// DomainNames returns the names of the configured authentication domains.
func DomainNames(apiClient *clients.Settings) ([]string, error) {
	if apiClient == nil {
		return nil, fmt.Errorf("engine 'apiClient' cannot be nil")
	}

	response, err := apiClient.SystemService().DomainsService().List().Send()
	if err != nil {
		return nil, err
	}

	domains, ok := response.Domains()
	if !ok {
		return nil, nil
	}

	var names []string

	for _, domain := range domains.Slice() {
		if name, ok := domain.Name(); ok {
			names = append(names, name)
		}
	}

	return names, nil
}

// OperatingSystemNames returns the names of the guest operating systems known to the engine.
func OperatingSystemNames(apiClient *clients.Settings) ([]string, error) {
	if apiClient == nil {
		return nil, fmt.Errorf("engine 'apiClient' cannot be nil")
	}

	response, err := apiClient.SystemService().OperatingSystemsService().List().Send()
	if err != nil {
		return nil, err
	}

	systems, ok := response.OperatingSystem()
	if !ok {
		return nil, nil
	}

	var names []string

	for _, system := range systems.Slice() {
		if name, ok := system.Name(); ok {
			names = append(names, name)
		}
	}

	return names, nil
}

// ClusterLevels returns the supported cluster compatibility levels, ascending.
func ClusterLevels(apiClient *clients.Settings) ([]string, error) {
	if apiClient == nil {
		return nil, fmt.Errorf("engine 'apiClient' cannot be nil")
	}

	response, err := apiClient.SystemService().ClusterLevelsService().List().Send()
	if err != nil {
		return nil, err
	}

	levels, ok := response.Levels()
	if !ok {
		return nil, nil
	}

	var ids []string

	for _, level := range levels.Slice() {
		if id, ok := level.Id(); ok {
			ids = append(ids, id)
		}
	}

	slices.Sort(ids)

	return ids, nil
}

// SystemOptionValues returns the values of the engine configuration option name for the given compatibility
// version.
func SystemOptionValues(apiClient *clients.Settings, name, version string) ([]string, error) {
	if apiClient == nil {
		return nil, fmt.Errorf("engine 'apiClient' cannot be nil")
	}

	glog.V(100).Infof("Reading system option %s for version %s", name, version)

	response, err := apiClient.SystemService().OptionsService().OptionService(name).Get().Version(version).Send()
	if err != nil {
		return nil, err
	}

	option, ok := response.Option()
	if !ok {
		return nil, fmt.Errorf("engine returned no system option %s", name)
	}

	values, ok := option.Values()
	if !ok {
		return nil, nil
	}

	var result []string

	for _, value := range values.Slice() {
		if text, ok := value.Value(); ok {
			result = append(result, text)
		}
	}

	return result, nil
}

// NetworkFilterID returns the id of the network filter called name.
func NetworkFilterID(apiClient *clients.Settings, name string) (string, error) {
	if apiClient == nil {
		return "", fmt.Errorf("engine 'apiClient' cannot be nil")
	}

	response, err := apiClient.SystemService().NetworkFiltersService().List().Send()
	if err != nil {
		return "", err
	}

	if filters, ok := response.Filters(); ok {
		for _, filter := range filters.Slice() {
			if filterName, _ := filter.Name(); filterName == name {
				return filter.MustId(), nil
			}
		}
	}

	return "", fmt.Errorf("network filter %s not found", name)
}

// DiskExists tells whether a disk called name exists.
func DiskExists(apiClient *clients.Settings, name string) (bool, error) {
	if apiClient == nil {
		return false, fmt.Errorf("engine 'apiClient' cannot be nil")
	}

	response, err := apiClient.SystemService().DisksService().List().Search("name=" + name).Send()
	if err != nil {
		return false, err
	}

	disks, ok := response.Disks()

	return ok && len(disks.Slice()) > 0, nil
}
