package engine

import (
	"fmt"

	"github.com/golang/glog"
	ovirtsdk4 "github.com/ovirt/go-ovirt"
	"github.com/ovirt/ost-gotests/pkg/clients"
)

// AddBookmark stores a named search query.
func AddBookmark(apiClient *clients.Settings, name, query string) (*ovirtsdk4.Bookmark, error) {
	if apiClient == nil {
		return nil, fmt.Errorf("bookmark 'apiClient' cannot be nil")
	}

	glog.V(100).Infof("Adding bookmark %s for %q", name, query)

	bookmark, err := ovirtsdk4.NewBookmarkBuilder().Name(name).Value(query).Build()
	if err != nil {
		return nil, err
	}

	response, err := apiClient.SystemService().BookmarksService().Add().Bookmark(bookmark).Send()
	if err != nil {
		return nil, err
	}

	return response.MustBookmark(), nil
}

// AddTag adds a tag.
func AddTag(apiClient *clients.Settings, name, description string) (*ovirtsdk4.Tag, error) {
	if apiClient == nil {
		return nil, fmt.Errorf("tag 'apiClient' cannot be nil")
	}

	glog.V(100).Infof("Adding tag %s", name)

	tag, err := ovirtsdk4.NewTagBuilder().Name(name).Description(description).Build()
	if err != nil {
		return nil, err
	}

	response, err := apiClient.SystemService().TagsService().Add().Tag(tag).Send()
	if err != nil {
		return nil, err
	}

	return response.MustTag(), nil
}

// AddRole adds a non administrative role granting the permits with the given ids.
func AddRole(apiClient *clients.Settings, name string, permitIDs ...string) (*ovirtsdk4.Role, error) {
	if apiClient == nil {
		return nil, fmt.Errorf("role 'apiClient' cannot be nil")
	}

	if len(permitIDs) == 0 {
		return nil, fmt.Errorf("role %s needs at least one permit", name)
	}

	glog.V(100).Infof("Adding role %s with permits %v", name, permitIDs)

	permits := make([]*ovirtsdk4.Permit, 0, len(permitIDs))
	for _, id := range permitIDs {
		permits = append(permits, ovirtsdk4.NewPermitBuilder().Id(id).MustBuild())
	}

	role, err := ovirtsdk4.NewRoleBuilder().Name(name).Administrative(false).PermitsOfAny(permits...).Build()
	if err != nil {
		return nil, err
	}

	response, err := apiClient.SystemService().RolesService().Add().Role(role).Send()
	if err != nil {
		return nil, err
	}

	return response.MustRole(), nil
}

// AddMacPool adds a MAC address pool covering from..to.
func AddMacPool(apiClient *clients.Settings, name, from, to string, allowDuplicates bool) (*ovirtsdk4.MacPool, error) {
	if apiClient == nil {
		return nil, fmt.Errorf("mac pool 'apiClient' cannot be nil")
	}

	glog.V(100).Infof("Adding mac pool %s %s-%s", name, from, to)

	pool, err := ovirtsdk4.NewMacPoolBuilder().
		Name(name).
		AllowDuplicates(allowDuplicates).
		RangesOfAny(ovirtsdk4.NewRangeBuilder().From(from).To(to).MustBuild()).
		Build()
	if err != nil {
		return nil, err
	}

	response, err := apiClient.SystemService().MacPoolsService().Add().Pool(pool).Send()
	if err != nil {
		return nil, err
	}

	return response.MustPool(), nil
}

// AddAffinityLabel adds an affinity label.
func AddAffinityLabel(apiClient *clients.Settings, name string) (*ovirtsdk4.AffinityLabel, error) {
	if apiClient == nil {
		return nil, fmt.Errorf("affinity label 'apiClient' cannot be nil")
	}

	glog.V(100).Infof("Adding affinity label %s", name)

	label, err := ovirtsdk4.NewAffinityLabelBuilder().Name(name).Build()
	if err != nil {
		return nil, err
	}

	response, err := apiClient.SystemService().AffinityLabelsService().Add().Label(label).Send()
	if err != nil {
		return nil, err
	}

	return response.MustLabel(), nil
}

// AddInstanceType adds an instance type with the given memory and CPU topology.
func AddInstanceType(
	apiClient *clients.Settings,
	name, description string,
	memoryBytes, cores, sockets int64) (*ovirtsdk4.InstanceType, error) {
	if apiClient == nil {
		return nil, fmt.Errorf("instance type 'apiClient' cannot be nil")
	}

	glog.V(100).Infof("Adding instance type %s", name)

	instanceType, err := ovirtsdk4.NewInstanceTypeBuilder().
		Name(name).
		Description(description).
		Memory(memoryBytes).
		Cpu(ovirtsdk4.NewCpuBuilder().
			Topology(ovirtsdk4.NewCpuTopologyBuilder().Cores(cores).Sockets(sockets).Threads(1).MustBuild()).
			MustBuild()).
		Build()
	if err != nil {
		return nil, err
	}

	response, err := apiClient.SystemService().InstanceTypesService().Add().InstanceType(instanceType).Send()
	if err != nil {
		return nil, err
	}

	return response.MustInstanceType(), nil
}

// ProviderError reports an image provider the engine could not query.
type ProviderError struct {
	Provider string
	Err      error
}

// Error implements error.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("image provider %s: %v", e.Provider, e.Err)
}

// Unwrap returns the request failure.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ImageNames lists the images of the named OpenStack image provider. Failures to find or query the provider are
// returned as *ProviderError.
func ImageNames(apiClient *clients.Settings, providerName string) ([]string, error) {
	if apiClient == nil {
		return nil, fmt.Errorf("image provider 'apiClient' cannot be nil")
	}

	providersService := apiClient.SystemService().OpenstackImageProvidersService()

	response, err := providersService.List().Search("name=" + providerName).Send()
	if err != nil {
		return nil, &ProviderError{Provider: providerName, Err: err}
	}

	providers, ok := response.Providers()
	if !ok || len(providers.Slice()) == 0 {
		return nil, &ProviderError{Provider: providerName, Err: fmt.Errorf("not found")}
	}

	images, err := providersService.ProviderService(providers.Slice()[0].MustId()).ImagesService().List().Send()
	if err != nil {
		return nil, &ProviderError{Provider: providerName, Err: err}
	}

	list, ok := images.Images()
	if !ok {
		return nil, nil
	}

	var names []string

	for _, image := range list.Slice() {
		if name, ok := image.Name(); ok {
			names = append(names, name)
		}
	}

	return names, nil
}

// AddSchedulingPolicy adds a scheduling policy made of one balance module, one filter and one weighted module.
func AddSchedulingPolicy(
	apiClient *clients.Settings, name, balance, filter, weight string, factor int64) (*ovirtsdk4.SchedulingPolicy, error) {
	if apiClient == nil {
		return nil, fmt.Errorf("scheduling policy 'apiClient' cannot be nil")
	}

	glog.V(100).Infof("Adding scheduling policy %s", name)

	policy, err := ovirtsdk4.NewSchedulingPolicyBuilder().
		Name(name).
		DefaultPolicy(false).
		Locked(false).
		BalancesOfAny(ovirtsdk4.NewBalanceBuilder().Name(balance).MustBuild()).
		FiltersOfAny(ovirtsdk4.NewFilterBuilder().Name(filter).MustBuild()).
		WeightOfAny(ovirtsdk4.NewWeightBuilder().Name(weight).Factor(factor).MustBuild()).
		Build()
	if err != nil {
		return nil, err
	}

	response, err := apiClient.SystemService().SchedulingPoliciesService().Add().Policy(policy).Send()
	if err != nil {
		return nil, err
	}

	return response.MustPolicy(), nil
}
