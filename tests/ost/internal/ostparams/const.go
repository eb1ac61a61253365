package ostparams

const (
	// Label represents the ost label that can be used for test cases selection.
	Label = "ost"
	// LabelBootstrap selects the bootstrap scenario.
	LabelBootstrap = "bootstrap"
	// LabelSanity selects the basic sanity scenario.
	LabelSanity = "sanity"
	// LabelNetworkByLabel selects the network by label scenario.
	LabelNetworkByLabel = "network-by-label"
	// LabelUI selects the UI suite.
	LabelUI = "ui"

	// OstLogLevel represents the default log level for this suite.
	OstLogLevel = 90

	// MB is a mebibyte.
	MB int64 = 1 << 20
	// GB is a gibibyte.
	GB int64 = 1 << 30
)

// Scenario module offsets. Each module numbers its cases from zero and is shifted into its own block so the
// modules run in file order.
const (
	BootstrapOffset      = 0
	SanityOffset         = 100
	NetworkByLabelOffset = 200
)

// Entity names created by the suites.
const (
	DCQuotaName            = "DC-QUOTA"
	ManagementNetwork      = "ovirtmgmt"
	VMNetwork              = "VM_Network"
	VMNetworkVlanID        = 100
	MigrationNetwork       = "Migration_Net"
	MigrationNetworkVlanID = 200
	PassthroughVnicProfile = "passthrough_vnic_profile"
	NetworkFilterName      = "clean-traffic"
	ServerCPUListOption    = "ServerCPUList"
	LabeledNetwork         = "Labeled_Network"
	LabeledNetworkVlanID   = 600
	NetworkLabel           = "NETWORK_LABEL"
	NFSDomainName          = "nfs"
	SecondNFSDomainName    = "second-nfs"
	TemplatesDomainName    = "templates"
	ISCSIDomainName        = "iscsi"
	VM0Name                = "vm0"
	VM1Name                = "vm1"
	VM2Name                = "vm2"
	BackupVMName           = "backup_vm"
	NICName                = "eth0"
	HotplugNICName         = "eth1"
	Disk0Name              = "vm0_disk0"
	Disk1Name              = "vm0_disk1"
	DirectLUNDiskName      = "DirectLunDisk"
	GuestOSType            = "rhel_7x64"
	ImageRepositoryFlag    = "image-repository-available"
	EventOrigin            = "ovirt-system-tests"
	EngineBackupDir        = "/var/log/ost-engine-backup"
	RemoteStorageScript    = "/tmp/setup_storage.sh"
)

// Audit log codes the scenarios expect the engine to record.
const (
	EventVMUpdated               int64 = 35
	EventHostAdded               int64 = 42
	EventInstanceTypeAdded       int64 = 29
	EventDirectLUNAttached       int64 = 97
	EventBookmarkAdded           int64 = 350
	EventClusterAdded            int64 = 809
	EventClusterUpdated          int64 = 811
	EventClusterRemoved          int64 = 813
	EventRoleAdded               int64 = 864
	EventHostUpdatesCheckStarted int64 = 884
	EventHostUpdatesCheckDone    int64 = 885
	EventNetworkAdded            int64 = 942
	EventDataCenterAdded         int64 = 950
	EventDataCenterUpdated       int64 = 952
	EventDataCenterRemoved       int64 = 954
	EventStorageDomainAdded      int64 = 956
	EventStorageDomainAttached   int64 = 962
	EventStorageDomainActivated  int64 = 966
	EventImagesListed            int64 = 998
	EventLUNsRefreshed           int64 = 1022
	EventVnicProfileAdded        int64 = 1122
	EventVnicProfileRemoved      int64 = 1126
	EventEngineBackupStarted     int64 = 9024
	EventEngineBackupCompleted   int64 = 9025
	EventSchedulingPolicyAdded   int64 = 9910
	EventQosAdded                int64 = 10110
	EventDiskProfileAdded        int64 = 10120
	EventCPUProfileAdded         int64 = 10130
	EventAffinityGroupAdded      int64 = 10350
	EventAffinityLabelAdded      int64 = 10380
	EventMacPoolAdded            int64 = 10700
	EventFilterParameterAdded    int64 = 10912
)
