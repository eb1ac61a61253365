package ostconfig

import (
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/kelseyhightower/envconfig"
	"github.com/ovirt/ost-gotests/tests/internal/config"
	"gopkg.in/yaml.v2"
)

const (
	// PathToDefaultOSTParamsFile path to config file with default ost parameters.
	PathToDefaultOSTParamsFile = "./default.yaml"
)

// OSTConfig type keeps the oVirt system tests configuration.
type OSTConfig struct {
	*config.GeneralConfig
	DataCenterName        string   `yaml:"data_center_name" envconfig:"OST_DATA_CENTER_NAME"`
	ClusterName           string   `yaml:"cluster_name" envconfig:"OST_CLUSTER_NAME"`
	DefaultDataCenterName string   `yaml:"default_data_center_name" envconfig:"OST_DEFAULT_DATA_CENTER_NAME"`
	DefaultClusterName    string   `yaml:"default_cluster_name" envconfig:"OST_DEFAULT_CLUSTER_NAME"`
	MasterStorageType     string   `yaml:"master_storage_type" envconfig:"OST_MASTER_STORAGE_TYPE"`
	StorageHost           string   `yaml:"storage_host" envconfig:"OST_STORAGE_HOST"`
	NFSPath               string   `yaml:"nfs_path" envconfig:"OST_NFS_PATH"`
	SecondNFSPath         string   `yaml:"second_nfs_path" envconfig:"OST_SECOND_NFS_PATH"`
	TemplatesNFSPath      string   `yaml:"templates_nfs_path" envconfig:"OST_TEMPLATES_NFS_PATH"`
	ISCSITarget           string   `yaml:"iscsi_target" envconfig:"OST_ISCSI_TARGET"`
	ISCSIPort             int64    `yaml:"iscsi_port" envconfig:"OST_ISCSI_PORT"`
	ISCSILunIDs           []string `yaml:"iscsi_lun_ids" envconfig:"OST_ISCSI_LUN_IDS"`
	ISCSIDirectLUNID      string   `yaml:"iscsi_direct_lun_id" envconfig:"OST_ISCSI_DIRECT_LUN_ID"`
	ISCSILunDevice        string   `yaml:"iscsi_lun_device" envconfig:"OST_ISCSI_LUN_DEVICE"`
	VMTemplate            string   `yaml:"vm_template" envconfig:"OST_VM_TEMPLATE"`
	VM0IP                 string   `yaml:"vm0_ip" envconfig:"OST_VM0_IP"`
	RepositoryImage       string   `yaml:"repository_image" envconfig:"OST_REPOSITORY_IMAGE"`
	RepositoryDisk        string   `yaml:"repository_disk" envconfig:"OST_REPOSITORY_DISK"`
	StorageSetupScript    string   `yaml:"storage_setup_script" envconfig:"OST_STORAGE_SETUP_SCRIPT"`
	ImageRepository       string   `yaml:"image_repository" envconfig:"OST_IMAGE_REPOSITORY"`
	CertsDir              string   `yaml:"certs_dir" envconfig:"OST_CERTS_DIR"`
	GridHubImage          string   `yaml:"grid_hub_image" envconfig:"OST_GRID_HUB_IMAGE"`
	GridNodeImages        []string `yaml:"grid_node_images" envconfig:"OST_GRID_NODE_IMAGES"`
	GridHubPort           int      `yaml:"grid_hub_port" envconfig:"OST_GRID_HUB_PORT"`
}

// NewOSTConfig returns instance of OSTConfig type.
func NewOSTConfig() *OSTConfig {
	log.Print("Creating new OSTConfig struct")

	var ostConf OSTConfig
	ostConf.GeneralConfig = config.NewConfig()

	_, filename, _, _ := runtime.Caller(0)
	baseDir := filepath.Dir(filename)
	confFile := filepath.Join(baseDir, PathToDefaultOSTParamsFile)

	err := readFile(&ostConf, confFile)
	if err != nil {
		log.Printf("Error to read config file %s", confFile)

		return nil
	}

	err = readEnv(&ostConf)
	if err != nil {
		log.Print("Error to read environment variables")

		return nil
	}

	if ostConf.StorageHost == "" && ostConf.GeneralConfig != nil {
		ostConf.StorageHost = ostConf.EngineFQDN
	}

	return &ostConf
}

// StorageSetupScriptPath resolves the storage setup script relative to this package when it is not absolute.
func (cfg *OSTConfig) StorageSetupScriptPath() string {
	if filepath.IsAbs(cfg.StorageSetupScript) {
		return cfg.StorageSetupScript
	}

	_, filename, _, _ := runtime.Caller(0)

	return filepath.Join(filepath.Dir(filename), cfg.StorageSetupScript)
}

func readFile(ostConfig *OSTConfig, cfgFile string) error {
	openedCfgFile, err := os.Open(cfgFile)
	if err != nil {
		return err
	}

	defer func() {
		_ = openedCfgFile.Close()
	}()

	decoder := yaml.NewDecoder(openedCfgFile)

	return decoder.Decode(ostConfig)
}

func readEnv(ostConfig *OSTConfig) error {
	return envconfig.Process("", ostConfig)
}
