// Package cliconfig loads the optional adfops config file, which supplies
// defaults for flags that rarely change between invocations (subscription,
// resource group, names). Flags always win over the file.
package cliconfig

import (
	"os"

	"github.com/samsarahq/go/oops"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up in the working directory when
// neither --config nor $ADFOPS_CONFIG is set.
const DefaultPath = "adfops.yaml"

// EnvVar overrides the default config path when set.
const EnvVar = "ADFOPS_CONFIG"

// Config holds the file-supplied defaults. Every field is optional; zero
// values mean "not configured".
type Config struct {
	SubscriptionID string `yaml:"subscriptionId"`
	ResourceGroup  string `yaml:"resourceGroup"`
	Location       string `yaml:"location"`
	StorageAccount string `yaml:"storageAccount"`
	Factory        string `yaml:"factory"`
	Registry       string `yaml:"registry"`

	BigQueryLinkedService string `yaml:"bigqueryLinkedService"`
	BlobLinkedService     string `yaml:"blobLinkedService"`
	MasterPipeline        string `yaml:"masterPipeline"`
}

// Load reads the config at path. An empty path falls back to $ADFOPS_CONFIG,
// then to DefaultPath. A missing file is only an error when the path was
// given explicitly; a missing default file yields an empty config.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = os.Getenv(EnvVar)
		explicit = path != ""
	}
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) && !explicit {
		return &Config{}, nil
	}
	if err != nil {
		return nil, oops.Wrapf(err, "failed to read config file %s", path)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, oops.Wrapf(err, "failed to parse config file %s", path)
	}
	return &config, nil
}
