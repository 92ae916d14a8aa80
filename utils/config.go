package utils

import (
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	yaml "gopkg.in/yaml.v2"
)

var EtcDir = "."
var DataDir = "."

const DefaultRecvMsgSize = 10 * 1024 * 1024
const DefaultWCSTimeout = 300
const DefaultGrpcConcLimit = 16
const DefaultMaxWidth = 512
const DefaultMaxHeight = 512

// ServiceConfig contains the landing page details of the service and
// the worker fan-out settings.
type ServiceConfig struct {
	OWSHostname        string   `yaml:"ows_hostname"`
	OWSProtocol        string   `yaml:"ows_protocol"`
	WorkerNodes        []string `yaml:"worker_nodes"`
	TempDir            string   `yaml:"temp_dir"`
	MaxGrpcRecvMsgSize int      `yaml:"max_grpc_recv_msg_size"`
	GrpcConcLimit      int      `yaml:"grpc_conc_limit"`
	WCSTimeout         int      `yaml:"wcs_timeout"`
	MaxWidth           int      `yaml:"max_width"`
	MaxHeight          int      `yaml:"max_height"`
	UpdateSequence     string   `yaml:"update_sequence"`
	Title              string   `yaml:"title"`
	Abstract           string   `yaml:"abstract"`
	Fees               string   `yaml:"fees"`
	AccessConstraints  string   `yaml:"access_constraints"`
}

// CatalogConfig holds the coverage index database and cache
// endpoints. An empty DBHost selects the static coverage list.
type CatalogConfig struct {
	DBHost       string `yaml:"db_host"`
	DBPort       int    `yaml:"db_port"`
	DBName       string `yaml:"db_name"`
	DBUser       string `yaml:"db_user"`
	DBPassword   string `yaml:"db_password"`
	DBPoolSize   int    `yaml:"db_pool_size"`
	DBConnLimit  int    `yaml:"db_conn_limit"`
	MemcacheURI  string `yaml:"memcache_uri"`
	ManifestPath string `yaml:"manifest_path"`
}

// WCSConfig carries the advertised request vocabularies and the
// temporal merge behaviour.
type WCSConfig struct {
	InputCRSs         []string          `yaml:"input_crs"`
	OutputCRSs        []string          `yaml:"output_crs"`
	Formats           map[string]string `yaml:"formats"`
	Interpolations    map[string]string `yaml:"interpolations"`
	TimeMeanReduction *bool             `yaml:"time_mean_reduction"`
	NativeCRS         string            `yaml:"native_crs"`
}

// MeasurementConfig is one band of a statically configured coverage.
type MeasurementConfig struct {
	Name      string  `yaml:"name"`
	NullValue float64 `yaml:"null_value"`
	DType     string  `yaml:"dtype"`
}

// CoverageConfig is one statically configured coverage, used when no
// index database is available.
type CoverageConfig struct {
	Name         string              `yaml:"name"`
	Label        string              `yaml:"label"`
	Description  string              `yaml:"description"`
	MinLatitude  float64             `yaml:"min_latitude"`
	MaxLatitude  float64             `yaml:"max_latitude"`
	MinLongitude float64             `yaml:"min_longitude"`
	MaxLongitude float64             `yaml:"max_longitude"`
	StartTime    string              `yaml:"start_time"`
	EndTime      string              `yaml:"end_time"`
	Dates        []string            `yaml:"dates"`
	Measurements []MeasurementConfig `yaml:"measurements"`
}

type Config struct {
	Service   ServiceConfig    `yaml:"service"`
	Catalog   CatalogConfig    `yaml:"catalog"`
	WCS       WCSConfig        `yaml:"wcs"`
	Coverages []CoverageConfig `yaml:"coverages"`
}

// TimeMean reports whether overlapping acquisitions are reduced with
// a no-data aware mean. Defaults to on.
func (config *Config) TimeMean() bool {
	if config.WCS.TimeMeanReduction == nil {
		return true
	}
	return *config.WCS.TimeMeanReduction
}

func (config *Config) applyDefaults() {
	if config.Service.MaxGrpcRecvMsgSize <= 0 {
		config.Service.MaxGrpcRecvMsgSize = DefaultRecvMsgSize
	}
	if config.Service.GrpcConcLimit <= 0 {
		config.Service.GrpcConcLimit = DefaultGrpcConcLimit
	}
	if config.Service.WCSTimeout <= 0 {
		config.Service.WCSTimeout = DefaultWCSTimeout
	}
	if config.Service.MaxWidth <= 0 {
		config.Service.MaxWidth = DefaultMaxWidth
	}
	if config.Service.MaxHeight <= 0 {
		config.Service.MaxHeight = DefaultMaxHeight
	}
	if len(config.Service.OWSProtocol) == 0 {
		config.Service.OWSProtocol = "http"
	}
	if config.Catalog.DBPort == 0 {
		config.Catalog.DBPort = 5432
	}
	if len(config.WCS.Interpolations) == 0 {
		config.WCS.Interpolations = map[string]string{
			"nearest neighbor": "near",
			"bilinear":         "bilinear",
			"bicubic":          "cubic",
			"lost area":        "near",
			"barycentric":      "near",
		}
	}
}

// LoadConfigFile marshalls the config.yaml document returning an
// instance of a Config variable containing all the values.
func LoadConfigFile(configFile string) (*Config, error) {
	cfg, err := ioutil.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("error while reading config file %s: %v", configFile, err)
	}
	config := &Config{}
	err = yaml.Unmarshal(cfg, config)
	if err != nil {
		return nil, fmt.Errorf("error at parsing config file %s: %v", configFile, err)
	}
	config.applyDefaults()
	return config, nil
}

// LoadConfig loads config.yaml from the given directory.
func LoadConfig(searchPath string) (*Config, error) {
	return LoadConfigFile(filepath.Join(searchPath, "config.yaml"))
}

// DBInfo renders the Postgres connection string for the catalog
// database.
func (config *Config) DBInfo() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		config.Catalog.DBHost, config.Catalog.DBPort, config.Catalog.DBUser,
		config.Catalog.DBPassword, config.Catalog.DBName)
}

// Capabilities assembles the validator vocabularies from the loaded
// config.
func (config *Config) Capabilities() Capabilities {
	return Capabilities{
		InputCRSs:      config.WCS.InputCRSs,
		OutputCRSs:     config.WCS.OutputCRSs,
		Interpolations: config.WCS.Interpolations,
		Formats:        config.WCS.Formats,
		MaxWidth:       config.Service.MaxWidth,
		MaxHeight:      config.Service.MaxHeight,
	}
}

// WatchConfig reloads the config on SIGHUP. Reload failures keep the
// running config and are reported on errLog.
func WatchConfig(infoLog, errLog *log.Logger, config **Config, searchPath string) {
	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	go func() {
		for {
			<-sighup
			infoLog.Println("Caught SIGHUP, reloading config...")
			newConf, err := LoadConfig(searchPath)
			if err != nil {
				errLog.Printf("Error in loading config file: %v\n", err)
				continue
			}
			**config = *newConf
		}
	}()
}
