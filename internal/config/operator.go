package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"sigs.k8s.io/yaml"

	"github.com/imamik/l2net/internal/platform/sdn"
	"github.com/imamik/l2net/internal/store"
)

const (
	// DefaultInterfacesPerSwitch is the number of data ports provisioned per switch.
	DefaultInterfacesPerSwitch = 10

	// DefaultWorkers is the number of concurrent event handlers.
	DefaultWorkers = 4

	defaultDatabasePort   = 3306
	defaultControllerPort = 8181
	defaultControllerPath = "/onos/vnets/api"
	defaultControllerUser = "karaf"
)

// Database holds the MySQL connection settings.
type Database struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Controller holds the SDN controller endpoint and credentials.
// URL takes precedence over Host and Port.
type Controller struct {
	URL      string `json:"url"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Operator is the complete operator configuration.
type Operator struct {
	Database            Database   `json:"database"`
	Controller          Controller `json:"controller"`
	InterfacesPerSwitch int        `json:"interfacesPerSwitch"`
	Workers             int        `json:"workers"`
	Timeouts            Timeouts   `json:"timeouts"`
	Snapshot            Snapshot   `json:"snapshot"`
}

// Default returns the configuration with every built-in default applied.
func Default() *Operator {
	return &Operator{
		Database: Database{Port: defaultDatabasePort},
		Controller: Controller{
			Port:     defaultControllerPort,
			Username: defaultControllerUser,
			Password: defaultControllerUser,
		},
		InterfacesPerSwitch: DefaultInterfacesPerSwitch,
		Workers:             DefaultWorkers,
		Timeouts:            DefaultTimeouts(),
		Snapshot:            Snapshot{Region: defaultSnapshotRegion},
	}
}

// Load builds the configuration from defaults, the optional file at path and
// the environment, in increasing order of precedence. The result is validated.
func Load(path string) (*Operator, error) {
	cfg, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadUnchecked is Load without validation, for tools that only need part
// of the configuration. Callers validate the sections they use.
func LoadUnchecked(path string) (*Operator, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Operator) loadFile(path string) error {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides the configuration from environment variables.
//
// Environment Variables:
//   - DATABASE_IP or DATABASE_HOST, DATABASE_PORT (default: 3306)
//   - MYSQL_USER, MYSQL_PASSWORD, MYSQL_DATABASE
//   - CONTROLLER_URL, or CONTROLLER_IP with CONTROLLER_PORT (default: 8181)
//   - CONTROLLER_USERNAME, CONTROLLER_PASSWORD (default: karaf)
//   - L2NET_INTERFACES_PER_SWITCH (default: 10)
//   - L2NET_WORKERS (default: 4)
func (c *Operator) applyEnv() {
	c.Database.Host = parseString(c.Database.Host, "DATABASE_IP", "DATABASE_HOST")
	c.Database.Port = parseInt("DATABASE_PORT", c.Database.Port)
	c.Database.User = parseString(c.Database.User, "MYSQL_USER")
	c.Database.Password = parseString(c.Database.Password, "MYSQL_PASSWORD")
	c.Database.Name = parseString(c.Database.Name, "MYSQL_DATABASE")

	c.Controller.URL = parseString(c.Controller.URL, "CONTROLLER_URL")
	c.Controller.Host = parseString(c.Controller.Host, "CONTROLLER_IP")
	c.Controller.Port = parseInt("CONTROLLER_PORT", c.Controller.Port)
	c.Controller.Username = parseString(c.Controller.Username, "CONTROLLER_USERNAME")
	c.Controller.Password = parseString(c.Controller.Password, "CONTROLLER_PASSWORD")

	c.InterfacesPerSwitch = parseInt("L2NET_INTERFACES_PER_SWITCH", c.InterfacesPerSwitch)
	c.Workers = parseInt("L2NET_WORKERS", c.Workers)
	c.Timeouts.applyEnv()
	c.Snapshot.applyEnv()
}

// Validate checks that every required setting is present and sane.
func (c *Operator) Validate() error {
	errs := []error{c.Database.Validate()}
	if c.Controller.URL == "" && c.Controller.Host == "" {
		errs = append(errs, errors.New("SDN controller address is required (CONTROLLER_URL or CONTROLLER_IP)"))
	}
	if c.Controller.URL != "" {
		if u, err := url.Parse(c.Controller.URL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("invalid SDN controller URL %q", c.Controller.URL))
		}
	}
	if c.InterfacesPerSwitch < 1 {
		errs = append(errs, fmt.Errorf("interfaces per switch must be positive, got %d", c.InterfacesPerSwitch))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	return errors.Join(errs...)
}

// Validate checks the database settings alone.
func (d Database) Validate() error {
	var errs []error
	if d.Host == "" {
		errs = append(errs, errors.New("database host is required (DATABASE_IP)"))
	}
	if d.User == "" {
		errs = append(errs, errors.New("database user is required (MYSQL_USER)"))
	}
	if d.Name == "" {
		errs = append(errs, errors.New("database name is required (MYSQL_DATABASE)"))
	}
	if d.Port <= 0 || d.Port > 65535 {
		errs = append(errs, fmt.Errorf("database port %d out of range", d.Port))
	}
	return errors.Join(errs...)
}

// ControllerURL returns the base URL of the SDN controller's network API.
func (c *Operator) ControllerURL() string {
	if c.Controller.URL != "" {
		return c.Controller.URL
	}
	u := url.URL{
		Scheme: "http",
		Host:   c.Controller.Host + ":" + strconv.Itoa(c.Controller.Port),
		Path:   defaultControllerPath,
	}
	return u.String()
}

// StoreConfig returns the settings for opening the MySQL store.
func (c *Operator) StoreConfig() store.Config {
	return store.Config{
		Host:     c.Database.Host,
		Port:     c.Database.Port,
		User:     c.Database.User,
		Password: c.Database.Password,
		Database: c.Database.Name,
	}
}

// SDNConfig returns the settings for the SDN controller client.
func (c *Operator) SDNConfig() sdn.Config {
	return sdn.Config{
		BaseURL:  c.ControllerURL(),
		Username: c.Controller.Username,
		Password: c.Controller.Password,
		Timeout:  c.Timeouts.SDN.Duration,
	}
}
