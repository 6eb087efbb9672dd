// Run configuration: topology sizes, rotor timing, transport limits, and
// workload selection. Loadable from whitespace "key value" text files or
// from YAML, with defaults matching the canonical 16-rack setup.

package sim

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// WorkloadType selects one of the published flow-size distributions.
type WorkloadType string

const (
	WorkloadDatamining WorkloadType = "datamining"
	WorkloadWebsearch  WorkloadType = "websearch"
	WorkloadHadoop     WorkloadType = "hadoop"
)

// ParseWorkloadType maps a config token to a WorkloadType.
func ParseWorkloadType(s string) (WorkloadType, error) {
	switch WorkloadType(strings.ToLower(s)) {
	case WorkloadDatamining:
		return WorkloadDatamining, nil
	case WorkloadWebsearch:
		return WorkloadWebsearch, nil
	case WorkloadHadoop:
		return WorkloadHadoop, nil
	}
	return "", fmt.Errorf("unknown workload %q", s)
}

// Config holds every tunable of a simulation run. It is immutable once the
// run starts.
type Config struct {
	// Network parameters
	NumRacks           int     `yaml:"num_racks"`
	NumSwitches        int     `yaml:"num_switches"`
	HostsPerRack       int     `yaml:"hosts_per_rack"`
	LinkRateGbps       float64 `yaml:"link_rate_gbps"`
	MTUBytes           int     `yaml:"mtu_bytes"`
	PropagationDelayUs float64 `yaml:"propagation_delay_us"`

	// Rotor switch timing
	ReconfigDelayUs float64 `yaml:"reconfig_delay_us"`
	DutyCycle       float64 `yaml:"duty_cycle"`

	// Transport parameters
	QueueSizePkts  int `yaml:"queue_size_pkts"`
	QueueThreshold int `yaml:"queue_threshold"`

	// Workload parameters
	Workload   WorkloadType `yaml:"workload"`
	LoadFactor float64      `yaml:"load_factor"`
	SimTimeMs  float64      `yaml:"sim_time_ms"`
	RandomSeed int64        `yaml:"random_seed"`

	// Flow persistence
	FlowFile       string `yaml:"flow_file"`
	SaveFlows      bool   `yaml:"save_flows"`
	FlowOutputFile string `yaml:"flow_output_file"`

	// SlotWakeup schedules a retry at the next active slot boundary whenever
	// a rack idles with queued packets. When disabled the rack waits for the
	// next enqueue instead, which can strand the last packets of a run.
	SlotWakeup bool `yaml:"slot_wakeup"`
}

// DefaultConfig returns the canonical 16-rack, 4-switch setup.
func DefaultConfig() Config {
	return Config{
		NumRacks:           16,
		NumSwitches:        4,
		HostsPerRack:       32,
		LinkRateGbps:       10.0,
		MTUBytes:           1500,
		PropagationDelayUs: 0.5,
		ReconfigDelayUs:    20.0,
		DutyCycle:          0.9,
		QueueSizePkts:      100,
		QueueThreshold:     10,
		Workload:           WorkloadDatamining,
		LoadFactor:         0.25,
		SimTimeMs:          1000.0,
		RandomSeed:         42,
		FlowOutputFile:     "flows.csv",
		SlotWakeup:         true,
	}
}

// LoadConfig reads a config file on top of the defaults. Files ending in
// .yaml or .yml are parsed as YAML; anything else is parsed as
// whitespace-separated "key value" lines with unknown keys ignored.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("cannot open config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("cannot parse config file %s: %w", path, err)
		}
		return cfg, nil
	default:
		return loadKeyValueConfig(cfg, path)
	}
}

func loadKeyValueConfig(cfg Config, path string) (Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("cannot open config file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return cfg, fmt.Errorf("%s:%d: expected \"key value\", got %q", path, lineNo, line)
		}
		if err := cfg.applyKey(fields[0], fields[1]); err != nil {
			return cfg, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return cfg, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return cfg, nil
}

// applyKey sets a single configuration key. Unknown keys are ignored so
// config files can carry directives for other tools.
func (c *Config) applyKey(key, value string) error {
	var err error
	switch key {
	case "num_racks":
		c.NumRacks, err = strconv.Atoi(value)
	case "num_switches":
		c.NumSwitches, err = strconv.Atoi(value)
	case "hosts_per_rack":
		c.HostsPerRack, err = strconv.Atoi(value)
	case "link_rate_gbps":
		c.LinkRateGbps, err = strconv.ParseFloat(value, 64)
	case "mtu_bytes":
		c.MTUBytes, err = strconv.Atoi(value)
	case "propagation_delay_us":
		c.PropagationDelayUs, err = strconv.ParseFloat(value, 64)
	case "reconfig_delay_us":
		c.ReconfigDelayUs, err = strconv.ParseFloat(value, 64)
	case "duty_cycle":
		c.DutyCycle, err = strconv.ParseFloat(value, 64)
	case "queue_size_pkts":
		c.QueueSizePkts, err = strconv.Atoi(value)
	case "queue_threshold":
		c.QueueThreshold, err = strconv.Atoi(value)
	case "load_factor":
		c.LoadFactor, err = strconv.ParseFloat(value, 64)
	case "sim_time_ms":
		c.SimTimeMs, err = strconv.ParseFloat(value, 64)
	case "random_seed":
		c.RandomSeed, err = strconv.ParseInt(value, 10, 64)
	case "workload":
		c.Workload, err = ParseWorkloadType(value)
	case "flow_file":
		c.FlowFile = value
	case "save_flows":
		c.SaveFlows = parseBool(value)
	case "flow_output_file":
		c.FlowOutputFile = value
	case "slot_wakeup":
		c.SlotWakeup = parseBool(value)
	default:
		logrus.Debugf("config: ignoring unknown key %q", key)
	}
	if err != nil {
		return fmt.Errorf("key %q: invalid value %q: %w", key, value, err)
	}
	return nil
}

// parseBool accepts "true" and "1" as true; everything else is false.
func parseBool(s string) bool {
	return s == "true" || s == "1"
}

// Validate rejects configurations the engine cannot run.
func (c *Config) Validate() error {
	if c.NumRacks < 2 {
		return fmt.Errorf("num_racks must be at least 2, got %d", c.NumRacks)
	}
	if c.NumSwitches < 1 {
		return fmt.Errorf("num_switches must be at least 1, got %d", c.NumSwitches)
	}
	if c.HostsPerRack < 1 {
		return fmt.Errorf("hosts_per_rack must be at least 1, got %d", c.HostsPerRack)
	}
	if c.LinkRateGbps <= 0 {
		return fmt.Errorf("link_rate_gbps must be positive, got %g", c.LinkRateGbps)
	}
	if c.MTUBytes <= 0 {
		return fmt.Errorf("mtu_bytes must be positive, got %d", c.MTUBytes)
	}
	if c.DutyCycle <= 0 || c.DutyCycle >= 1 {
		return fmt.Errorf("duty_cycle must be in (0,1), got %g", c.DutyCycle)
	}
	if c.ReconfigDelayUs <= 0 {
		return fmt.Errorf("reconfig_delay_us must be positive, got %g", c.ReconfigDelayUs)
	}
	if c.QueueSizePkts < 1 {
		return fmt.Errorf("queue_size_pkts must be at least 1, got %d", c.QueueSizePkts)
	}
	if c.LoadFactor < 0 || c.LoadFactor > 1 {
		return fmt.Errorf("load_factor must be in [0,1], got %g", c.LoadFactor)
	}
	if c.SimTimeMs <= 0 {
		return fmt.Errorf("sim_time_ms must be positive, got %g", c.SimTimeMs)
	}
	if _, err := ParseWorkloadType(string(c.Workload)); err != nil {
		return err
	}
	return nil
}

// totalMatchings is the number of distinct matchings needed to cover every
// rack pair: R-1 for even R, R for odd R (one rack idles per slot).
func (c *Config) totalMatchings() int {
	if c.NumRacks%2 == 0 {
		return c.NumRacks - 1
	}
	return c.NumRacks
}

// NumMatchings returns the per-switch matching count: the pair-cover total
// spread round-robin over the switches, rounded up.
func (c *Config) NumMatchings() int {
	return int(math.Ceil(float64(c.totalMatchings()) / float64(c.NumSwitches)))
}

// SlotTimeUs returns the duration one matching stays in effect, including
// its reconfiguration dead phase. The quotient is rounded to picosecond
// resolution because 1 - duty_cycle is inexact in binary floating point
// (20/(1-0.9) would otherwise be 200.00000000000006 and shift every slot
// boundary).
func (c *Config) SlotTimeUs() float64 {
	slot := c.ReconfigDelayUs / (1.0 - c.DutyCycle)
	return math.Round(slot*1e6) / 1e6
}

// CycleTimeUs returns the time for a switch to exhaust its matchings once.
func (c *Config) CycleTimeUs() float64 {
	return float64(c.NumMatchings()) * c.SlotTimeUs()
}

// LinkRateBps returns the per-port line rate in bits per second.
func (c *Config) LinkRateBps() float64 {
	return c.LinkRateGbps * 1e9
}

// Log writes the resolved configuration at Info level.
func (c *Config) Log() {
	logrus.Infof("Configuration: racks=%d switches=%d hosts/rack=%d link=%gGb/s mtu=%dB",
		c.NumRacks, c.NumSwitches, c.HostsPerRack, c.LinkRateGbps, c.MTUBytes)
	logrus.Infof("Rotor timing: reconfig=%gus duty=%g slot=%gus cycle=%gus matchings/switch=%d",
		c.ReconfigDelayUs, c.DutyCycle, c.SlotTimeUs(), c.CycleTimeUs(), c.NumMatchings())
	logrus.Infof("Workload: %s load=%g sim_time=%gms seed=%d", c.Workload, c.LoadFactor, c.SimTimeMs, c.RandomSeed)
}
