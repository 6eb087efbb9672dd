// Flow CSV persistence. The format is shared with external tooling:
// a required header line followed by one flow per record.

package workload

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/rotor-sim/rotor-sim/sim"
)

var flowCSVHeader = []string{
	"flow_id", "src_rack", "dst_rack", "src_host", "dst_host",
	"size_bytes", "start_time_ms", "flow_type",
}

// SaveFlows writes the flow list to path in the flow CSV format.
func SaveFlows(flows []*sim.Flow, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot open file for writing: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(flowCSVHeader); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	for _, f := range flows {
		record := []string{
			strconv.FormatUint(f.ID, 10),
			strconv.Itoa(f.SrcRack),
			strconv.Itoa(f.DstRack),
			strconv.Itoa(f.SrcHost),
			strconv.Itoa(f.DstHost),
			strconv.FormatUint(f.SizeBytes, 10),
			strconv.FormatFloat(f.StartTimeMs, 'g', -1, 64),
			string(f.Type),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	logrus.Infof("Saved %d flows to %s", len(flows), path)
	return nil
}

// LoadFlows reads a flow CSV written by SaveFlows (or by external tooling
// emitting the same header). Parse failures report the offending record.
func LoadFlows(path string) ([]*sim.Flow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open file for reading: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(flowCSVHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: missing header line", path)
	}
	for i, name := range flowCSVHeader {
		if records[0][i] != name {
			return nil, fmt.Errorf("%s: header field %d is %q, want %q", path, i, records[0][i], name)
		}
	}

	flows := make([]*sim.Flow, 0, len(records)-1)
	for n, record := range records[1:] {
		f, err := parseFlowRecord(record)
		if err != nil {
			return nil, fmt.Errorf("%s: record %d: %w", path, n+1, err)
		}
		flows = append(flows, f)
	}

	logrus.Infof("Loaded %d flows from %s", len(flows), path)
	return flows, nil
}

func parseFlowRecord(record []string) (*sim.Flow, error) {
	f := &sim.Flow{}
	var err error
	if f.ID, err = strconv.ParseUint(record[0], 10, 64); err != nil {
		return nil, fmt.Errorf("flow_id: %w", err)
	}
	if f.SrcRack, err = strconv.Atoi(record[1]); err != nil {
		return nil, fmt.Errorf("src_rack: %w", err)
	}
	if f.DstRack, err = strconv.Atoi(record[2]); err != nil {
		return nil, fmt.Errorf("dst_rack: %w", err)
	}
	if f.SrcHost, err = strconv.Atoi(record[3]); err != nil {
		return nil, fmt.Errorf("src_host: %w", err)
	}
	if f.DstHost, err = strconv.Atoi(record[4]); err != nil {
		return nil, fmt.Errorf("dst_host: %w", err)
	}
	if f.SizeBytes, err = strconv.ParseUint(record[5], 10, 64); err != nil {
		return nil, fmt.Errorf("size_bytes: %w", err)
	}
	if f.StartTimeMs, err = strconv.ParseFloat(record[6], 64); err != nil {
		return nil, fmt.Errorf("start_time_ms: %w", err)
	}
	switch record[7] {
	case string(sim.FlowBulk):
		f.Type = sim.FlowBulk
	case string(sim.FlowLowLatency):
		f.Type = sim.FlowLowLatency
	default:
		return nil, fmt.Errorf("flow_type: unknown value %q", record[7])
	}
	return f, nil
}
