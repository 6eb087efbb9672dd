package workload

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/rotor-sim/rotor-sim/sim"
)

// Conversion between the flow CSV and the opera-sim trace format. Opera
// traces are space-delimited "src_host dst_host size_bytes start_time_ns"
// lines addressing hosts globally; the flow CSV addresses (rack, host)
// pairs. bulkSizeThreshold classifies imported flows: transfers at or above
// 15 MB are bulk, the rest are tagged low-latency for the packet switch.
const bulkSizeThreshold = 15e6

// ConvertOperaToFlows reads an opera-sim trace and maps each record to a
// Flow, splitting global host ids into (rack, host) with hostsPerRack hosts
// per rack. Blank lines and '#' comments are skipped.
func ConvertOperaToFlows(inputPath string, hostsPerRack int) ([]*sim.Flow, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("cannot open input file: %w", err)
	}
	defer file.Close()

	var flows []*sim.Flow
	var flowID uint64

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 4 {
			return nil, fmt.Errorf("%s:%d: expected 4 fields, got %d", inputPath, lineNo, len(fields))
		}

		srcHostGlobal, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("%s:%d: src_host: %w", inputPath, lineNo, err)
		}
		dstHostGlobal, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("%s:%d: dst_host: %w", inputPath, lineNo, err)
		}
		sizeBytes, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: size_bytes: %w", inputPath, lineNo, err)
		}
		startTimeNs, err := strconv.ParseUint(fields[3], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: start_time_ns: %w", inputPath, lineNo, err)
		}

		flowType := sim.FlowLowLatency
		if float64(sizeBytes) >= bulkSizeThreshold {
			flowType = sim.FlowBulk
		}

		flows = append(flows, &sim.Flow{
			ID:          flowID,
			SrcRack:     srcHostGlobal / hostsPerRack,
			SrcHost:     srcHostGlobal % hostsPerRack,
			DstRack:     dstHostGlobal / hostsPerRack,
			DstHost:     dstHostGlobal % hostsPerRack,
			SizeBytes:   sizeBytes,
			StartTimeMs: float64(startTimeNs) / 1e6,
			Type:        flowType,
		})
		flowID++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", inputPath, err)
	}
	return flows, nil
}

// ConvertOperaToRotor transcodes an opera-sim trace into the flow CSV.
func ConvertOperaToRotor(inputPath, outputPath string, hostsPerRack int) error {
	flows, err := ConvertOperaToFlows(inputPath, hostsPerRack)
	if err != nil {
		return err
	}
	if err := SaveFlows(flows, outputPath); err != nil {
		return err
	}
	logrus.Infof("Converted %d flows", len(flows))
	return nil
}

// ConvertRotorToOpera transcodes a flow CSV into the opera-sim trace format,
// rejoining (rack, host) into global host ids.
func ConvertRotorToOpera(inputPath, outputPath string, hostsPerRack int) error {
	flows, err := LoadFlows(inputPath)
	if err != nil {
		return err
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("cannot open output file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	for _, f := range flows {
		srcHostGlobal := f.SrcRack*hostsPerRack + f.SrcHost
		dstHostGlobal := f.DstRack*hostsPerRack + f.DstHost
		startTimeNs := uint64(f.StartTimeMs * 1e6)
		if _, err := fmt.Fprintf(w, "%d %d %d %d\n", srcHostGlobal, dstHostGlobal, f.SizeBytes, startTimeNs); err != nil {
			return fmt.Errorf("writing %s: %w", outputPath, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing %s: %w", outputPath, err)
	}

	logrus.Infof("Converted %d flows", len(flows))
	return nil
}
