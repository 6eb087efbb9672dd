package workload

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rotor-sim/rotor-sim/sim"
)

func sampleFlows() []*sim.Flow {
	return []*sim.Flow{
		{ID: 0, SrcRack: 0, DstRack: 3, SrcHost: 1, DstHost: 2, SizeBytes: 15000000, StartTimeMs: 0, Type: sim.FlowBulk},
		{ID: 1, SrcRack: 2, DstRack: 1, SrcHost: 0, DstHost: 0, SizeBytes: 512, StartTimeMs: 1.5, Type: sim.FlowLowLatency},
		{ID: 2, SrcRack: 7, DstRack: 4, SrcHost: 31, DstHost: 30, SizeBytes: 999999999, StartTimeMs: 123.456, Type: sim.FlowBulk},
	}
}

func TestFlowCSV_RoundTrip(t *testing.T) {
	// GIVEN a flow list saved to CSV
	flows := sampleFlows()
	path := filepath.Join(t.TempDir(), "flows.csv")
	require.NoError(t, SaveFlows(flows, path))

	// WHEN it is loaded back
	loaded, err := LoadFlows(path)
	require.NoError(t, err)

	// THEN every field survives the encoding
	require.Equal(t, len(flows), len(loaded))
	for i := range flows {
		assert.Equal(t, *flows[i], *loaded[i])
	}
}

func TestSaveFlows_WritesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flows.csv")
	require.NoError(t, SaveFlows(nil, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "flow_id,src_rack,dst_rack,src_host,dst_host,size_bytes,start_time_ms,flow_type\n", string(data))
}

func TestLoadFlows_RejectsBadHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flows.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,src,dst,a,b,c,d,e\n"), 0o644))

	_, err := LoadFlows(path)
	assert.Error(t, err)
}

func TestLoadFlows_RejectsBadFieldCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flows.csv")
	content := "flow_id,src_rack,dst_rack,src_host,dst_host,size_bytes,start_time_ms,flow_type\n0,1,2,3\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadFlows(path)
	assert.Error(t, err)
}

func TestLoadFlows_RejectsUnknownFlowType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flows.csv")
	content := "flow_id,src_rack,dst_rack,src_host,dst_host,size_bytes,start_time_ms,flow_type\n0,1,2,0,0,100,0,express\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadFlows(path)
	assert.Error(t, err)
}

func TestLoadFlows_RejectsMalformedNumber(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flows.csv")
	content := "flow_id,src_rack,dst_rack,src_host,dst_host,size_bytes,start_time_ms,flow_type\nzero,1,2,0,0,100,0,bulk\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadFlows(path)
	assert.Error(t, err)
}

func TestLoadFlows_MissingFile(t *testing.T) {
	_, err := LoadFlows(filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}
