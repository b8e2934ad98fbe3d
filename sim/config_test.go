package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordConfig_WithDefaults_FillsZeroCounts(t *testing.T) {
	got := RecordConfig{UniqueLevels: 5}.WithDefaults()
	want := RecordConfig{
		Sections:     DefaultSections,
		SampleEvery:  DefaultSampleEvery,
		UniqueLevels: 5,
		NumSnapshots: DefaultNumSnapshots,
	}
	assert.Equal(t, want, got)
}

func TestSimulatorConfig_Validate(t *testing.T) {
	model, err := NewLinearCN(-0.33, 3.96, 0)
	require.NoError(t, err)
	valid := testConfig(model, 100, 300)

	tests := []struct {
		name    string
		mutate  func(c *SimulatorConfig)
		wantErr string
	}{
		{"valid", func(c *SimulatorConfig) {}, ""},
		{"zero iterations", func(c *SimulatorConfig) { c.Anneal.Iterations = 0 }, "anneal: iterations must be positive"},
		{"negative temperature", func(c *SimulatorConfig) { c.Anneal.Temperature = -1 }, "anneal: temperature"},
		{"two-stage without start", func(c *SimulatorConfig) { c.Anneal.Mode = ScheduleTwoStage }, "needs a start temperature"},
		{"short table", func(c *SimulatorConfig) { c.Energy = EnergyModel{Kind: TableCN, Table: make([]int64, 5)} }, "energy: table-cn"},
		{"negative sections", func(c *SimulatorConfig) { c.Record.Sections = -1 }, "record: sections"},
		{"negative levels", func(c *SimulatorConfig) { c.Record.UniqueLevels = -2 }, "record: unique level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
