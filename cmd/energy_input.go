package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/sirupsen/logrus"

	"github.com/lattice-mc/lattice-mc/sim"
)

const energySchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["CN_energy"],
  "additionalProperties": false,
  "properties": {
    "CN_energy": {"type": "array", "minItems": 2, "items": {"type": "number"}},
    "ads_e_CO":  {"type": "array", "minItems": 1, "items": {"type": "number"}}
  }
}`

var energySchema = jsonschema.MustCompileString("energy.schema.json", energySchemaJSON)

// EnergyInput is the JSON energy parameter document.
type EnergyInput struct {
	CNEnergy []float64 `json:"CN_energy"`
	AdsCO    []float64 `json:"ads_e_CO,omitempty"`
}

// readEnergyInput accepts either an inline JSON object or a path ending in .json.
func readEnergyInput(arg string) (*EnergyInput, error) {
	var data []byte
	trimmed := strings.TrimSpace(arg)
	switch {
	case strings.HasPrefix(trimmed, "{"):
		data = []byte(trimmed)
	case strings.HasSuffix(trimmed, ".json"):
		b, err := os.ReadFile(trimmed)
		if err != nil {
			return nil, fmt.Errorf("reading energy file: %w", err)
		}
		data = b
	default:
		return nil, fmt.Errorf("energy input %q is neither a JSON object nor a .json path", arg)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing energy input: %w", err)
	}
	if err := energySchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("energy input: %w", err)
	}
	var in EnergyInput
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&in); err != nil {
		return nil, fmt.Errorf("parsing energy input: %w", err)
	}
	return &in, nil
}

// energyModel builds the energy model from whichever of the four energy options is set.
func (c RunConfig) energyModel() (sim.EnergyModel, error) {
	type option struct {
		flag, value string
		kind        sim.EnergyKind
	}
	var chosen []option
	for _, o := range []option{
		{"e-l-cn", c.ELinearCN, sim.LinearCN},
		{"e-cn", c.ECN, sim.TableCN},
		{"e-l-gcn", c.ELinearGCN, sim.LinearGCN},
		{"e-gcn", c.EGCN, sim.TableGCN},
	} {
		if o.value != "" {
			chosen = append(chosen, o)
		}
	}
	switch len(chosen) {
	case 0:
		return sim.EnergyModel{}, fmt.Errorf("no energy provided: set one of --e-l-cn, --e-cn, --e-l-gcn, --e-gcn")
	case 1:
	default:
		return sim.EnergyModel{}, fmt.Errorf("--%s and --%s are mutually exclusive", chosen[0].flag, chosen[1].flag)
	}

	o := chosen[0]
	in, err := readEnergyInput(o.value)
	if err != nil {
		return sim.EnergyModel{}, fmt.Errorf("--%s: %w", o.flag, err)
	}
	var m sim.EnergyModel
	switch o.kind {
	case sim.LinearCN, sim.LinearGCN:
		if len(in.CNEnergy) != 2 {
			return sim.EnergyModel{}, fmt.Errorf("--%s: CN_energy needs [slope, intercept], got %d values", o.flag, len(in.CNEnergy))
		}
		if in.AdsCO != nil {
			logrus.Warnf("--%s: ads_e_CO is ignored by linear energies", o.flag)
		}
		if o.kind == sim.LinearCN {
			m, err = sim.NewLinearCN(in.CNEnergy[0], in.CNEnergy[1], c.SupportE)
		} else {
			m, err = sim.NewLinearGCN(in.CNEnergy[0], in.CNEnergy[1], c.SupportE)
		}
	case sim.TableCN:
		m, err = sim.NewTableCN(in.CNEnergy, in.AdsCO, c.SupportE)
	case sim.TableGCN:
		m, err = sim.NewTableGCN(in.CNEnergy, in.AdsCO, c.SupportE)
	}
	if err != nil {
		return sim.EnergyModel{}, fmt.Errorf("--%s: %w", o.flag, err)
	}
	return m, nil
}
