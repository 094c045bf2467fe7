package krox

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// stateHeader is the column header of exported motor states.
var stateHeader = []string{"time", "thrust", "mass", "propellant_mass", "center_of_mass", "I11", "I22", "I33", "mass_flow_rate"}

// WriteStates writes the motor states as CSV, preceded by a commented header.
func WriteStates(w io.Writer, name string, states []MotorState) error {
	if _, err := fmt.Fprintf(w, `# Motor: %s
# Creation date (UTC): %s
# Records are time (s), thrust (N), mass (kg), propellant mass (kg), center of mass (m),
#   inertia about the center of mass I11, I22, I33 (kg·m^2), mass flow rate (kg/s)
`, name, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(stateHeader); err != nil {
		return err
	}
	for _, st := range states {
		record := []string{
			format(st.Time), format(st.Thrust), format(st.Mass), format(st.PropellantMass), format(st.CenterOfMass),
			format(st.Inertia.I11), format(st.Inertia.I22), format(st.Inertia.I33), format(st.MassFlowRate),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadStates parses motor states written by WriteStates.
func ReadStates(r io.Reader) ([]MotorState, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = len(stateHeader)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 || records[0][0] != stateHeader[0] {
		return nil, fmt.Errorf("missing motor state header")
	}
	states := make([]MotorState, 0, len(records)-1)
	for i, record := range records[1:] {
		var v [9]float64
		for j, field := range record {
			if v[j], err = strconv.ParseFloat(field, 64); err != nil {
				return nil, fmt.Errorf("motor state record %d: %w", i+1, err)
			}
		}
		states = append(states, MotorState{Time: v[0], Thrust: v[1], Mass: v[2], PropellantMass: v[3], CenterOfMass: v[4],
			Inertia: Inertia{v[5], v[6], v[7]}, MassFlowRate: v[8]})
	}
	return states, nil
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
