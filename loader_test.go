package krox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gonum/floats"
)

func TestReadTimeSeries(t *testing.T) {
	in := `# liquid mass flow out
time,mdot
0, 1.5
0.5,1.25
1.0,1.0
`
	samples, err := ReadTimeSeries(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(samples))
	}
	if samples[1] != (Sample{0.5, 1.25}) {
		t.Fatalf("invalid sample %+v", samples[1])
	}
}

func TestReadTimeSeriesErrors(t *testing.T) {
	for name, in := range map[string]string{
		"empty":           "# nothing\n",
		"one column":      "0\n1\n",
		"not increasing":  "0,1\n1,2\n1,3\n",
		"decreasing":      "0,1\n2,2\n1,3\n",
		"bad value":       "0,1\n1,x\n",
		"header only":     "time,value\n",
		"header not 1st":  "0,1\ntime,value\n",
		"quoted garbage ": "0,1\n\"1,2\n",
	} {
		if _, err := ReadTimeSeries(strings.NewReader(in)); err == nil {
			t.Fatalf("%s: expected an error", name)
		}
	}
}

func TestLoadTimeSeries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gas_mass_flow_out.csv")
	if err := os.WriteFile(path, []byte("0,0.01\n10,0.03\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	tbl, err := LoadTimeSeries(path, false)
	if err != nil {
		t.Fatal(err)
	}
	if v, err := tbl.Value(5); err != nil || !floats.EqualWithinAbs(v, 0.02, 1e-15) {
		t.Fatalf("v=%g err=%v", v, err)
	}
	if _, err := LoadTimeSeries(filepath.Join(t.TempDir(), "missing.csv"), false); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
