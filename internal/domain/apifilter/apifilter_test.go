package apifilter

import (
	"encoding/json"
	"testing"
)

func TestSetStops_SortsAndDeduplicates(t *testing.T) {
	f := New()
	f.SetStops(StopsOneStop, StopsDirect, StopsOneStop)

	if len(f.Stops) != 2 || f.Stops[0] != 0 || f.Stops[1] != 1 {
		t.Errorf("unexpected stops: %v", f.Stops)
	}
}

func TestSetStops_ReplacesPrevious(t *testing.T) {
	f := New()
	f.SetStops(StopsDirect)
	f.SetStops(StopsOneStop)

	if len(f.Stops) != 1 || f.Stops[0] != StopsOneStop {
		t.Errorf("expected only one-stop, got %v", f.Stops)
	}
}

func TestNew_Unrestricted(t *testing.T) {
	f := New()
	if !f.Unrestricted() {
		t.Error("new filter should be unrestricted")
	}
}

func TestMarshalJSON(t *testing.T) {
	data, err := json.Marshal(Format{})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"stops":[],"airlines":[]}` {
		t.Errorf("unexpected json: %s", data)
	}

	f := New()
	f.SetStops(StopsDirect)
	f.AddAirline("EK", "طيران الإمارات")
	data, err = json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"stops":[0],"airlines":[{"code":"EK","name":"طيران الإمارات"}]}`
	if string(data) != want {
		t.Errorf("unexpected json:\ngot:  %s\nwant: %s", data, want)
	}
}
