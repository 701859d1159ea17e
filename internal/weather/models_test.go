package weather

import (
	"encoding/json"
	"testing"
	"time"
)

// A trimmed element of the live aviationweather.gov METAR response
const sampleMETARJSON = `{
	"metar_id": 766739519,
	"icaoId": "KSPB",
	"receiptTime": "2026-08-22 18:00:12",
	"obsTime": 1755885180,
	"reportTime": "2026-08-22 18:00:00",
	"temp": 22.2,
	"dewp": 12.8,
	"wdir": 150,
	"wspd": 8,
	"wgst": null,
	"visib": "10+",
	"altim": 1016.9,
	"slp": 1016.2,
	"wxString": null,
	"clouds": [{"cover": "SCT", "base": 5000}],
	"rawOb": "KSPB 221753Z 15008KT 10SM SCT050 22/12 A3003",
	"name": "Scappoose Industrial Airpark, OR, US",
	"lat": 45.771,
	"lon": -122.862,
	"elev": 17.7
}`

func TestMETARResponseUnmarshal(t *testing.T) {
	var m METARResponse
	if err := json.Unmarshal([]byte(sampleMETARJSON), &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if m.ICAOId != "KSPB" {
		t.Errorf("ICAOId = %q", m.ICAOId)
	}
	if m.ObsTime != 1755885180 {
		t.Errorf("ObsTime = %d", m.ObsTime)
	}
	if m.Temp == nil || *m.Temp != 22.2 {
		t.Errorf("Temp = %v", m.Temp)
	}
	if m.Wdir.Degrees == nil || *m.Wdir.Degrees != 150 || m.Wdir.Variable {
		t.Errorf("Wdir = %+v", m.Wdir)
	}
	if m.Wgst != nil {
		t.Errorf("Wgst = %v, want nil", m.Wgst)
	}
	if m.Visib.SM == nil || *m.Visib.SM != 10 || !m.Visib.Unbounded {
		t.Errorf("Visib = %+v", m.Visib)
	}
	if len(m.Clouds) != 1 || m.Clouds[0].Cover != "SCT" || *m.Clouds[0].Base != 5000 {
		t.Errorf("Clouds = %+v", m.Clouds)
	}
}

func TestWindDirUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantDeg *int
		wantVrb bool
	}{
		{"degrees", `150`, intPtr(150), false},
		{"variable", `"VRB"`, nil, true},
		{"quoted degrees", `"220"`, intPtr(220), false},
		{"null", `null`, nil, false},
		{"unknown token", `"MISG"`, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d WindDir
			if err := json.Unmarshal([]byte(tt.in), &d); err != nil {
				t.Fatalf("Unmarshal(%s): %v", tt.in, err)
			}
			checkIntPtr(t, "Degrees", d.Degrees, tt.wantDeg)
			if d.Variable != tt.wantVrb {
				t.Errorf("Variable = %v, want %v", d.Variable, tt.wantVrb)
			}
		})
	}
}

func TestVisibilityUnmarshal(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantSM   *float64
		wantPlus bool
	}{
		{"number", `6`, floatPtr(6), false},
		{"ten plus", `"10+"`, floatPtr(10), true},
		{"mixed fraction", `"1 1/2"`, floatPtr(1.5), false},
		{"bare fraction", `"1/2"`, floatPtr(0.5), false},
		{"null", `null`, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Visibility
			if err := json.Unmarshal([]byte(tt.in), &v); err != nil {
				t.Fatalf("Unmarshal(%s): %v", tt.in, err)
			}
			checkFloatPtr(t, "SM", v.SM, tt.wantSM)
			if v.Unbounded != tt.wantPlus {
				t.Errorf("Unbounded = %v, want %v", v.Unbounded, tt.wantPlus)
			}
		})
	}
}

func TestSnapshotStale(t *testing.T) {
	snap := &Snapshot{LastUpdated: time.Now().Add(-10 * time.Minute)}
	if snap.Stale(30 * time.Minute) {
		t.Error("snapshot within maxAge reported stale")
	}
	if !snap.Stale(5 * time.Minute) {
		t.Error("snapshot past maxAge not reported stale")
	}
}

func TestObservationFromSnapshot(t *testing.T) {
	if obs := ObservationFromSnapshot(nil); obs != nil {
		t.Error("nil snapshot should produce nil observation")
	}
	if obs := ObservationFromSnapshot(&Snapshot{Ident: "kspb"}); obs != nil {
		t.Error("snapshot without METAR should produce nil observation")
	}

	snap := &Snapshot{
		Ident: "kspb",
		METAR: &METARResponse{RawOb: "KSPB 221753Z 15008KT 10SM SCT050 22/12 A3002"},
		Decoded: &Decoded{
			ObsTime:        time.Date(2026, 8, 22, 17, 53, 0, 0, time.UTC),
			FlightCategory: CategoryVFR,
			WindDirDeg:     intPtr(150),
			WindSpeedKt:    intPtr(8),
		},
	}
	obs := ObservationFromSnapshot(snap)
	if obs == nil {
		t.Fatal("expected observation")
	}
	if obs.Ident != "kspb" || obs.FlightCategory != CategoryVFR {
		t.Errorf("observation = %+v", obs)
	}
	if obs.RawText != snap.METAR.RawOb {
		t.Errorf("RawText = %q", obs.RawText)
	}
}
