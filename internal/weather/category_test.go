package weather

import (
	"testing"
	"time"
)

func intPtr(n int) *int           { return &n }
func floatPtr(f float64) *float64 { return &f }

func TestDeriveCategory(t *testing.T) {
	tests := []struct {
		name string
		vis  *float64
		ceil *int
		want string
	}{
		{"clear VFR", floatPtr(10), nil, CategoryVFR},
		{"high ceiling VFR", floatPtr(10), intPtr(12000), CategoryVFR},
		{"vis exactly 5 is MVFR", floatPtr(5), nil, CategoryMVFR},
		{"ceiling exactly 3000 is MVFR", floatPtr(10), intPtr(3000), CategoryMVFR},
		{"ceiling just above 3000 is VFR", floatPtr(10), intPtr(3100), CategoryVFR},
		{"vis exactly 3 is MVFR", floatPtr(3), nil, CategoryMVFR},
		{"vis below 3 is IFR", floatPtr(2.5), intPtr(5000), CategoryIFR},
		{"ceiling below 1000 is IFR", floatPtr(10), intPtr(800), CategoryIFR},
		{"ceiling exactly 500 is IFR", floatPtr(10), intPtr(500), CategoryIFR},
		{"vis below 1 is LIFR", floatPtr(0.5), nil, CategoryLIFR},
		{"ceiling below 500 is LIFR", floatPtr(10), intPtr(400), CategoryLIFR},
		{"worst value governs", floatPtr(10), intPtr(200), CategoryLIFR},
		{"missing vis uses ceiling", nil, intPtr(2000), CategoryMVFR},
		{"missing ceiling uses vis", floatPtr(2), nil, CategoryIFR},
		{"both missing is unknown", nil, nil, CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveCategory(tt.vis, tt.ceil)
			if got != tt.want {
				t.Errorf("DeriveCategory() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCeiling(t *testing.T) {
	base := func(n int) *int { return &n }

	clouds := []CloudLayer{
		{Cover: "FEW", Base: base(1500)},
		{Cover: "SCT", Base: base(2500)},
		{Cover: "BKN", Base: base(4000)},
		{Cover: "OVC", Base: base(6000)},
	}
	got := Ceiling(clouds)
	if got == nil || *got != 4000 {
		t.Errorf("Ceiling() = %v, want 4000", got)
	}

	// Scattered layers never form a ceiling
	if got := Ceiling([]CloudLayer{{Cover: "SCT", Base: base(800)}}); got != nil {
		t.Errorf("Ceiling() with only SCT = %v, want nil", got)
	}

	// Vertical visibility counts
	if got := Ceiling([]CloudLayer{{Cover: "VV", Base: base(200)}}); got == nil || *got != 200 {
		t.Errorf("Ceiling() with VV = %v, want 200", got)
	}

	// Layers without a base are skipped
	if got := Ceiling([]CloudLayer{{Cover: "BKN"}}); got != nil {
		t.Errorf("Ceiling() with nil base = %v, want nil", got)
	}

	if got := Ceiling(nil); got != nil {
		t.Errorf("Ceiling(nil) = %v, want nil", got)
	}
}

func TestDecodeConvertsAltimeter(t *testing.T) {
	m := &METARResponse{
		ICAOId:  "KSPB",
		ObsTime: 1755885180,
		Temp:    floatPtr(22),
		Dewp:    floatPtr(12),
		Wdir:    WindDir{Degrees: intPtr(150)},
		Wspd:    intPtr(8),
		Visib:   Visibility{SM: floatPtr(10), Unbounded: true},
		Altim:   floatPtr(1016.9),
		Clouds:  []CloudLayer{{Cover: "SCT", Base: intPtr(5000)}},
		RawOb:   "KSPB 221753Z 15008KT 10SM SCT050 22/12 A3003",
	}

	d := Decode(m)
	if d == nil {
		t.Fatal("Decode returned nil")
	}
	if d.AltimeterInHg == nil || *d.AltimeterInHg != 30.03 {
		t.Errorf("AltimeterInHg = %v, want 30.03", d.AltimeterInHg)
	}
	if d.FlightCategory != CategoryVFR {
		t.Errorf("FlightCategory = %q, want VFR", d.FlightCategory)
	}
	if d.CeilingFt != nil {
		t.Errorf("CeilingFt = %v, want nil for scattered layer", d.CeilingFt)
	}
	if !d.ObsTime.Equal(time.Unix(1755885180, 0).UTC()) {
		t.Errorf("ObsTime = %v", d.ObsTime)
	}
}

func TestDecodeKeepsInHgAltimeter(t *testing.T) {
	// Custom sources report inches directly
	m := &METARResponse{RawOb: "KSPB 221753Z 00000KT 10SM CLR 22/12", Altim: floatPtr(30.02)}
	d := Decode(m)
	if d.AltimeterInHg == nil || *d.AltimeterInHg != 30.02 {
		t.Errorf("AltimeterInHg = %v, want 30.02", d.AltimeterInHg)
	}
}

func TestDecodeFallsBackToRawText(t *testing.T) {
	// A custom source gives us only the raw observation
	m := &METARResponse{
		ICAOId: "KSPB",
		RawOb:  "KSPB 221753Z 15008G18KT 2 1/2SM BR OVC008 22/12 A3002",
	}

	d := Decode(m)
	if d == nil {
		t.Fatal("Decode returned nil")
	}
	if d.WindDirDeg == nil || *d.WindDirDeg != 150 {
		t.Errorf("WindDirDeg = %v, want 150", d.WindDirDeg)
	}
	if d.WindGustKt == nil || *d.WindGustKt != 18 {
		t.Errorf("WindGustKt = %v, want 18", d.WindGustKt)
	}
	if d.VisibilitySM == nil || *d.VisibilitySM != 2.5 {
		t.Errorf("VisibilitySM = %v, want 2.5", d.VisibilitySM)
	}
	if d.TempC == nil || *d.TempC != 22 {
		t.Errorf("TempC = %v, want 22", d.TempC)
	}
	if d.AltimeterInHg == nil || *d.AltimeterInHg != 30.02 {
		t.Errorf("AltimeterInHg = %v, want 30.02", d.AltimeterInHg)
	}
	if d.CeilingFt == nil || *d.CeilingFt != 800 {
		t.Errorf("CeilingFt = %v, want 800", d.CeilingFt)
	}
	if d.FlightCategory != CategoryIFR {
		t.Errorf("FlightCategory = %q, want IFR", d.FlightCategory)
	}
	if d.ObsTime.IsZero() {
		t.Error("ObsTime not filled from raw text")
	}
}

func TestDecodeNil(t *testing.T) {
	if Decode(nil) != nil {
		t.Error("Decode(nil) should return nil")
	}
}
