package weather

import (
	"errors"
	"testing"

	"github.com/aviationwx/aviationwx/pkg/logger"
)

func TestCacheUpdateAndGet(t *testing.T) {
	cache := NewCache(testClientConfig("http://unused"), logger.NewNop())
	apt := testAirport("kspb")

	if got := cache.Get("kspb"); got != nil {
		t.Fatalf("Get before update = %+v, want nil", got)
	}
	if !cache.IsExpired("kspb") {
		t.Error("missing entry should count as expired")
	}

	metar := &METARResponse{ICAOId: "KSPB", ObsTime: 1755885180,
		RawOb: "KSPB 221753Z 15008KT 10SM SCT050 22/12 A3002"}
	snap, changed := cache.Update(apt, []FetchResult{{Type: WeatherTypeMETAR, Data: metar}})
	if !changed {
		t.Error("first METAR should report a change")
	}
	if snap.Decoded == nil || snap.Decoded.FlightCategory != CategoryVFR {
		t.Errorf("Decoded = %+v", snap.Decoded)
	}

	if got := cache.Get("kspb"); got == nil || got.METAR.RawOb != metar.RawOb {
		t.Errorf("Get after update = %+v", got)
	}
	if cache.IsExpired("kspb") {
		t.Error("fresh entry reported expired")
	}

	// Same observation again is not a change
	_, changed = cache.Update(apt, []FetchResult{{Type: WeatherTypeMETAR, Data: metar}})
	if changed {
		t.Error("identical METAR reported as change")
	}
}

func TestCacheKeepsDataOnFetchFailure(t *testing.T) {
	cache := NewCache(testClientConfig("http://unused"), logger.NewNop())
	apt := testAirport("kspb")

	metar := &METARResponse{ICAOId: "KSPB", ObsTime: 1755885180,
		RawOb: "KSPB 221753Z 15008KT 10SM SCT050 22/12 A3002"}
	cache.Update(apt, []FetchResult{{Type: WeatherTypeMETAR, Data: metar}})

	snap, changed := cache.Update(apt, []FetchResult{
		{Type: WeatherTypeMETAR, Err: errors.New("upstream down")},
	})
	if changed {
		t.Error("failed fetch reported as change")
	}
	if snap.METAR == nil || snap.METAR.RawOb != metar.RawOb {
		t.Error("failed fetch dropped previous METAR")
	}
	if len(snap.FetchErrors) != 1 {
		t.Fatalf("FetchErrors = %v", snap.FetchErrors)
	}
	if want := "METAR: upstream down"; snap.FetchErrors[0] != want {
		t.Errorf("FetchErrors[0] = %q, want %q", snap.FetchErrors[0], want)
	}
}

func TestCacheSnapshotsSorted(t *testing.T) {
	cache := NewCache(testClientConfig("http://unused"), logger.NewNop())

	for _, ident := range []string{"khio", "kspb", "7s3"} {
		apt := testAirport(ident)
		cache.Update(apt, []FetchResult{{Type: WeatherTypeMETAR,
			Data: &METARResponse{RawOb: "X 221753Z 00000KT 10SM CLR 22/12 A3002"}}})
	}

	snaps := cache.Snapshots()
	if len(snaps) != 3 {
		t.Fatalf("got %d snapshots", len(snaps))
	}
	for i, want := range []string{"7s3", "khio", "kspb"} {
		if snaps[i].Ident != want {
			t.Errorf("snaps[%d] = %q, want %q", i, snaps[i].Ident, want)
		}
	}
}

func TestCacheInvalidate(t *testing.T) {
	cache := NewCache(testClientConfig("http://unused"), logger.NewNop())
	cache.Update(testAirport("kspb"), []FetchResult{{Type: WeatherTypeMETAR,
		Data: &METARResponse{RawOb: "KSPB 221753Z 00000KT 10SM CLR 22/12 A3002"}}})

	cache.Invalidate("kspb")
	if cache.Get("kspb") != nil {
		t.Error("entry survived Invalidate")
	}
}
