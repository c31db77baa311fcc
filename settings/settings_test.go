package settings

import (
	"errors"
	"path/filepath"
	"testing"

	"buttonboard-go/errcode"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Settings{
		Defaults(),
		{Brightness: 0, TwelveHour: true, AlarmEnabled: true, AlarmHour: 23, AlarmMinute: 59},
		{Brightness: 9, TwelveHour: false, AlarmEnabled: true, AlarmHour: 0, AlarmMinute: 0},
	}
	for _, want := range cases {
		raw := want.Encode(nil)
		got, err := Decode(raw)
		if err != nil {
			t.Fatalf("Decode(%s): %v", raw, err)
		}
		if got != want {
			t.Errorf("round trip: got %+v, want %+v (raw %s)", got, want, raw)
		}
	}
}

func TestDecodeToleratesUnknownAndMissingKeys(t *testing.T) {
	got, err := Decode([]byte(`{"brightness":3,"future_field":"x"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := Defaults()
	want.Brightness = 3
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestDecodeCorruptYieldsDefaults(t *testing.T) {
	for _, raw := range [][]byte{
		[]byte(`{"brightness":`),
		[]byte(`[1,2,3]`),
		[]byte("\x00\xFF\x17garbage"),
		[]byte(`"just a string"`),
	} {
		got, err := Decode(raw)
		if errcode.Of(err) != errcode.StoreCorrupt {
			t.Errorf("Decode(%q) err = %v, want store_corrupt", raw, err)
		}
		if got != Defaults() {
			t.Errorf("Decode(%q) = %+v, want defaults", raw, got)
		}
	}
}

func TestDecodeClampsAndWrapsFields(t *testing.T) {
	got, err := Decode([]byte(`{"brightness":40,"alarm_hour":24,"alarm_minute":61}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Brightness != 9 {
		t.Errorf("Brightness = %d, want clamp to 9", got.Brightness)
	}
	if got.AlarmHour != 0 {
		t.Errorf("AlarmHour = %d, want wrap to 0", got.AlarmHour)
	}
	if got.AlarmMinute != 1 {
		t.Errorf("AlarmMinute = %d, want wrap to 1", got.AlarmMinute)
	}
}

func TestSlotStoreFreshMediumIsEmpty(t *testing.T) {
	st := &SlotStore{Slots: [2]Page{NewMemPage(128), NewMemPage(128)}}
	raw, err := st.Load()
	if err != nil || raw != nil {
		t.Fatalf("Load = %v, %v; want nil, nil", raw, err)
	}
	s, err := Load(st)
	if err != nil || s != Defaults() {
		t.Fatalf("Load(st) = %+v, %v; want defaults, nil", s, err)
	}
}

func TestSlotStoreNewestRecordWins(t *testing.T) {
	st := &SlotStore{Slots: [2]Page{NewMemPage(128), NewMemPage(128)}}

	first := Defaults()
	first.Brightness = 1
	second := Defaults()
	second.Brightness = 2

	if err := Save(st, first); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := Save(st, second); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(st)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Brightness != 2 {
		t.Fatalf("Brightness = %d, want newest record", got.Brightness)
	}
}

func TestSlotStoreCorruptSlotFallsBackToOlder(t *testing.T) {
	pages := [2]Page{NewMemPage(128), NewMemPage(128)}
	st := &SlotStore{Slots: pages}

	first := Defaults()
	first.Brightness = 1
	second := Defaults()
	second.Brightness = 2
	if err := Save(st, first); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := Save(st, second); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Smash whichever slot holds the newer record.
	for i := 0; i < 2; i++ {
		page := pages[i].(*MemPage)
		var buf [128]byte
		_ = page.Read(buf[:])
		seq := uint16(buf[0]) | uint16(buf[1])<<8
		if seq == 2 {
			buf[5] ^= 0xFF
			_ = page.Write(buf[:])
		}
	}

	got, err := Load(st)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Brightness != 1 {
		t.Fatalf("Brightness = %d, want fallback to older record", got.Brightness)
	}
}

func TestSlotStorePageErrorSurfacesAsStoreIO(t *testing.T) {
	page := NewMemPage(128)
	st := &SlotStore{Slots: [2]Page{page, NewMemPage(128)}}
	if err := Save(st, Defaults()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	page.FailWith(errors.New("flash wedged"))
	other := st.Slots[1].(*MemPage)
	other.FailWith(errors.New("flash wedged"))
	if err := Save(st, Defaults()); errcode.Of(err) != errcode.StoreIO {
		t.Fatalf("Save err = %v, want store_io", err)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	st := &FileStore{Path: filepath.Join(t.TempDir(), "settings.json")}

	raw, err := st.Load()
	if err != nil || raw != nil {
		t.Fatalf("Load on missing file = %v, %v; want nil, nil", raw, err)
	}

	want := Defaults()
	want.TwelveHour = true
	if err := Save(st, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(st)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestLoadCorruptStoreReturnsDefaultsAndError(t *testing.T) {
	st := &stubStore{raw: []byte("not json at all")}
	got, err := Load(st)
	if errcode.Of(err) != errcode.StoreCorrupt {
		t.Fatalf("err = %v, want store_corrupt", err)
	}
	if got != Defaults() {
		t.Fatalf("got %+v, want defaults", got)
	}
}

type stubStore struct {
	raw []byte
}

func (s *stubStore) Load() ([]byte, error) { return s.raw, nil }
func (s *stubStore) Save(raw []byte) error { s.raw = raw; return nil }
