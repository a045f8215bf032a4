package cache

import (
	"encoding/json"
	"testing"
	"time"
)

// withLocalZone runs the test with a non-UTC local zone.
func withLocalZone(t *testing.T) {
	t.Helper()
	prev := time.Local
	time.Local = time.FixedZone("UTC-4", -4*60*60)
	t.Cleanup(func() { time.Local = prev })
}

func TestNewSerializer(t *testing.T) {
	for _, name := range []string{"", "json", "MSGPACK", " cbor "} {
		if _, err := NewSerializer(name); err != nil {
			t.Errorf("NewSerializer(%q) error = %v", name, err)
		}
	}
	if _, err := NewSerializer("gob"); err == nil {
		t.Error("expected an error for an unknown serializer")
	}
}

func TestSerializers_TimesDecodeInUTC(t *testing.T) {
	withLocalZone(t)

	want := widget{ID: 1, Name: "Widget", Stock: 3, Seen: time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)}
	wantJSON, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}

	for _, name := range []string{SerializerJSON, SerializerMsgpack, SerializerCBOR} {
		t.Run(name, func(t *testing.T) {
			s, err := NewSerializer(name)
			if err != nil {
				t.Fatalf("NewSerializer: %v", err)
			}
			data, err := s.Marshal(want)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}

			var got widget
			if err := s.Unmarshal(data, &got); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if got != want {
				t.Errorf("got %+v, want %+v", got, want)
			}
			if got.Seen.Location() != time.UTC {
				t.Errorf("Seen decoded in %v, want UTC", got.Seen.Location())
			}
			gotJSON, _ := json.Marshal(got)
			if string(gotJSON) != string(wantJSON) {
				t.Errorf("rendered %s, want %s", gotJSON, wantJSON)
			}

			var list []widget
			data, err = s.Marshal([]widget{want})
			if err != nil {
				t.Fatalf("Marshal slice: %v", err)
			}
			if err := s.Unmarshal(data, &list); err != nil {
				t.Fatalf("Unmarshal slice: %v", err)
			}
			if len(list) != 1 || list[0] != want {
				t.Errorf("slice round trip = %+v", list)
			}
		})
	}
}
