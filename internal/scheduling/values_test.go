package scheduling

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2024-06-10 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Year != 2024 || d.Month != time.June || d.Day != 10 {
		t.Fatalf("unexpected date: %+v", d)
	}
	if d.String() != "2024-06-10" {
		t.Fatalf("expected 2024-06-10, got %s", d)
	}

	for _, raw := range []string{"", "2024-6-10", "2024-02-30", "abc"} {
		if _, err := ParseDate(raw); err != ErrInvalidDate {
			t.Fatalf("%q: expected ErrInvalidDate, got %v", raw, err)
		}
	}
}

func TestDate_BeforeAndAt(t *testing.T) {
	a := MustParseDate("2024-06-10")
	b := MustParseDate("2024-07-01")

	if !a.Before(b) || b.Before(a) || a.Before(a) {
		t.Fatalf("Before ordering is wrong")
	}

	at := a.At(MustParseTimeOfDay("14:30"), time.UTC)
	if !at.Equal(time.Date(2024, 6, 10, 14, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected instant %v", at)
	}
}

func TestDate_Scan(t *testing.T) {
	var d Date
	if err := d.Scan(time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)); err != nil || d.String() != "2024-06-10" {
		t.Fatalf("scan time.Time: %v %v", d, err)
	}
	if err := d.Scan("2024-06-11T00:00:00Z"); err != nil || d.String() != "2024-06-11" {
		t.Fatalf("scan string: %v %v", d, err)
	}
	if err := d.Scan([]byte("2024-06-12")); err != nil || d.String() != "2024-06-12" {
		t.Fatalf("scan bytes: %v %v", d, err)
	}
	if err := d.Scan(42); err == nil {
		t.Fatalf("expected error scanning int")
	}
}

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("09:05")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tod.Minutes() != 9*60+5 || tod.String() != "09:05" {
		t.Fatalf("unexpected time: %v", tod)
	}

	for _, raw := range []string{"9:05", "24:00", "12:60", "12-30", "", "12:30:00"} {
		if _, err := ParseTimeOfDay(raw); err != ErrInvalidTimeOfDay {
			t.Fatalf("%q: expected ErrInvalidTimeOfDay, got %v", raw, err)
		}
	}
}

func TestTimeOfDay_Add(t *testing.T) {
	tod := MustParseTimeOfDay("23:30")
	if _, ok := tod.Add(30 * time.Minute); ok {
		t.Fatalf("expected overflow past midnight")
	}
	next, ok := tod.Add(29 * time.Minute)
	if !ok || next.String() != "23:59" {
		t.Fatalf("expected 23:59, got %v %v", next, ok)
	}
}

func TestTimeOfDay_ScanTrimsSeconds(t *testing.T) {
	var tod TimeOfDay
	if err := tod.Scan("10:30:00"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tod.String() != "10:30" {
		t.Fatalf("expected 10:30, got %v", tod)
	}
}

func TestJSONRoundTripInStruct(t *testing.T) {
	type payload struct {
		Date Date      `json:"date"`
		Time TimeOfDay `json:"time"`
	}

	var p payload
	if err := json.Unmarshal([]byte(`{"date":"2024-06-10","time":"10:00"}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"date":"2024-06-10","time":"10:00"}` {
		t.Fatalf("unexpected json %s", out)
	}

	if err := json.Unmarshal([]byte(`{"date":"10-06-2024","time":"10:00"}`), &p); err == nil {
		t.Fatalf("expected error for malformed date")
	}
}
