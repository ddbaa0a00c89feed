package cta

import (
	"fmt"
	"reflect"
	"testing"
	"time"
)

func chicagoTime(t time.Time) string {
	return t.In(chicagoTZ).Format("20060102 15:04:05")
}

func TestNormalizeScenario(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, chicagoTZ)
	raw := fmt.Sprintf(`{"ctatt":{"errCd":"0","eta":[{"rt":"Red","destNm":"Howard","arrT":"%s","isApp":"0","isDly":"0","rn":"417","staNm":"Belmont"}]}}`,
		chicagoTime(now.Add(20*time.Minute)))

	arrivals, err := Normalize([]byte(raw), now)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(arrivals) != 1 {
		t.Fatalf("expected 1 arrival, got %d", len(arrivals))
	}
	a := arrivals[0]
	if a.Line != "Red" {
		t.Errorf("line = %q", a.Line)
	}
	if a.Destination != "Howard" {
		t.Errorf("destination = %q", a.Destination)
	}
	if a.ArrivalTime != "20 min" {
		t.Errorf("arrivalTime = %q, expected %q", a.ArrivalTime, "20 min")
	}
	if a.Status != "On Time" {
		t.Errorf("status = %q, expected %q", a.Status, "On Time")
	}
	if a.VehicleID != "417" {
		t.Errorf("vehicleId = %q", a.VehicleID)
	}
}

func TestNormalizeMissingDestination(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, chicagoTZ)
	raw := fmt.Sprintf(`{"ctatt":{"eta":[{"rt":"","destNm":"","arrT":"%s"}]}}`,
		chicagoTime(now.Add(5*time.Minute)))

	arrivals, err := Normalize([]byte(raw), now)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(arrivals) != 1 {
		t.Fatalf("expected 1 arrival, got %d", len(arrivals))
	}
	if arrivals[0].Destination != "Unknown" {
		t.Errorf("destination = %q, expected Unknown", arrivals[0].Destination)
	}
	if arrivals[0].Line != "Unknown" {
		t.Errorf("line = %q, expected Unknown", arrivals[0].Line)
	}
}

func TestNormalizeScheduleFlagKeepsTimeBuckets(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, chicagoTZ)
	raw := fmt.Sprintf(`{"ctatt":{"eta":[{"rt":"Red","destNm":"Howard","arrT":"%s","isSch":"1"},{"rt":"Red","destNm":"95th","arrT":"%s","isSch":"1"},{"rt":"Red","destNm":"Linden","arrT":"%s","isSch":"1","isApp":"1"}]}}`,
		chicagoTime(now.Add(30*time.Minute)),
		chicagoTime(now.Add(90*time.Minute)),
		chicagoTime(now.Add(90*time.Minute)))

	arrivals, err := Normalize([]byte(raw), now)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(arrivals) != 3 {
		t.Fatalf("expected 3 arrivals, got %d", len(arrivals))
	}
	if arrivals[0].ArrivalTime != "30 min" {
		t.Errorf("schedule-based prediction inside the hour = %q, expected %q", arrivals[0].ArrivalTime, "30 min")
	}
	if arrivals[1].ArrivalTime != "Scheduled" {
		t.Errorf("beyond the hour = %q, expected Scheduled", arrivals[1].ArrivalTime)
	}
	if arrivals[2].ArrivalTime != "Approaching" {
		t.Errorf("approaching flag must win over the schedule flag, got %q", arrivals[2].ArrivalTime)
	}
}

func TestNormalizeDropsStale(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, chicagoTZ)
	raw := fmt.Sprintf(`{"ctatt":{"eta":[{"rt":"Red","destNm":"Howard","arrT":"%s"},{"rt":"Red","destNm":"95th","arrT":"%s"}]}}`,
		chicagoTime(now.Add(-14*time.Hour)), // stale cache nonsense
		chicagoTime(now.Add(3*time.Minute)))

	arrivals, err := Normalize([]byte(raw), now)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(arrivals) != 1 {
		t.Fatalf("expected stale record dropped, got %d arrivals", len(arrivals))
	}
	if arrivals[0].Destination != "95th" {
		t.Errorf("kept the wrong record: %+v", arrivals[0])
	}
}

func TestNormalizeApproachingPrecedence(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, chicagoTZ)
	raw := fmt.Sprintf(`{"ctatt":{"eta":[{"rt":"Blue","destNm":"O'Hare","arrT":"%s","isApp":"1"}]}}`,
		chicagoTime(now.Add(4*time.Minute)))

	arrivals, err := Normalize([]byte(raw), now)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if arrivals[0].ArrivalTime != "Approaching" {
		t.Errorf("arrivalTime = %q, expected Approaching to override minutes", arrivals[0].ArrivalTime)
	}
}

func TestNormalizeDelayed(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, chicagoTZ)
	raw := fmt.Sprintf(`{"ctatt":{"eta":[{"rt":"Brn","destNm":"Kimball","arrT":"%s","isDly":"1"}]}}`,
		chicagoTime(now.Add(9*time.Minute)))

	arrivals, err := Normalize([]byte(raw), now)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if arrivals[0].Status != "Delayed" {
		t.Errorf("status = %q", arrivals[0].Status)
	}
	if arrivals[0].Delay != "Delayed" {
		t.Errorf("delay = %q", arrivals[0].Delay)
	}
}

func TestNormalizeSemanticError(t *testing.T) {
	raw := `{"ctatt":{"errCd":"101","errNm":"Invalid API key","eta":[]}}`
	if _, err := Normalize([]byte(raw), time.Now()); err == nil {
		t.Fatal("embedded error code must fail normalization")
	}
}

func TestNormalizeEmpty(t *testing.T) {
	arrivals, err := Normalize([]byte(`{"ctatt":{"errCd":"0","eta":[]}}`), time.Now())
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(arrivals) != 0 {
		t.Errorf("expected empty result, got %d placeholder rows", len(arrivals))
	}
}

func TestNormalizeTruncates(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, chicagoTZ)
	etas := ""
	for i := 0; i < 14; i++ {
		if i > 0 {
			etas += ","
		}
		etas += fmt.Sprintf(`{"rt":"Red","destNm":"Howard","arrT":"%s"}`, chicagoTime(now.Add(time.Duration(i+1)*time.Minute)))
	}
	raw := fmt.Sprintf(`{"ctatt":{"eta":[%s]}}`, etas)

	arrivals, err := Normalize([]byte(raw), now)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(arrivals) != 10 {
		t.Errorf("expected truncation to 10, got %d", len(arrivals))
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, chicagoTZ)
	raw := []byte(fmt.Sprintf(`{"ctatt":{"eta":[{"rt":"Red","destNm":"Howard","arrT":"%s"}]}}`,
		chicagoTime(now.Add(7*time.Minute))))

	first, err := Normalize(raw, now)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	second, err := Normalize(raw, now)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("Normalize is not idempotent on identical input")
	}
}
