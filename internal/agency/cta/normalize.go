package cta

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/arrival"
)

// response mirrors the Train Tracker payload: abbreviated attribute names,
// string-encoded booleans, and an embedded error code even on HTTP 200.
type response struct {
	Ctatt struct {
		ErrCd string `json:"errCd"`
		ErrNm string `json:"errNm"`
		Eta   []struct {
			Rt     string `json:"rt"`
			DestNm string `json:"destNm"`
			ArrT   string `json:"arrT"`
			IsApp  string `json:"isApp"`
			IsDly  string `json:"isDly"`
			IsSch  string `json:"isSch"`
			Rn     string `json:"rn"`
			StaNm  string `json:"staNm"`
			StpDe  string `json:"stpDe"`
			TrDr   string `json:"trDr"`
		} `json:"eta"`
	} `json:"ctatt"`
}

// Normalize converts a raw Train Tracker body into canonical arrivals.
// Pure: the same body and clock always produce the same output. Records
// outside the staleness window are dropped, records missing a destination
// or line default to "Unknown", and the result preserves upstream order
// capped at the shared bound.
func Normalize(raw []byte, now time.Time) ([]arrival.Arrival, error) {
	var resp response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode cta response: %w", err)
	}
	if resp.Ctatt.ErrCd != "" && resp.Ctatt.ErrCd != "0" {
		return nil, fmt.Errorf("cta error %s: %s", resp.Ctatt.ErrCd, resp.Ctatt.ErrNm)
	}

	out := make([]arrival.Arrival, 0, len(resp.Ctatt.Eta))
	for _, eta := range resp.Ctatt.Eta {
		c, err := arrival.ClassifyString(eta.ArrT, chicagoTZ, now)
		if err != nil {
			if errors.Is(err, arrival.ErrStale) {
				continue
			}
			// Unparseable time: the record can never show a usable
			// arrival, so it is dropped rather than surfaced as garbage.
			continue
		}

		// The approaching flag wins over every time bucket, including
		// schedule-based predictions ("Scheduled" already comes out of
		// classification for anything beyond 60 minutes).
		label := c.Label
		if eta.IsApp == "1" {
			label = arrival.Approaching
		}

		status := "On Time"
		delay := ""
		if eta.IsDly == "1" {
			status = "Delayed"
			delay = "Delayed"
		}

		out = append(out, arrival.Arrival{
			Line:             arrival.OrUnknown(eta.Rt),
			Station:          eta.StaNm,
			Destination:      arrival.OrUnknown(eta.DestNm),
			Direction:        eta.TrDr,
			ArrivalTime:      label,
			MinutesToArrival: c.Minutes,
			Delay:            delay,
			VehicleID:        eta.Rn,
			Status:           status,
			Platform:         eta.StpDe,
		})
	}
	return arrival.Truncate(out), nil
}
