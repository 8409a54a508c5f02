package location

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vbonduro/lensquery/internal/transport"
)

// HTTP reads the position from a JSON endpoint such as a phone companion
// app or a gpsd bridge. The reply must carry latitude and longitude;
// accuracy and timestamp (RFC 3339) are optional.
type HTTP struct {
	doer transport.Doer
	url  string
}

func NewHTTP(doer transport.Doer, url string) *HTTP {
	return &HTTP{doer: doer, url: url}
}

type positionReply struct {
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
}

func (h *HTTP) CurrentPosition(ctx context.Context) (Fix, error) {
	resp, err := h.doer.Do(ctx, &transport.Request{Method: http.MethodGet, URL: h.url})
	if err != nil {
		return Fix{}, err
	}
	if err := resp.Err(); err != nil {
		return Fix{}, err
	}

	var r positionReply
	if err := json.Unmarshal(resp.Body, &r); err != nil {
		return Fix{}, fmt.Errorf("failed to decode position: %w", err)
	}
	if r.Latitude == nil || r.Longitude == nil {
		return Fix{}, fmt.Errorf("position reply is missing coordinates")
	}

	fix := Fix{
		Latitude:  *r.Latitude,
		Longitude: *r.Longitude,
		Accuracy:  r.Accuracy,
		Timestamp: r.Timestamp,
	}
	if fix.Timestamp.IsZero() {
		fix.Timestamp = time.Now()
	}
	return fix, nil
}
