package indoor

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"
)

// PositionSource names where a position came from.
type PositionSource string

const (
	SourceQR   PositionSource = "qr"
	SourceGPS  PositionSource = "gps"
	SourceMQTT PositionSource = "mqtt"
)

// Position is a located user in rendering units.
type Position struct {
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name,omitempty"`
	Lat       float64        `json:"lat"`
	Lng       float64        `json:"lng"`
	Accuracy  float64        `json:"accuracy"`
	Source    PositionSource `json:"source,omitempty"`
	Timestamp int64          `json:"timestamp,omitempty"`
}

// LatLng returns the position as a LatLng.
func (p Position) LatLng() LatLng { return LatLng{p.Lat, p.Lng} }

// minMarkerRadius is the smallest accuracy circle drawn around the user.
const minMarkerRadius = 35.0

// MarkerRadius returns the radius of the user's accuracy circle.
func (p Position) MarkerRadius() float64 {
	return math.Max(p.Accuracy*2, minMarkerRadius)
}

// QRAccuracy is the accuracy reported for a scanned code.
const QRAccuracy = 5.0

type demoLocation struct {
	id   string
	name string
	lat  float64
	lng  float64
}

var qrLocations = map[string]demoLocation{
	"TSN_GATE_A1":   {id: "gate-a1", name: "Gate A1", lat: 280, lng: 350},
	"TSN_GATE_B2":   {id: "gate-b2", name: "Gate B2", lat: 320, lng: 450},
	"TSN_CHECKIN_1": {id: "checkin-1", name: "Check-in Counter 1", lat: 250, lng: 300},
	"TSN_TOILET_1":  {id: "toilet-1", name: "Toilet - Terminal 1", lat: 290, lng: 380},
	"TSN_CAFE_1":    {id: "cafe-1", name: "Coffee Shop", lat: 310, lng: 420},
	"TSN_SECURITY":  {id: "security-1", name: "Security Checkpoint", lat: 270, lng: 360},
	"TSN_BAGGAGE":   {id: "baggage-1", name: "Baggage Claim", lat: 240, lng: 320},
	"TSN_INFO":      {id: "info-1", name: "Information Desk", lat: 300, lng: 400},
}

// QRCodes returns the known code ids.
func QRCodes() []string {
	codes := make([]string, 0, len(qrLocations))
	for code := range qrLocations {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// QRLocation resolves a scanned code to a position.
func QRLocation(code string) (Position, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	loc, ok := qrLocations[code]
	if !ok {
		return Position{}, fmt.Errorf("qr code %q: %w", code, ErrFeatureNotFound)
	}
	return Position{
		ID:        loc.id,
		Name:      loc.name,
		Lat:       loc.lat,
		Lng:       loc.lng,
		Accuracy:  QRAccuracy,
		Source:    SourceQR,
		Timestamp: time.Now().Unix(),
	}, nil
}

var gpsLocations = []demoLocation{
	{id: "waiting-a", name: "Khu vực chờ A", lat: 285, lng: 375},
	{id: "waiting-b", name: "Khu vực chờ B", lat: 295, lng: 395},
	{id: "main-hall", name: "Hành lang chính", lat: 275, lng: 355},
	{id: "shopping", name: "Khu vực thương mại", lat: 305, lng: 415},
	{id: "main-entrance", name: "Lối vào chính", lat: 265, lng: 345},
}

// SimulatedGPS stands in for an indoor positioning sensor. It picks one of
// a few fixed spots with a random accuracy of 10 to 30 units.
type SimulatedGPS struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedGPS creates a source seeded with seed.
func NewSimulatedGPS(seed uint64) *SimulatedGPS {
	return &SimulatedGPS{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Locate returns the next simulated position.
func (g *SimulatedGPS) Locate() Position {
	g.mu.Lock()
	loc := gpsLocations[g.rng.IntN(len(gpsLocations))]
	accuracy := 10 + g.rng.Float64()*20
	g.mu.Unlock()

	return Position{
		ID:        loc.id,
		Name:      loc.name,
		Lat:       loc.lat,
		Lng:       loc.lng,
		Accuracy:  accuracy,
		Source:    SourceGPS,
		Timestamp: time.Now().Unix(),
	}
}

// DecodePosition parses a locator event payload. It accepts a position
// object or a bare {"code": "..."} QR reference.
func DecodePosition(payload []byte) (Position, error) {
	var raw struct {
		ID       string   `json:"id"`
		Name     string   `json:"name"`
		Lat      *float64 `json:"lat"`
		Lng      *float64 `json:"lng"`
		Accuracy float64  `json:"accuracy"`
		Code     string   `json:"code"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Position{}, fmt.Errorf("decoding position: %w", err)
	}
	if raw.Code != "" {
		return QRLocation(raw.Code)
	}
	if raw.Lat == nil || raw.Lng == nil {
		return Position{}, fmt.Errorf("decoding position: lat and lng are required")
	}

	return Position{
		ID:        raw.ID,
		Name:      raw.Name,
		Lat:       *raw.Lat,
		Lng:       *raw.Lng,
		Accuracy:  raw.Accuracy,
		Source:    SourceMQTT,
		Timestamp: time.Now().Unix(),
	}, nil
}
