package indoor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQRLocation(t *testing.T) {
	tests := []struct {
		code    string
		wantID  string
		wantLat float64
		wantLng float64
	}{
		{"TSN_GATE_A1", "gate-a1", 280, 350},
		{"tsn_gate_b2", "gate-b2", 320, 450},
		{"  TSN_INFO ", "info-1", 300, 400},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			pos, err := QRLocation(tt.code)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, pos.ID)
			assert.Equal(t, LatLng{tt.wantLat, tt.wantLng}, pos.LatLng())
			assert.Equal(t, QRAccuracy, pos.Accuracy)
			assert.Equal(t, SourceQR, pos.Source)
		})
	}

	_, err := QRLocation("TSN_NOWHERE")
	assert.ErrorIs(t, err, ErrFeatureNotFound)
}

func TestQRCodes(t *testing.T) {
	codes := QRCodes()
	assert.Len(t, codes, 8)
	assert.IsIncreasing(t, codes)
	for _, code := range codes {
		_, err := QRLocation(code)
		assert.NoError(t, err)
	}
}

func TestSimulatedGPS(t *testing.T) {
	a := NewSimulatedGPS(42)
	b := NewSimulatedGPS(42)

	for i := 0; i < 50; i++ {
		pa, pb := a.Locate(), b.Locate()
		assert.Equal(t, pa.ID, pb.ID, "same seed gives the same sequence")
		assert.Equal(t, pa.Accuracy, pb.Accuracy)

		assert.GreaterOrEqual(t, pa.Accuracy, 10.0)
		assert.Less(t, pa.Accuracy, 30.0)
		assert.Equal(t, SourceGPS, pa.Source)
	}
}

func TestPosition_MarkerRadius(t *testing.T) {
	assert.Equal(t, 35.0, Position{Accuracy: 5}.MarkerRadius())
	assert.Equal(t, 35.0, Position{Accuracy: 17.5}.MarkerRadius())
	assert.Equal(t, 50.0, Position{Accuracy: 25}.MarkerRadius())
}

func TestDecodePosition(t *testing.T) {
	pos, err := DecodePosition([]byte(`{"id":"kiosk-7","name":"Kiosk 7","lat":300.5,"lng":410,"accuracy":8}`))
	require.NoError(t, err)
	assert.Equal(t, "kiosk-7", pos.ID)
	assert.Equal(t, LatLng{300.5, 410}, pos.LatLng())
	assert.Equal(t, 8.0, pos.Accuracy)
	assert.Equal(t, SourceMQTT, pos.Source)
	assert.NotZero(t, pos.Timestamp)

	// zero is a valid ordinate
	pos, err = DecodePosition([]byte(`{"lat":0,"lng":0}`))
	require.NoError(t, err)
	assert.Equal(t, LatLng{0, 0}, pos.LatLng())

	pos, err = DecodePosition([]byte(`{"code":"tsn_cafe_1"}`))
	require.NoError(t, err)
	assert.Equal(t, "cafe-1", pos.ID)
	assert.Equal(t, SourceQR, pos.Source)
}

func TestDecodePosition_Errors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `lat=1`},
		{"missing lng", `{"lat":1}`},
		{"empty object", `{}`},
		{"unknown code", `{"code":"NOPE"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePosition([]byte(tt.payload))
			assert.Error(t, err)
		})
	}
}
