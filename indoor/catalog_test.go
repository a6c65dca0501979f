package indoor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLayerCatalog_Lookup(t *testing.T) {
	c := DefaultLayerCatalog()

	tests := []struct {
		key  string
		want LayerInfo
	}{
		{"OFFICE 1", LayerInfo{Name: "Văn phòng 1", Type: TypeOffice, Color: "#3b82f6"}},
		{"OFFICE11", LayerInfo{Name: "Văn phòng 11", Type: TypeOffice, Color: "#3b82f6"}},
		{"WC9", LayerInfo{Name: "Nhà vệ sinh 9", Type: TypeToilet, Color: "#ec4899"}},
		{"TC4", LayerInfo{Name: "Quầy thông tin 4", Type: TypeInformation, Color: "#06b6d4"}},
		{"QNHANHLY6", LayerInfo{Name: "Quầy nhận hành lý 6", Type: TypeBaggage, Color: "#0ea5e9"}},
		{"KLTHUTUC3", LayerInfo{Name: "Khu làm thủ tục 3", Type: TypeCheckIn, Color: "#10b981"}},
		{"L&FDG24", LayerInfo{Name: "Đồ thất lạc DG24", Type: TypeService, Color: "#14b8a6"}},
		{"DRAWDEMO", LayerInfo{Name: "Cấu trúc", Type: TypeStructure, Color: "#e5e7eb"}},
		{"DEMODOOR", LayerInfo{Name: "Cửa", Type: TypeDoor, Color: "#d1d5db"}},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.True(t, c.Has(tt.key))
			assert.Equal(t, tt.want, c.Lookup(tt.key))
		})
	}
}

func TestLayerCatalog_DefaultLookup(t *testing.T) {
	c := DefaultLayerCatalog()

	for _, key := range []string{"NONEXISTENT_KEY", "", "WC6", "office 1"} {
		assert.NotPanics(t, func() {
			info := c.Lookup(key)
			assert.Equal(t, TypeDefault, info.Type)
			assert.Equal(t, key, info.Name)
			assert.Equal(t, DefaultLayerColor, info.Color)
		})
		assert.False(t, c.Has(key))
	}
}

func TestLayerCatalog_CategoryOf(t *testing.T) {
	c := DefaultLayerCatalog()

	tests := []struct {
		semanticType string
		want         string
	}{
		{TypeCheckIn, "check-in"},
		{TypeTicket, "check-in"},
		{TypeInformation, "check-in"},
		{TypeRestaurant, "dining"},
		{TypeService, "services"},
		{TypeBaggage, "services"},
		{TypeToilet, "facilities"},
		{TypeWaiting, "facilities"},
		{TypeOffice, "offices"},
		{TypeEmergency, "emergency"},
		{TypeTechnical, "technical"},
		{TypeUtility, "technical"},
		{TypeStorage, "technical"},
		{TypeStructure, CategoryOther},
		{TypeDoor, CategoryOther},
		{TypeDefault, CategoryOther},
		{"lounge", CategoryOther},
	}
	for _, tt := range tests {
		t.Run(tt.semanticType, func(t *testing.T) {
			assert.Equal(t, tt.want, c.CategoryOf(tt.semanticType))
		})
	}
}

func TestLayerCatalog_Priority(t *testing.T) {
	c := DefaultLayerCatalog()
	assert.Less(t, c.Lookup("DRAWDEMO").Priority(), c.Lookup("DEMODOOR").Priority())
	assert.Less(t, c.Lookup("DEMODOOR").Priority(), c.Lookup("KT1").Priority())
	assert.Less(t, c.Lookup("KT1").Priority(), c.Lookup("UNKNOWN").Priority())
	assert.Less(t, c.Lookup("UNKNOWN").Priority(), c.Lookup("WC1").Priority())
}

func TestLayerCatalog_WithOverrides(t *testing.T) {
	base := DefaultLayerCatalog()
	c := base.WithOverrides(map[string]LayerInfo{
		"GATE1": {Name: "Gate 1", Type: TypeCheckIn, Color: "#000000"},
		"WC1":   {Name: "Restroom", Type: TypeToilet, Color: "#111111"},
	})

	assert.Equal(t, "Gate 1", c.Lookup("GATE1").Name)
	assert.Equal(t, "check-in", c.CategoryOf(c.Lookup("GATE1").Type))
	assert.Equal(t, "Restroom", c.Lookup("WC1").Name)
	assert.False(t, base.Has("GATE1"), "base catalog is unchanged")
	assert.Equal(t, "Nhà vệ sinh 1", base.Lookup("WC1").Name)
}

func TestLayerCatalog_Categories(t *testing.T) {
	c := DefaultLayerCatalog()
	cats := c.Categories()
	assert.Len(t, cats, 7)
	assert.Equal(t, "check-in", cats[0].ID)

	cats[0].ID = "mutated"
	got, ok := c.Category("check-in")
	assert.True(t, ok)
	assert.Equal(t, "#10b981", got.Color)

	_, ok = c.Category("nope")
	assert.False(t, ok)

	keys := c.Keys()
	assert.IsIncreasing(t, keys)
	assert.Contains(t, keys, "JESTAR PACIFIC")
}
