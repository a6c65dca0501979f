package indoor

import (
	"fmt"
	"sort"
)

// Semantic layer types.
const (
	TypeOffice      = "office"
	TypeToilet      = "toilet"
	TypeInformation = "information"
	TypeBaggage     = "baggage"
	TypeCheckIn     = "check-in"
	TypeRestaurant  = "restaurant"
	TypeEmergency   = "emergency"
	TypeService     = "service"
	TypeTicket      = "ticket"
	TypeWaiting     = "waiting"
	TypeTechnical   = "technical"
	TypeStorage     = "storage"
	TypeUtility     = "utility"
	TypeStructure   = "structure"
	TypeDoor        = "door"
	TypeDefault     = "default"
)

// CategoryOther is returned by CategoryOf for types outside every category.
const CategoryOther = "other"

// DefaultLayerColor is the neutral gray used for unknown layers.
const DefaultLayerColor = "#6b7280"

// LayerInfo is the display metadata of one layer key.
type LayerInfo struct {
	Name  string `json:"name" yaml:"name"`
	Type  string `json:"type" yaml:"type"`
	Color string `json:"color" yaml:"color"`
}

// Priority orders layers for drawing and hit-testing. Lower values are
// drawn first; background structure sits under everything else.
func (l LayerInfo) Priority() int {
	switch l.Type {
	case TypeStructure:
		return 0
	case TypeDoor:
		return 1
	case TypeTechnical, TypeUtility, TypeStorage:
		return 2
	case TypeDefault:
		return 5
	}
	return 10
}

// Category groups semantic types for filtering.
type Category struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Color string   `json:"color"`
	Types []string `json:"types"`
}

// LayerCatalog maps layer keys to display metadata. It is immutable after
// construction and safe for concurrent use.
type LayerCatalog struct {
	layers       map[string]LayerInfo
	categories   []Category
	typeCategory map[string]string
}

// NewLayerCatalog builds a catalog from a layer table and category list.
func NewLayerCatalog(layers map[string]LayerInfo, categories []Category) *LayerCatalog {
	c := &LayerCatalog{
		layers:       make(map[string]LayerInfo, len(layers)),
		categories:   append([]Category(nil), categories...),
		typeCategory: make(map[string]string),
	}
	for k, v := range layers {
		c.layers[k] = v
	}
	for _, cat := range c.categories {
		for _, t := range cat.Types {
			if _, dup := c.typeCategory[t]; !dup {
				c.typeCategory[t] = cat.ID
			}
		}
	}
	return c
}

// Lookup returns the metadata for key. Unknown keys resolve to a default
// entry named after the key itself.
func (c *LayerCatalog) Lookup(key string) LayerInfo {
	if info, ok := c.layers[key]; ok {
		return info
	}
	return LayerInfo{Name: key, Type: TypeDefault, Color: DefaultLayerColor}
}

// Has reports whether key is registered.
func (c *LayerCatalog) Has(key string) bool {
	_, ok := c.layers[key]
	return ok
}

// CategoryOf returns the category id containing the semantic type, or
// CategoryOther.
func (c *LayerCatalog) CategoryOf(semanticType string) string {
	if id, ok := c.typeCategory[semanticType]; ok {
		return id
	}
	return CategoryOther
}

// Category returns the category with the given id.
func (c *LayerCatalog) Category(id string) (Category, bool) {
	for _, cat := range c.categories {
		if cat.ID == id {
			return cat, true
		}
	}
	return Category{}, false
}

// Categories returns the category list in display order.
func (c *LayerCatalog) Categories() []Category {
	out := make([]Category, len(c.categories))
	copy(out, c.categories)
	return out
}

// Keys returns all registered layer keys, sorted.
func (c *LayerCatalog) Keys() []string {
	keys := make([]string, 0, len(c.layers))
	for k := range c.layers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WithOverrides returns a copy of the catalog with extra or replacement
// entries.
func (c *LayerCatalog) WithOverrides(overrides map[string]LayerInfo) *LayerCatalog {
	merged := make(map[string]LayerInfo, len(c.layers)+len(overrides))
	for k, v := range c.layers {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return NewLayerCatalog(merged, c.categories)
}

// DefaultCategories returns the terminal's category groups.
func DefaultCategories() []Category {
	return []Category{
		{ID: "check-in", Name: "Check-in & Thủ tục", Color: "#10b981", Types: []string{TypeCheckIn, TypeTicket, TypeInformation}},
		{ID: "dining", Name: "Ăn uống", Color: "#f97316", Types: []string{TypeRestaurant}},
		{ID: "services", Name: "Dịch vụ", Color: "#14b8a6", Types: []string{TypeService, TypeBaggage}},
		{ID: "facilities", Name: "Tiện ích", Color: "#ec4899", Types: []string{TypeToilet, TypeWaiting}},
		{ID: "offices", Name: "Văn phòng", Color: "#3b82f6", Types: []string{TypeOffice}},
		{ID: "emergency", Name: "Cấp cứu", Color: "#ef4444", Types: []string{TypeEmergency}},
		{ID: "technical", Name: "Khu kỹ thuật", Color: "#6b7280", Types: []string{TypeTechnical, TypeUtility, TypeStorage}},
	}
}

// DefaultLayerCatalog returns the catalog for the terminal floor plan.
func DefaultLayerCatalog() *LayerCatalog {
	layers := map[string]LayerInfo{
		"OFFICE 1": {Name: "Văn phòng 1", Type: TypeOffice, Color: "#3b82f6"},
		"OFFICE 2": {Name: "Văn phòng 2", Type: TypeOffice, Color: "#3b82f6"},

		"KHUNHANHANHLY":        {Name: "Khu nhận hành lý", Type: TypeBaggage, Color: "#0ea5e9"},
		"QV VNA DG31":          {Name: "Quầy Bamboo Airways DG31", Type: TypeCheckIn, Color: "#10b981"},
		"QV VNA DG34":          {Name: "Quầy Bamboo Airways DG34", Type: TypeCheckIn, Color: "#10b981"},
		"JESTAR PACIFIC":       {Name: "Jetstar Pacific", Type: TypeCheckIn, Color: "#10b981"},
		"KLTHUTUC":             {Name: "Khu làm thủ tục", Type: TypeCheckIn, Color: "#10b981"},
		"KHULAMTTHANGKHONG":    {Name: "Khu làm thủ tục hàng không", Type: TypeCheckIn, Color: "#10b981"},
		"NHAHANG1":             {Name: "Nhà hàng 1", Type: TypeRestaurant, Color: "#f97316"},
		"CAPCUU":               {Name: "Cấp cứu", Type: TypeEmergency, Color: "#ef4444"},
		"BUUDIENDG36":          {Name: "Bưu điện DG36", Type: TypeService, Color: "#14b8a6"},
		"QUAYVE":               {Name: "Quầy vé", Type: TypeTicket, Color: "#f59e0b"},
		"QUAYTHUTUCHANGKHONG2": {Name: "Quầy thủ tục hàng không 2", Type: TypeCheckIn, Color: "#10b981"},
		"QUAYTHUTUCHANGKHONG3": {Name: "Quầy thủ tục hàng không 3", Type: TypeCheckIn, Color: "#10b981"},
		"PHONGDOIKHACHDI":      {Name: "Phòng đợi khách đi", Type: TypeWaiting, Color: "#a855f7"},
		"KVLTTHANGKHONG":       {Name: "Khu vực làm thủ tục hàng không", Type: TypeCheckIn, Color: "#10b981"},
		"KHUKT":                {Name: "Khu kỹ thuật", Type: TypeTechnical, Color: "#6b7280"},
		"KHO1":                 {Name: "Kho 1", Type: TypeStorage, Color: "#78716c"},
		"TRAMBOMPCCC":          {Name: "Trạm bơm PCCC", Type: TypeUtility, Color: "#78716c"},
		"PMCHILLER":            {Name: "Phòng máy chiller", Type: TypeUtility, Color: "#78716c"},
		"TRAMBIENAP":           {Name: "Trạm biến áp", Type: TypeUtility, Color: "#78716c"},
		"L&FDG24":              {Name: "Đồ thất lạc DG24", Type: TypeService, Color: "#14b8a6"},
		"L&FDG23":              {Name: "Đồ thất lạc DG23", Type: TypeService, Color: "#14b8a6"},
		"DRAWDEMO":             {Name: "Cấu trúc", Type: TypeStructure, Color: "#e5e7eb"},
		"DEMODOOR":             {Name: "Cửa", Type: TypeDoor, Color: "#d1d5db"},
	}

	numbered := []struct {
		prefix string
		name   string
		info   LayerInfo
		nums   []int
	}{
		{"OFFICE", "Văn phòng", LayerInfo{Type: TypeOffice, Color: "#3b82f6"}, []int{3, 4, 5, 6, 7, 8, 9, 10, 11}},
		{"WC", "Nhà vệ sinh", LayerInfo{Type: TypeToilet, Color: "#ec4899"}, []int{1, 2, 3, 4, 5, 7, 9}},
		{"TC", "Quầy thông tin", LayerInfo{Type: TypeInformation, Color: "#06b6d4"}, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}},
		{"QNHANHLY", "Quầy nhận hành lý", LayerInfo{Type: TypeBaggage, Color: "#0ea5e9"}, []int{1, 2, 3, 4, 5, 6}},
		{"KLTHUTUC", "Khu làm thủ tục", LayerInfo{Type: TypeCheckIn, Color: "#10b981"}, []int{2, 3, 4}},
		{"KT", "Khu kỹ thuật", LayerInfo{Type: TypeTechnical, Color: "#6b7280"}, []int{1, 2, 3, 4, 5}},
	}
	for _, group := range numbered {
		for _, n := range group.nums {
			info := group.info
			info.Name = fmt.Sprintf("%s %d", group.name, n)
			layers[fmt.Sprintf("%s%d", group.prefix, n)] = info
		}
	}

	return NewLayerCatalog(layers, DefaultCategories())
}
