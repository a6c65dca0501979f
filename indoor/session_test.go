package indoor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestSession(vp Viewport) (*Session, *manualScheduler) {
	sched := &manualScheduler{}
	opts := DefaultSessionOptions()
	opts.Scheduler = sched.Schedule
	return NewSession(DefaultLayerCatalog(), vp, opts), sched
}

func TestSession_LoadFitsOnce(t *testing.T) {
	vp := &recordingViewport{}
	s, sched := newTestSession(vp)

	ds := mustDataset(collection(scenarioFeature()))
	require.NoError(t, s.Load(ds))
	for i := 0; i < 10; i++ {
		s.Refresh()
	}
	sched.Run()
	for i := 0; i < 10; i++ {
		assert.False(t, s.Refresh())
	}
	sched.Run()

	fits := vp.Fits()
	require.Len(t, fits, 1)
	assert.Equal(t, FitCommand{
		Version:   ds.Version,
		SouthWest: LatLng{280, 350},
		NorthEast: LatLng{320, 450},
		Padding:   [2]float64{20, 20},
		MaxZoom:   1,
	}, fits[0])
	assert.Equal(t, Fitted, s.FitState())
}

func TestSession_ReloadRefits(t *testing.T) {
	vp := &recordingViewport{}
	s, sched := newTestSession(vp)

	first := mustDataset(collection(scenarioFeature()))
	second := mustDataset(collection(polygonFeature("KT1", rectRing(0, 0, 10000, 10000))))

	require.NoError(t, s.Load(first))
	require.NoError(t, s.Load(second))
	sched.Run()
	s.Refresh()
	sched.Run()

	fits := vp.Fits()
	require.Len(t, fits, 1, "the pending fit of the first load is dropped")
	assert.Equal(t, second.Version, fits[0].Version)

	third := mustDataset(collection(scenarioFeature()))
	require.NoError(t, s.Load(third))
	sched.Run()
	assert.Len(t, vp.Fits(), 2)
}

func TestSession_LoadWithoutBounds(t *testing.T) {
	vp := &recordingViewport{}
	s, sched := newTestSession(vp)

	require.NoError(t, s.Load(mustDataset(collection(pointFeature("TC1", 0, 0)))))
	assert.Equal(t, 0, sched.Run())
	assert.Empty(t, vp.Fits())
	assert.Equal(t, Unfitted, s.FitState())
}

func TestSession_NoDataset(t *testing.T) {
	s, _ := newTestSession(nil)

	assert.ErrorIs(t, s.Load(nil), ErrNoDataset)
	_, err := s.Dataset()
	assert.ErrorIs(t, err, ErrNoDataset)
	_, err = s.Click(0)
	assert.ErrorIs(t, err, ErrNoDataset)
	_, err = s.Style(0)
	assert.ErrorIs(t, err, ErrNoDataset)
	assert.ErrorIs(t, s.PointerEnter(0), ErrNoDataset)
	assert.ErrorIs(t, s.Focus("WC1"), ErrNoDataset)
	assert.False(t, s.Refresh())
}

func TestSession_Hover(t *testing.T) {
	s, _ := newTestSession(&recordingViewport{})
	require.NoError(t, s.Load(mustDataset(collection(scenarioFeature()))))

	base, err := s.Style(0)
	require.NoError(t, err)
	assert.Equal(t, 0.7, base.FillOpacity)

	require.NoError(t, s.PointerEnter(0))
	hovered, err := s.Style(0)
	require.NoError(t, err)
	assert.Equal(t, 0.9, hovered.FillOpacity)
	assert.Equal(t, 3.0, hovered.StrokeWeight)

	require.NoError(t, s.PointerExit(0))
	after, err := s.Style(0)
	require.NoError(t, err)
	assert.Equal(t, base, after)

	assert.ErrorIs(t, s.PointerEnter(42), ErrFeatureNotFound)
}

func TestSession_FilterAffectsStyle(t *testing.T) {
	s, _ := newTestSession(&recordingViewport{})
	require.NoError(t, s.Load(mustDataset(collection(scenarioFeature()))))

	s.SetFilter(FilterState{SelectedCategory: "dining"})
	assert.Equal(t, "dining", s.Filter().SelectedCategory)
	p, err := s.Style(0)
	require.NoError(t, err)
	assert.Equal(t, 0.1, p.FillOpacity)

	ds, _ := s.Dataset()
	explicit := s.StyleWith(ds.Entries[0], FilterState{})
	assert.Equal(t, 0.7, explicit.FillOpacity)
}

func TestSession_Click(t *testing.T) {
	s, _ := newTestSession(&recordingViewport{})
	require.NoError(t, s.Load(mustDataset(collection(scenarioFeature()))))

	info, err := s.Click(0)
	require.NoError(t, err)
	assert.Equal(t, "WC1", info.Layer)
	assert.Equal(t, "Nhà vệ sinh 1", info.Name)
	assert.Equal(t, TypeToilet, info.Type)
	assert.Equal(t, "facilities", info.Category)
	assert.InDelta(t, 4000.0, info.Area, 1e-9)
	assert.InDelta(t, 300.0, info.Center[0], 1e-9)
	assert.InDelta(t, 400.0, info.Center[1], 1e-9)
	assert.InDeltaSlice(t, []float64{280000, 350000}, info.SourceSouthWest[:], 1e-6)
	assert.InDeltaSlice(t, []float64{320000, 450000}, info.SourceNorthEast[:], 1e-6)

	_, err = s.Click(3)
	assert.ErrorIs(t, err, ErrFeatureNotFound)
}

func TestSession_Focus(t *testing.T) {
	vp := &mockViewport{}
	vp.On("FitBounds", FitCommand{
		SouthWest: LatLng{280, 350},
		NorthEast: LatLng{320, 450},
		Padding:   [2]float64{50, 50},
	}).Return(nil).Twice()
	s, _ := newTestSession(vp)
	require.NoError(t, s.Load(mustDataset(collection(scenarioFeature()))))

	require.NoError(t, s.Focus("WC1"))
	assert.Equal(t, "WC1", s.Filter().HighlightedLayer)

	// focus is not guarded by the one-shot fit
	require.NoError(t, s.Focus("WC1"))
	vp.AssertExpectations(t)

	assert.ErrorIs(t, s.Focus("NOPE"), ErrFeatureNotFound)
	assert.Equal(t, "WC1", s.Filter().HighlightedLayer)

	s.ClearFocus()
	assert.Empty(t, s.Filter().HighlightedLayer)
}

func TestSession_FocusSinkError(t *testing.T) {
	vp := &mockViewport{}
	vp.On("FitBounds", mock.Anything).Return(errors.New("boom"))
	s, _ := newTestSession(vp)
	require.NoError(t, s.Load(mustDataset(collection(scenarioFeature()))))

	err := s.Focus("WC1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "focus WC1")
}

func TestSession_Locate(t *testing.T) {
	vp := &mockViewport{}
	vp.On("SetView", ViewCommand{Center: LatLng{280, 350}, Zoom: 3}).Return(nil).Once()
	s, _ := newTestSession(vp)

	_, ok := s.UserPosition()
	assert.False(t, ok)

	pos, err := QRLocation("TSN_GATE_A1")
	require.NoError(t, err)
	require.NoError(t, s.Locate(pos))

	got, ok := s.UserPosition()
	require.True(t, ok)
	assert.Equal(t, pos, got)
	vp.AssertExpectations(t)
}

func TestMultiViewport(t *testing.T) {
	a := &recordingViewport{}
	b := &recordingViewport{err: errors.New("offline")}
	m := MultiViewport{a, b}

	err := m.FitBounds(FitCommand{Version: "v"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "offline")
	assert.Len(t, a.Fits(), 1)
	assert.Len(t, b.Fits(), 1)

	assert.NoError(t, MultiViewport{a}.SetView(ViewCommand{Zoom: 2}))
	assert.Len(t, a.Views(), 1)
	assert.NoError(t, MultiViewport{}.FitBounds(FitCommand{}))
}

func TestSession_AddViewport(t *testing.T) {
	s, sched := newTestSession(nil)
	late := &recordingViewport{}
	s.AddViewport(late)
	s.AddViewport(nil)

	require.NoError(t, s.Load(mustDataset(collection(scenarioFeature()))))
	sched.Run()
	require.Len(t, late.Fits(), 1)

	pos, err := QRLocation("TSN_INFO")
	require.NoError(t, err)
	require.NoError(t, s.Locate(pos))
	assert.Len(t, late.Views(), 1)
}
