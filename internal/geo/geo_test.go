package geo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistance(t *testing.T) {
	t.Run("zero on identical points", func(t *testing.T) {
		p := Coordinate{Lat: 22.5726, Lng: 88.3639}
		assert.Equal(t, 0, Distance(p, p))
	})

	t.Run("symmetric", func(t *testing.T) {
		a := Coordinate{Lat: 22.5726, Lng: 88.3639}
		b := Coordinate{Lat: 28.6139, Lng: 77.2090}
		assert.Equal(t, Distance(a, b), Distance(b, a))
	})

	t.Run("one degree of latitude is about 111km", func(t *testing.T) {
		a := Coordinate{Lat: 22.0, Lng: 88.0}
		b := Coordinate{Lat: 23.0, Lng: 88.0}
		d := Distance(a, b)
		assert.InDelta(t, 111, d, 1)
	})

	t.Run("kolkata to delhi", func(t *testing.T) {
		kolkata := Coordinate{Lat: 22.5726, Lng: 88.3639}
		delhi := Coordinate{Lat: 28.6139, Lng: 77.2090}
		d := Distance(kolkata, delhi)
		assert.Greater(t, d, 1250)
		assert.Less(t, d, 1350)
	})
}

func TestParseCentroid(t *testing.T) {
	c, err := ParseCentroid("88.3639,22.5726")
	require.NoError(t, err)
	assert.Equal(t, 22.5726, c.Lat)
	assert.Equal(t, 88.3639, c.Lng)

	c, err = ParseCentroid(" 77.2090 , 28.6139 ")
	require.NoError(t, err)
	assert.Equal(t, 28.6139, c.Lat)

	_, err = ParseCentroid("not-a-centroid")
	assert.Error(t, err)

	_, err = ParseCentroid("88.36,abc")
	assert.Error(t, err)
}

func TestChainFallsBackToDefault(t *testing.T) {
	chain := NewDefaultChain(nil, "", "")
	point, err := chain.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultCoordinate, point)
}

func TestChainPrefersDevice(t *testing.T) {
	device := StaticLocator{Point: Coordinate{Lat: 19.0760, Lng: 72.8777}}
	chain := NewDefaultChain(device, "", "")
	point, err := chain.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, device.Point, point)
}

func TestChainWatchDeliversFix(t *testing.T) {
	chain := NewDefaultChain(nil, "", "")
	var got []Coordinate
	stop, err := chain.Watch(context.Background(), func(c Coordinate) { got = append(got, c) })
	require.NoError(t, err)
	defer stop()
	require.Len(t, got, 1)
	assert.Equal(t, DefaultCoordinate, got[0])
}
