package demand

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
)

func TestMapRawMatchesPotentiometerRange(t *testing.T) {
	assert.Equal(t, int64(0), MapRaw(0, 0, 4095, 0, 15000))
	assert.Equal(t, int64(15000), MapRaw(4095, 0, 4095, 0, 15000))
	// integer division truncates toward zero
	assert.Equal(t, int64(7498), MapRaw(2047, 0, 4095, 0, 15000))
	assert.Equal(t, int64(3), MapRaw(5, 5, 5, 3, 9))
}

func TestMappingApply(t *testing.T) {
	assert.Equal(t, model.Power(15000), Mapping{}.Apply(4095))
	m := Mapping{InMin: 100, InMax: 200, OutMin: -50, OutMax: 50}
	assert.Equal(t, model.Power(0), m.Apply(110), "negative results clamp to zero")
	assert.Equal(t, model.Power(50), m.Apply(200))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, model.Power(0), Clamp(-3))
	assert.Equal(t, model.Power(3), Clamp(3))
}

func TestScriptWraps(t *testing.T) {
	s := NewScript(8000, 0)
	var got []model.Power
	for i := 0; i < 3; i++ {
		v, err := s.Sample()
		require.NoError(t, err)
		got = append(got, v)
	}
	assert.Equal(t, []model.Power{8000, 0, 8000}, got)

	_, err := NewScript().Sample()
	assert.True(t, errors.Is(err, ErrNoReading))
}

func TestLatest(t *testing.T) {
	l := NewLatest(DefaultMapping)
	_, err := l.Sample()
	assert.True(t, errors.Is(err, ErrNoReading))

	var sink RawSink = l
	sink.UpdateRaw(4095)
	v, err := l.Sample()
	require.NoError(t, err)
	assert.Equal(t, model.Power(15000), v)
}

func TestStatic(t *testing.T) {
	v, err := Static{Value: 42}.Sample()
	require.NoError(t, err)
	assert.Equal(t, model.Power(42), v)
}
