package demand

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coredemand "github.com/kristi80/Datakomm-prosjekt-2022/core/demand"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
)

func TestMQTTSource(t *testing.T) {
	src := NewMQTT(coredemand.DefaultMapping, 0)
	_, err := src.Sample()
	assert.ErrorIs(t, err, coredemand.ErrNoReading)

	src.UpdateRaw(4095)
	p, err := src.Sample()
	require.NoError(t, err)
	assert.Equal(t, model.Power(15000), p)
}

func TestMQTTSourceStale(t *testing.T) {
	now := time.Unix(0, 0)
	src := NewMQTT(coredemand.DefaultMapping, time.Second)
	src.now = func() time.Time { return now }
	src.UpdateRaw(0)
	_, err := src.Sample()
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	_, err = src.Sample()
	assert.True(t, errors.Is(err, ErrStale))
}
