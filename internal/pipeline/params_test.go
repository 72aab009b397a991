package pipeline_test

import (
	"testing"

	"github.com/couchcryptid/firms-fire-etl/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParamState_Normalizes(t *testing.T) {
	s, err := pipeline.NewParamState(pipeline.Params{
		Sources: []string{" MODIS_NRT", "VIIRS_SNPP_NRT", "MODIS_NRT"},
		Days:    0,
	})
	require.NoError(t, err)
	assert.Equal(t, pipeline.Params{Sources: []string{"MODIS_NRT", "VIIRS_SNPP_NRT"}, Days: 1}, s.Params())
}

func TestNewParamState_UnknownSource(t *testing.T) {
	_, err := pipeline.NewParamState(pipeline.Params{Sources: []string{"GOES_NRT"}})
	require.Error(t, err)
}

func TestParamState_ParamsIsCopy(t *testing.T) {
	s, err := pipeline.NewParamState(pipeline.Params{Sources: []string{"MODIS_NRT"}, Days: 3})
	require.NoError(t, err)

	p := s.Params()
	p.Sources[0] = "changed"
	assert.Equal(t, []string{"MODIS_NRT"}, s.Params().Sources)
}

func TestParamState_Update(t *testing.T) {
	s, err := pipeline.NewParamState(pipeline.Params{Sources: []string{"MODIS_NRT"}, Days: 3, Enabled: true})
	require.NoError(t, err)

	var changes []pipeline.ParamChange
	s.OnChange(func(c pipeline.ParamChange) { changes = append(changes, c) })

	days := 20
	enabled := false
	got, err := s.Update(pipeline.ParamUpdate{Days: &days, Enabled: &enabled})
	require.NoError(t, err)
	assert.Equal(t, pipeline.Params{Sources: []string{"MODIS_NRT"}, Days: 10, Enabled: false}, got)

	require.Len(t, changes, 1)
	assert.Equal(t, 3, changes[0].Old.Days)
	assert.Equal(t, 10, changes[0].New.Days)
	assert.True(t, changes[0].DaysSet)
	assert.True(t, changes[0].EnabledSet)
	assert.False(t, changes[0].SourcesSet)
}

func TestParamState_EmptySelectionAllowed(t *testing.T) {
	s, err := pipeline.NewParamState(pipeline.Params{Sources: []string{"MODIS_NRT"}, Days: 3})
	require.NoError(t, err)

	got, err := s.SetSources(nil)
	require.NoError(t, err)
	assert.Empty(t, got.Sources)
}

func TestParamState_InvalidUpdateChangesNothing(t *testing.T) {
	s, err := pipeline.NewParamState(pipeline.Params{Sources: []string{"MODIS_NRT"}, Days: 3})
	require.NoError(t, err)

	notified := false
	s.OnChange(func(pipeline.ParamChange) { notified = true })

	days := 8
	bad := []string{"MODIS_NRT", "bogus"}
	_, err = s.Update(pipeline.ParamUpdate{Sources: &bad, Days: &days})
	require.Error(t, err)
	assert.False(t, notified)
	assert.Equal(t, 3, s.Params().Days)
}

func TestParamState_SetDaysClamps(t *testing.T) {
	s, err := pipeline.NewParamState(pipeline.Params{Days: 3})
	require.NoError(t, err)

	assert.Equal(t, 1, s.SetDays(-4).Days)
	assert.Equal(t, 10, s.SetDays(11).Days)
	assert.Equal(t, 6, s.SetDays(6).Days)
}
