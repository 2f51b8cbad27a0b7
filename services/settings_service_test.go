package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/qr-table-order/models"
	"github.com/yeremiapane/qr-table-order/utils"
)

func TestSettingsLazyCreateAndPatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	settings, err := f.settings.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.GlobalSettingsKey, settings.Key)

	name := "  Himalayan Cafe "
	special := "Thukpa"
	updated, err := f.settings.Update(ctx, SettingsPatch{CafeName: &name, DailySpecial: &special})
	require.NoError(t, err)
	assert.Equal(t, "Himalayan Cafe", updated.CafeName)

	again, err := f.settings.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Himalayan Cafe", again.CafeName)
	assert.Equal(t, "Thukpa", again.DailySpecial)

	var count int64
	require.NoError(t, f.db.Model(&models.SiteSetting{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	negative := -1.0
	_, err = f.settings.Update(ctx, SettingsPatch{LoyaltyPointRate: &negative})
	appErr, ok := utils.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, utils.KindValidation, appErr.Kind)
}

func TestRewardsWithZeroRate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	awarded, err := f.rewards.Award(ctx, "D1", 100)
	require.NoError(t, err)
	assert.Zero(t, awarded)

	rate := 0.05
	_, err = f.settings.Update(ctx, SettingsPatch{LoyaltyPointRate: &rate})
	require.NoError(t, err)

	_, err = f.rewards.Award(ctx, "D1", 100)
	require.NoError(t, err)
	_, err = f.rewards.Award(ctx, "D1", 40)
	require.NoError(t, err)

	points, err := f.rewards.Points(ctx, "D1")
	require.NoError(t, err)
	assert.InDelta(t, 7.0, points, 0.001)
}
