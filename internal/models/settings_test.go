package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergedDefaultsOnNilReceiver(t *testing.T) {
	var settings *TenantSettings
	resolved := settings.Merged()

	assert.Equal(t, DefaultWarningMultiplier, resolved.WarningMultiplier)
	assert.Equal(t, DefaultLookbackDays, resolved.LookbackDays)
	assert.Equal(t, DefaultSafetyDays, resolved.SafetyDays)
	assert.Equal(t, DefaultExcludedTypes(), resolved.ExcludedTypes)
	assert.True(t, resolved.AlertsEnabled)
}

func TestMergedOverrides(t *testing.T) {
	multiplier := 2.0
	lookback := 14
	safety := 3
	excluded := "INITIAL, TRANSFER"
	webhook := "https://hooks.slack.com/services/T000/B000/XXX"

	settings := &TenantSettings{
		WarningMultiplier: &multiplier,
		LookbackDays:      &lookback,
		SafetyDays:        &safety,
		ExcludedTypes:     &excluded,
		AlertsEnabled:     false,
		SlackWebhookURL:   &webhook,
	}

	resolved := settings.Merged()
	assert.Equal(t, 2.0, resolved.WarningMultiplier)
	assert.Equal(t, 14, resolved.LookbackDays)
	assert.Equal(t, 3, resolved.SafetyDays)
	assert.Equal(t, []TransactionType{TransactionTypeInitial, TransactionTypeTransfer}, resolved.ExcludedTypes)
	assert.False(t, resolved.AlertsEnabled)
	assert.Equal(t, webhook, resolved.SlackWebhookURL)
}

func TestMergedIgnoresInvalidValues(t *testing.T) {
	multiplier := -1.0
	lookback := 0
	excluded := "BOGUS,NOT_A_TYPE"

	settings := &TenantSettings{
		WarningMultiplier: &multiplier,
		LookbackDays:      &lookback,
		ExcludedTypes:     &excluded,
		AlertsEnabled:     true,
	}

	resolved := settings.Merged()
	assert.Equal(t, DefaultWarningMultiplier, resolved.WarningMultiplier)
	assert.Equal(t, DefaultLookbackDays, resolved.LookbackDays)
	assert.Equal(t, DefaultExcludedTypes(), resolved.ExcludedTypes, "unparseable list falls back to defaults")
}

func TestParseTypeListMixedValidity(t *testing.T) {
	raw := "ADJUSTMENT, bogus, OUTBOUND"
	settings := &TenantSettings{ExcludedTypes: &raw, AlertsEnabled: true}
	resolved := settings.Merged()
	assert.Equal(t, []TransactionType{TransactionTypeAdjustment, TransactionTypeOutbound}, resolved.ExcludedTypes)
}
