package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Default values applied wherever a tenant has no explicit setting.
const (
	DefaultWarningMultiplier = 1.5
	DefaultLookbackDays      = 30
	DefaultSafetyDays        = 7
)

// DefaultExcludedTypes are transaction types ignored by consumption-rate
// forecasting unless the tenant overrides them.
func DefaultExcludedTypes() []TransactionType {
	return []TransactionType{TransactionTypeInitial, TransactionTypeAdjustment}
}

// TenantSettings holds per-tenant thresholds and alert configuration.
// Columns are typed and validated at write time; Merged() fills any unset
// value with the code-level default.
type TenantSettings struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID string    `json:"tenantId" gorm:"type:varchar(255);not null;uniqueIndex"`

	WarningMultiplier *float64 `json:"warningMultiplier,omitempty" gorm:"type:decimal(5,2)"`
	LookbackDays      *int     `json:"lookbackDays,omitempty"`
	SafetyDays        *int     `json:"safetyDays,omitempty"`

	// Comma-separated TransactionType values excluded from forecasting.
	ExcludedTypes *string `json:"excludedTypes,omitempty" gorm:"type:varchar(255)"`

	AlertsEnabled   bool    `json:"alertsEnabled" gorm:"default:true"`
	SlackWebhookURL *string `json:"slackWebhookUrl,omitempty" gorm:"type:varchar(512)"`
	AlertEmail      *string `json:"alertEmail,omitempty" gorm:"type:varchar(255)"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (TenantSettings) TableName() string {
	return "tenant_settings"
}

// ResolvedSettings is TenantSettings merged with defaults; every field is set.
type ResolvedSettings struct {
	WarningMultiplier float64
	LookbackDays      int
	SafetyDays        int
	ExcludedTypes     []TransactionType
	AlertsEnabled     bool
	SlackWebhookURL   string
	AlertEmail        string
}

// Merged returns the settings with defaults applied for unset fields.
// A nil receiver yields pure defaults.
func (s *TenantSettings) Merged() ResolvedSettings {
	out := ResolvedSettings{
		WarningMultiplier: DefaultWarningMultiplier,
		LookbackDays:      DefaultLookbackDays,
		SafetyDays:        DefaultSafetyDays,
		ExcludedTypes:     DefaultExcludedTypes(),
		AlertsEnabled:     true,
	}
	if s == nil {
		return out
	}
	if s.WarningMultiplier != nil && *s.WarningMultiplier > 0 {
		out.WarningMultiplier = *s.WarningMultiplier
	}
	if s.LookbackDays != nil && *s.LookbackDays > 0 {
		out.LookbackDays = *s.LookbackDays
	}
	if s.SafetyDays != nil && *s.SafetyDays >= 0 {
		out.SafetyDays = *s.SafetyDays
	}
	if s.ExcludedTypes != nil {
		if types := parseTypeList(*s.ExcludedTypes); types != nil {
			out.ExcludedTypes = types
		}
	}
	out.AlertsEnabled = s.AlertsEnabled
	if s.SlackWebhookURL != nil {
		out.SlackWebhookURL = *s.SlackWebhookURL
	}
	if s.AlertEmail != nil {
		out.AlertEmail = *s.AlertEmail
	}
	return out
}

// parseTypeList parses a comma-separated type list, dropping anything that
// is not a known transaction type.
func parseTypeList(raw string) []TransactionType {
	var types []TransactionType
	for _, part := range strings.Split(raw, ",") {
		if t := TransactionType(strings.TrimSpace(part)); ValidTransactionType(t) {
			types = append(types, t)
		}
	}
	return types
}

type UpdateTenantSettingsRequest struct {
	WarningMultiplier *float64 `json:"warningMultiplier,omitempty" binding:"omitempty,gt=0"`
	LookbackDays      *int     `json:"lookbackDays,omitempty" binding:"omitempty,gt=0"`
	SafetyDays        *int     `json:"safetyDays,omitempty" binding:"omitempty,gte=0"`
	ExcludedTypes     *string  `json:"excludedTypes,omitempty"`
	AlertsEnabled     *bool    `json:"alertsEnabled,omitempty"`
	SlackWebhookURL   *string  `json:"slackWebhookUrl,omitempty"`
	AlertEmail        *string  `json:"alertEmail,omitempty"`
}

type TenantSettingsResponse struct {
	Success bool            `json:"success"`
	Data    *TenantSettings `json:"data,omitempty"`
	Message *string         `json:"message,omitempty"`
}
