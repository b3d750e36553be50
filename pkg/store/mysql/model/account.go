package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	appmodel "redwarm/internal/model"
)

// Account MySQL model for accounts table
type Account struct {
	ID                int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID         string          `gorm:"column:account_id;type:varchar(255);not null;uniqueIndex:idx_account_id_unique" json:"account_id"`
	Username          string          `gorm:"column:username;type:varchar(255);not null" json:"username"`
	IsWarmupAccount   bool            `gorm:"column:is_warmup_account;not null;default:0;index:idx_warmup_status,priority:1" json:"is_warmup_account"`
	WarmupStatus      string          `gorm:"column:warmup_status;type:varchar(50);not null;default:'NOT_STARTED';index:idx_warmup_status,priority:2" json:"warmup_status"`
	WarmupStartedAt   *time.Time      `gorm:"column:warmup_started_at;type:datetime(3);index:idx_warmup_started_at" json:"warmup_started_at"`
	WarmupCompletedAt *time.Time      `gorm:"column:warmup_completed_at;type:datetime(3)" json:"warmup_completed_at"`
	WarmupFailReason  string          `gorm:"column:warmup_fail_reason;type:varchar(50)" json:"warmup_fail_reason"`
	WarmupProgress    WarmupProgress  `gorm:"column:warmup_progress;type:json" json:"warmup_progress"`
	Karma             int             `gorm:"column:karma;not null;default:0" json:"karma"`
	Connected         bool            `gorm:"column:connected;not null;default:1" json:"connected"`
	CreatedAt         time.Time       `gorm:"column:created_at;type:datetime(3);not null;default:CURRENT_TIMESTAMP(3)" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;type:datetime(3);not null;default:CURRENT_TIMESTAMP(3)" json:"updated_at"`
}

// TableName specifies the table name for Account
func (Account) TableName() string {
	return "accounts"
}

// WarmupProgress typed per-day action log stored as a JSON column.
// Validated on scan so malformed rows surface as errors instead of
// silently losing history.
type WarmupProgress appmodel.WarmupProgress

// Value implements driver.Valuer interface for WarmupProgress
func (p WarmupProgress) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner interface for WarmupProgress
func (p *WarmupProgress) Scan(value interface{}) error {
	if value == nil {
		*p = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("failed to scan WarmupProgress: unsupported type %T", value)
	}

	var records []appmodel.DayRecord
	if err := json.Unmarshal(bytes, &records); err != nil {
		return fmt.Errorf("failed to unmarshal WarmupProgress: %w", err)
	}

	*p = records
	return nil
}

// ToDomain converts the row to the application model
func (a *Account) ToDomain() *appmodel.Account {
	return &appmodel.Account{
		ID:                a.AccountID,
		Username:          a.Username,
		IsWarmupAccount:   a.IsWarmupAccount,
		WarmupStatus:      appmodel.WarmupStatus(a.WarmupStatus),
		WarmupStartedAt:   a.WarmupStartedAt,
		WarmupCompletedAt: a.WarmupCompletedAt,
		WarmupFailReason:  appmodel.FailReason(a.WarmupFailReason),
		WarmupProgress:    appmodel.WarmupProgress(a.WarmupProgress),
		Karma:             a.Karma,
		Connected:         a.Connected,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}
