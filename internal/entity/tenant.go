package entity

// Tenant represents an organization whose conversations are mirrored from
// the remote messaging platform
type Tenant struct {
	Id                int64  `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	Name              string `json:"name" gorm:"column:name"`
	PlatformAccountId int64  `json:"platform_account_id" gorm:"column:platform_account_id"`
	PlatformToken     string `json:"-" gorm:"column:platform_token"`
	WebhookTokenHash  string `json:"-" gorm:"column:webhook_token_hash;index"`
	CreatedAt         int64  `json:"created_at" gorm:"column:created_at;autoCreateTime:milli"`
	UpdatedAt         int64  `json:"updated_at" gorm:"column:updated_at;autoUpdateTime:milli"`
}

// TableName returns the table name for Tenant
func (Tenant) TableName() string {
	return "tenants"
}
