package entity

// ApiKey stores a hashed service credential with its scopes
type ApiKey struct {
	Id        int64  `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	TenantId  int64  `json:"tenant_id" gorm:"column:tenant_id;index"`
	KeyHash   string `json:"-" gorm:"column:key_hash;uniqueIndex"`
	Scopes    string `json:"scopes" gorm:"column:scopes"`
	ExpiresAt int64  `json:"expires_at" gorm:"column:expires_at"`
	CreatedAt int64  `json:"created_at" gorm:"column:created_at;autoCreateTime:milli"`
}

// TableName returns the table name for ApiKey
func (ApiKey) TableName() string {
	return "api_keys"
}
