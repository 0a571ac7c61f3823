package entity

// Stage is a local pipeline stage, pushed one-directionally to the remote
// platform as a label
type Stage struct {
	Id        int64  `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	TenantId  int64  `json:"tenant_id" gorm:"column:tenant_id;uniqueIndex:uk_tenant_slug"`
	Name      string `json:"name" gorm:"column:name"`
	Slug      string `json:"slug" gorm:"column:slug;uniqueIndex:uk_tenant_slug"`
	Color     string `json:"color" gorm:"column:color"`
	Position  int    `json:"position" gorm:"column:position"`
	CreatedAt int64  `json:"created_at" gorm:"column:created_at;autoCreateTime:milli"`
	UpdatedAt int64  `json:"updated_at" gorm:"column:updated_at;autoUpdateTime:milli"`
}

// TableName returns the table name for Stage
func (Stage) TableName() string {
	return "stages"
}
