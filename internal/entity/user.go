package entity

// User represents a CRM agent
type User struct {
	Id        int64  `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	TenantId  int64  `json:"tenant_id" gorm:"column:tenant_id;index"`
	Name      string `json:"name" gorm:"column:name"`
	Email     string `json:"email" gorm:"column:email;uniqueIndex"`
	Password  string `json:"-" gorm:"column:password"`
	CreatedAt int64  `json:"created_at" gorm:"column:created_at;autoCreateTime:milli"`
	UpdatedAt int64  `json:"updated_at" gorm:"column:updated_at;autoUpdateTime:milli"`
}

// TableName returns the table name for User
func (User) TableName() string {
	return "users"
}

// UserInfo represents public agent info (without password)
type UserInfo struct {
	Id       int64  `json:"id"`
	TenantId int64  `json:"tenant_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

// ToUserInfo converts User to UserInfo
func (u *User) ToUserInfo() *UserInfo {
	return &UserInfo{
		Id:       u.Id,
		TenantId: u.TenantId,
		Name:     u.Name,
		Email:    u.Email,
	}
}
