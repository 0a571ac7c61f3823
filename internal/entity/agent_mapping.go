package entity

// AgentMapping links a local CRM agent to its identity in the remote
// platform. Created during agent provisioning and immutable afterwards;
// the sync engine only reads it. A missing mapping means "unassigned",
// never an error.
type AgentMapping struct {
	Id            int64 `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	TenantId      int64 `json:"tenant_id" gorm:"column:tenant_id;uniqueIndex:uk_tenant_remote_agent"`
	LocalUserId   int64 `json:"local_user_id" gorm:"column:local_user_id"`
	RemoteAgentId int64 `json:"remote_agent_id" gorm:"column:remote_agent_id;uniqueIndex:uk_tenant_remote_agent"`
	CreatedAt     int64 `json:"created_at" gorm:"column:created_at;autoCreateTime:milli"`
}

// TableName returns the table name for AgentMapping
func (AgentMapping) TableName() string {
	return "agent_mappings"
}
