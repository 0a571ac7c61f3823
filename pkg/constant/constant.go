package constant

// Conversation status values mirrored from the remote platform
const (
	ConvStatusOpen     = "open"
	ConvStatusResolved = "resolved"
	ConvStatusClosed   = "closed"
)

// Delta sources
const (
	DeltaSourceWebhook = "webhook"
	DeltaSourceSweep   = "sweep"
)

// Attachment fallback previews, used when a message carries media but no text
const (
	PreviewImage = "📷 Imagem"
	PreviewAudio = "🎵 Áudio"
	PreviewVideo = "🎥 Vídeo"
	PreviewFile  = "📄 Arquivo"
)

// MaxPreviewLen is the maximum rune length of a stored message preview.
// Longer previews are cut and suffixed with PreviewEllipsis.
const (
	MaxPreviewLen   = 100
	PreviewEllipsis = "..."
)

// Agent availability values pushed to the remote platform
const (
	AvailabilityOnline  = "online"
	AvailabilityOffline = "offline"
)

// API key scopes
const (
	ScopeSync  = "sync"
	ScopeAdmin = "admin"
)

// Redis key patterns (without prefix, use the getters to build full keys)
const (
	redisKeyToken        = "token:%d"        // token:{user_id}
	redisKeySweepLock    = "sweep:lock:%d"   // sweep:lock:{tenant_id}
	redisKeyAgentMapping = "mapping:%d:%d"   // mapping:{tenant_id}:{remote_agent_id}
	redisKeyRateLimit    = "ratelimit:%s:%d" // ratelimit:{key}:{window}
	redisKeyFeedOnline   = "feed:online:%d"  // feed:online:{tenant_id}
)

// redisKeyPrefix is the global prefix for all Redis keys
var redisKeyPrefix = "chatbridge:"

// InitRedisKeyPrefix initializes the Redis key prefix from config
func InitRedisKeyPrefix(prefix string) {
	if prefix != "" {
		redisKeyPrefix = prefix
	}
}

// GetRedisKeyPrefix returns the current Redis key prefix
func GetRedisKeyPrefix() string {
	return redisKeyPrefix
}

// Redis key getters with prefix
func RedisKeyToken() string        { return redisKeyPrefix + redisKeyToken }
func RedisKeySweepLock() string    { return redisKeyPrefix + redisKeySweepLock }
func RedisKeyAgentMapping() string { return redisKeyPrefix + redisKeyAgentMapping }
func RedisKeyRateLimit() string    { return redisKeyPrefix + redisKeyRateLimit }
func RedisKeyFeedOnline() string   { return redisKeyPrefix + redisKeyFeedOnline }
