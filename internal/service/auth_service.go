package service

import (
	"context"

	"github.com/mbeoliero/kit/log"
	"github.com/opencrmhq/chatbridge/internal/config"
	"github.com/opencrmhq/chatbridge/internal/entity"
	"github.com/opencrmhq/chatbridge/internal/platform"
	"github.com/opencrmhq/chatbridge/internal/repository"
	"github.com/opencrmhq/chatbridge/internal/sync"
	"github.com/opencrmhq/chatbridge/pkg/constant"
	"github.com/opencrmhq/chatbridge/pkg/errcode"
	"github.com/opencrmhq/chatbridge/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles agent authentication
type AuthService struct {
	userRepo    *repository.UserRepo
	tenantRepo  *repository.TenantRepo
	mappingRepo *repository.AgentMappingRepo
	cfg         *config.Config
	tokenStore  *jwt.TokenStore
	platformAPI *platform.Client
	tasks       *sync.TaskRunner
}

// NewAuthService creates a new AuthService
func NewAuthService(repos *repository.Repositories, cfg *config.Config, platformAPI *platform.Client, tasks *sync.TaskRunner) *AuthService {
	return &AuthService{
		userRepo:    repos.User,
		tenantRepo:  repos.Tenant,
		mappingRepo: repos.AgentMapping,
		cfg:         cfg,
		tokenStore:  jwt.NewTokenStore(repos.Redis, cfg.JWT.ExpireHours),
		platformAPI: platformAPI,
		tasks:       tasks,
	}
}

// RegisterRequest represents agent registration request
type RegisterRequest struct {
	TenantId int64  `json:"tenant_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents agent login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents agent login response
type LoginResponse struct {
	Token    string           `json:"token"`
	UserInfo *entity.UserInfo `json:"user_info"`
}

// Register registers a new agent
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*entity.UserInfo, error) {
	exists, err := s.userRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		log.CtxError(ctx, "check agent exists failed: %v", err)
		return nil, errcode.ErrInternalServer
	}
	if exists {
		return nil, errcode.ErrUserExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.CtxError(ctx, "hash password failed: %v", err)
		return nil, errcode.ErrInternalServer
	}

	user := &entity.User{
		TenantId: req.TenantId,
		Name:     req.Name,
		Email:    req.Email,
		Password: string(hashedPassword),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		log.CtxError(ctx, "create agent failed: %v", err)
		return nil, errcode.ErrInternalServer
	}

	log.CtxInfo(ctx, "agent registered: user_id=%d, tenant_id=%d", user.Id, user.TenantId)
	return user.ToUserInfo(), nil
}

// Login authenticates an agent and returns a token. A successful login
// dispatches a fire-and-forget availability sync towards the platform; it
// never blocks or fails the login itself.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		log.CtxError(ctx, "load agent failed: %v", err)
		return nil, errcode.ErrInternalServer
	}
	if user == nil {
		return nil, errcode.ErrUserNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, errcode.ErrPasswordWrong
	}

	token, err := jwt.GenerateToken(user.Id, user.TenantId, s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		log.CtxError(ctx, "generate token failed: %v", err)
		return nil, errcode.ErrInternalServer
	}

	if err := s.tokenStore.StoreToken(ctx, user.Id, token); err != nil {
		log.CtxError(ctx, "store token failed: %v", err)
		return nil, errcode.ErrInternalServer
	}

	s.dispatchAvailabilitySync(ctx, user, constant.AvailabilityOnline)

	log.CtxInfo(ctx, "agent logged in: user_id=%d, tenant_id=%d", user.Id, user.TenantId)
	return &LoginResponse{
		Token:    token,
		UserInfo: user.ToUserInfo(),
	}, nil
}

// Logout invalidates an agent's token
func (s *AuthService) Logout(ctx context.Context, userId int64, token string) error {
	if err := s.tokenStore.InvalidateToken(ctx, userId, token); err != nil {
		log.CtxError(ctx, "invalidate token failed: %v", err)
		return errcode.ErrInternalServer
	}

	if user, err := s.userRepo.GetById(ctx, userId); err == nil && user != nil {
		s.dispatchAvailabilitySync(ctx, user, constant.AvailabilityOffline)
	}

	log.CtxInfo(ctx, "agent logged out: user_id=%d", userId)
	return nil
}

// ValidateToken validates a token and returns claims
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*jwt.Claims, error) {
	claims, err := jwt.ParseToken(token, s.cfg.JWT.Secret)
	if err != nil {
		return nil, err
	}

	valid, err := s.tokenStore.IsTokenValid(ctx, claims.UserId, token)
	if err != nil {
		log.CtxWarn(ctx, "check token status failed: %v", err)
		// Fall back to JWT validation only if Redis check fails
		return claims, nil
	}
	if !valid {
		return nil, errcode.ErrTokenInvalid
	}

	return claims, nil
}

// dispatchAvailabilitySync pushes the agent's availability to the remote
// platform on a background worker. Requires an agent mapping; agents
// without one have no remote presence to update.
func (s *AuthService) dispatchAvailabilitySync(ctx context.Context, user *entity.User, availability string) {
	if s.tasks == nil || s.platformAPI == nil {
		return
	}

	userId := user.Id
	tenantId := user.TenantId
	s.tasks.Dispatch(ctx, sync.Task{
		Name: "availability-sync",
		Fn: func(taskCtx context.Context) error {
			mapping, err := s.mappingRepo.GetByLocalUser(taskCtx, tenantId, userId)
			if err != nil || mapping == nil {
				return err
			}
			tenant, err := s.tenantRepo.GetById(taskCtx, tenantId)
			if err != nil || tenant == nil {
				return err
			}
			cred := platform.Credential{AccountId: tenant.PlatformAccountId, Token: tenant.PlatformToken}
			return s.platformAPI.UpdateAgentAvailability(taskCtx, cred, mapping.RemoteAgentId, availability)
		},
	})
}
