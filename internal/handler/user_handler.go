package handler

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/jwt"
	"go.uber.org/zap"

	"github.com/lvyanru/chatctl/internal/config"
	"github.com/lvyanru/chatctl/internal/domain"
	"github.com/lvyanru/chatctl/internal/domain/entity"
	"github.com/lvyanru/chatctl/internal/handler/dto"
)

// IdentityKey is the request-context key and JWT claim holding the user id
const IdentityKey = "user_id"

// UserHandler handles auth and user requests
type UserHandler struct {
	usecase        domain.UserUsecase
	authMiddleware *jwt.HertzJWTMiddleware
	logger         *zap.Logger
}

// NewUserHandler creates the handler and its JWT middleware
func NewUserHandler(usecase domain.UserUsecase, cfg config.JWTConfig, logger *zap.Logger) (*UserHandler, error) {
	authMiddleware, err := jwt.New(&jwt.HertzJWTMiddleware{
		Realm:       "chatserver",
		Key:         []byte(cfg.Secret),
		Timeout:     cfg.Timeout,
		MaxRefresh:  cfg.Timeout,
		IdentityKey: IdentityKey,

		Authenticator: func(ctx context.Context, c *app.RequestContext) (interface{}, error) {
			var req dto.LoginRequest
			if err := c.BindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
				return nil, domain.NewValidationError("email and password are required")
			}

			user, err := usecase.Login(ctx, req.Email, req.Password)
			if err != nil {
				requestLogger(ctx, logger).Info("login failed", zap.String("email", req.Email), zap.Error(err))
				return nil, err
			}

			c.Set("user", user)
			return user, nil
		},

		PayloadFunc: func(data interface{}) jwt.MapClaims {
			if user, ok := data.(*entity.User); ok {
				return jwt.MapClaims{
					IdentityKey: user.ID,
					"username":  user.Username,
				}
			}
			return jwt.MapClaims{}
		},

		IdentityHandler: func(ctx context.Context, c *app.RequestContext) interface{} {
			claims := jwt.ExtractClaims(ctx, c)
			if userID, ok := claims[IdentityKey].(string); ok {
				c.Set(IdentityKey, userID)
				return userID
			}
			return nil
		},

		Authorizator: func(data interface{}, ctx context.Context, c *app.RequestContext) bool {
			id, ok := data.(string)
			return ok && id != ""
		},

		HTTPStatusMessageFunc: func(e error, ctx context.Context, c *app.RequestContext) string {
			var de *domain.DomainError
			if errors.As(e, &de) {
				return de.UserMessage()
			}
			return e.Error()
		},

		Unauthorized: func(ctx context.Context, c *app.RequestContext, code int, message string) {
			if code == consts.StatusUnauthorized && message == "" {
				message = "Not authenticated"
			}
			c.JSON(code, ErrorBody{Detail: message})
		},

		LoginResponse: func(ctx context.Context, c *app.RequestContext, code int, token string, expire time.Time) {
			user, ok := c.Get("user")
			if !ok {
				ErrorResponse(c, errors.New("login succeeded without a user"))
				return
			}
			c.JSON(consts.StatusOK, dto.AuthResponse{
				Token: token,
				User:  dto.ToUserResponse(user.(*entity.User)),
			})
		},

		TokenLookup:   "header: Authorization",
		TokenHeadName: "Bearer",
		TimeFunc:      time.Now,
	})
	if err != nil {
		return nil, err
	}

	return &UserHandler{
		usecase:        usecase,
		authMiddleware: authMiddleware,
		logger:         logger,
	}, nil
}

// AuthMiddleware protects routes with the bearer token
func (h *UserHandler) AuthMiddleware() app.HandlerFunc {
	return h.authMiddleware.MiddlewareFunc()
}

// Register creates the account and returns a token for it
// POST /api/auth/register
func (h *UserHandler) Register(ctx context.Context, c *app.RequestContext) {
	var req dto.RegisterRequest
	if err := c.BindJSON(&req); err != nil {
		BadRequestResponse(c, "invalid request body")
		return
	}

	user, err := h.usecase.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		requestLogger(ctx, h.logger).Info("register failed", zap.String("email", req.Email), zap.Error(err))
		ErrorResponse(c, err)
		return
	}

	token, _, err := h.authMiddleware.TokenGenerator(user)
	if err != nil {
		requestLogger(ctx, h.logger).Error("failed to sign token", zap.String("user_id", user.ID), zap.Error(err))
		ErrorResponse(c, err)
		return
	}

	c.JSON(consts.StatusOK, dto.AuthResponse{
		Token: token,
		User:  dto.ToUserResponse(user),
	})
}

// Login checks credentials through the JWT middleware
// POST /api/auth/login
func (h *UserHandler) Login(ctx context.Context, c *app.RequestContext) {
	h.authMiddleware.LoginHandler(ctx, c)
}

// GetUser returns the caller's own record
// GET /api/users/:id
func (h *UserHandler) GetUser(ctx context.Context, c *app.RequestContext) {
	requester, ok := requireUser(c)
	if !ok {
		return
	}

	user, err := h.usecase.GetUser(ctx, requester, c.Param("id"))
	if err != nil {
		requestLogger(ctx, h.logger).Debug("get user failed", zap.String("user_id", requester), zap.Error(err))
		ErrorResponse(c, err)
		return
	}

	c.JSON(consts.StatusOK, dto.ToUserResponse(user))
}

// UpdateProfile changes the caller's username
// POST /api/users/update-profile
func (h *UserHandler) UpdateProfile(ctx context.Context, c *app.RequestContext) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.BindJSON(&req); err != nil {
		BadRequestResponse(c, "invalid request body")
		return
	}

	user, err := h.usecase.UpdateProfile(ctx, userID, req.Username)
	if err != nil {
		requestLogger(ctx, h.logger).Info("profile update failed", zap.String("user_id", userID), zap.Error(err))
		ErrorResponse(c, err)
		return
	}

	c.JSON(consts.StatusOK, dto.ToUserResponse(user))
}
