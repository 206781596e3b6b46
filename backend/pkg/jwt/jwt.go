package jwt

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"tachora/backend/config"
)

var (
	ErrTokenExpired = errors.New("token 已过期")
	ErrTokenInvalid = errors.New("token 无效")
)

// Claims 排班管理者的访问令牌声明
//
// StoreIDs 为可管理的门店；为空表示不限门店。
type Claims struct {
	UserID    string   `json:"user_id"`
	Role      string   `json:"role"`
	StoreIDs  []string `json:"store_ids,omitempty"`
	TokenType string   `json:"token_type"` // 仅接受 "access"
	jwtv5.RegisteredClaims
}

// CanManageStore 是否可操作该门店
func (c *Claims) CanManageStore(storeID string) bool {
	if len(c.StoreIDs) == 0 {
		return true
	}
	for _, id := range c.StoreIDs {
		if id == storeID {
			return true
		}
	}
	return false
}

// Manager JWT 管理器
//
// 生产环境令牌由外部身份服务签发，本服务只负责校验；
// GenerateAccessToken 供测试与本地联调使用。
type Manager struct {
	secret []byte
	issuer string
}

// NewManager 创建 JWT 管理器
func NewManager(cfg *config.AuthConfig) *Manager {
	return &Manager{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
	}
}

// GenerateAccessToken 生成 Access Token
func (m *Manager) GenerateAccessToken(userID, role string, storeIDs []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    userID,
		Role:      role,
		StoreIDs:  storeIDs,
		TokenType: "access",
		RegisteredClaims: jwtv5.RegisteredClaims{
			ID:        uuid.New().String(),
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(ttl)),
			Issuer:    m.issuer,
		},
	}

	token := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ParseToken 解析并验证 Token；配置了 issuer 时一并校验
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	opts := []jwtv5.ParserOption{jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()})}
	if m.issuer != "" {
		opts = append(opts, jwtv5.WithIssuer(m.issuer))
	}

	token, err := jwtv5.ParseWithClaims(tokenString, &Claims{}, func(t *jwtv5.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.UserID == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
