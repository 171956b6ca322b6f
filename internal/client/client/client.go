package client

import (
	"context"

	"github.com/dmitrijs2005/healthkeeper/internal/client/models"
)

type API interface {
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	RefreshToken(ctx context.Context, refresh string) (*RefreshResponse, error)
	CreateReport(ctx context.Context, payload []byte, idempotencyKey string) (*models.HealthReport, error)
	ListWorkerReports(ctx context.Context, userID int64) ([]models.HealthReport, error)
	HealthCheck(ctx context.Context) bool
}

// TokenStore is the credential storage used by the pipeline.
type TokenStore interface {
	AccessToken(ctx context.Context) (string, bool)
	RefreshToken(ctx context.Context) (string, bool)
	SetAccessToken(ctx context.Context, token string) error
	ClearAll(ctx context.Context)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User    models.UserProfile `json:"user"`
	Access  string             `json:"access"`
	Refresh string             `json:"refresh,omitempty"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

type RefreshResponse struct {
	Access string `json:"access"`
}
