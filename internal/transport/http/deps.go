package http

import (
	"github.com/claimdesk/claims-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/claimdesk/claims-api/internal/infrastructure/jwt"
	s3infra "github.com/claimdesk/claims-api/internal/infrastructure/s3"
	"github.com/claimdesk/claims-api/internal/infrastructure/smtp"
	"github.com/claimdesk/claims-api/internal/infrastructure/sns"
	"github.com/claimdesk/claims-api/internal/pkg/ratelimit"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	ClaimRepo        *dynamo.ClaimRepo
	BusinessRepo     *dynamo.BusinessRepo
	CodeRepo         *dynamo.CodeRepo
	ProfileRepo      *dynamo.ProfileRepo
	AssignmentRepo   *dynamo.AssignmentRepo
	NotificationRepo *dynamo.NotificationRepo
	S3Store          *s3infra.Store
	Mailer           smtp.Mailer
	Publisher        sns.TopicPublisher // nil disables topic publishing
	JWTProvider      *jwtinfra.Provider
	Limiter          ratelimit.Limiter
}
