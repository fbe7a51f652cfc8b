package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"marketplace/internal/audit"
	"marketplace/internal/auth/jwt"
	"marketplace/internal/auth/models"
	sessionstore "marketplace/internal/auth/store/session"
	userstore "marketplace/internal/auth/store/user"
	"marketplace/internal/platform/metrics"
	dErrors "marketplace/pkg/domain-errors"
	"marketplace/pkg/requestcontext"
)

const sessionTTL = 24 * time.Hour

type ServiceSuite struct {
	suite.Suite

	users    *userstore.InMemoryStore
	sessions *sessionstore.InMemoryStore
	svc      *Service
	now      time.Time
	ctx      context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.users = userstore.New()
	s.sessions = sessionstore.New()
	s.svc = NewService(
		s.users,
		s.sessions,
		jwt.NewService("test-signing-key", "marketplace", sessionTTL),
		audit.NewPublisher(audit.NewInMemoryStore()),
		metrics.NewWith(prometheus.NewRegistry()),
		slog.New(slog.DiscardHandler),
	)
	s.now = time.Now().Truncate(time.Second)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *ServiceSuite) register(email string, role models.Role) *models.User {
	user, err := s.svc.Register(s.ctx, models.RegisterInput{
		Email:     email,
		FirstName: "Ada",
		LastName:  "Lovelace",
		Password:  "correct horse",
		Role:      role,
	})
	s.Require().NoError(err)
	return user
}

func (s *ServiceSuite) TestRegister() {
	user := s.register("ada@example.com", models.RoleBuyer)

	s.Equal("ada@example.com", user.Email)
	s.Equal(models.RoleBuyer, user.Role)
	s.Empty(user.PasswordHash, "responses must not carry the hash")

	stored, err := s.users.FindByEmail(s.ctx, "ada@example.com")
	s.Require().NoError(err)
	s.NotEmpty(stored.PasswordHash)
	s.NotEqual("correct horse", stored.PasswordHash)
}

func (s *ServiceSuite) TestRegisterDuplicateEmail() {
	s.register("ada@example.com", models.RoleBuyer)

	_, err := s.svc.Register(s.ctx, models.RegisterInput{
		Email:    "ada@example.com",
		Password: "another pass",
		Role:     models.RoleSeller,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestRegisterInvalidRole() {
	_, err := s.svc.Register(s.ctx, models.RegisterInput{
		Email:    "ada@example.com",
		Password: "correct horse",
		Role:     models.Role("ADMIN"),
	})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestLogin() {
	s.register("ada@example.com", models.RoleSeller)

	result, err := s.svc.Login(s.ctx, "ada@example.com", "correct horse")
	s.Require().NoError(err)
	s.NotEmpty(result.Token)
	s.Empty(result.User.PasswordHash)

	sess, err := s.sessions.FindByToken(s.ctx, result.Token)
	s.Require().NoError(err)
	s.Equal(result.User.ID, sess.UserID)
	s.Equal(models.RoleSeller, sess.Role)
	s.Equal(s.now.Add(sessionTTL), sess.ExpiresAt)
}

func (s *ServiceSuite) TestLoginWrongPassword() {
	s.register("ada@example.com", models.RoleBuyer)

	_, err := s.svc.Login(s.ctx, "ada@example.com", "wrong")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestLoginUnknownUser() {
	_, err := s.svc.Login(s.ctx, "nobody@example.com", "whatever")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestAuthenticateRotatesToken() {
	user := s.register("ada@example.com", models.RoleBuyer)
	result, err := s.svc.Login(s.ctx, "ada@example.com", "correct horse")
	s.Require().NoError(err)

	later := requestcontext.WithTime(s.ctx, s.now.Add(time.Hour))
	identity, err := s.svc.Authenticate(later, result.Token)
	s.Require().NoError(err)
	s.Equal(user.ID, identity.UserID)
	s.Equal(models.RoleBuyer, identity.Role)
	s.NotEqual(result.Token, identity.Token, "verification must rotate the token")
	s.Equal(s.now.Add(time.Hour+sessionTTL), identity.ExpiresAt, "expiry slides by the full TTL")

	// The old token is gone; the rotated one works.
	_, err = s.svc.Authenticate(later, result.Token)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	_, err = s.svc.Authenticate(later, identity.Token)
	s.NoError(err)
}

func (s *ServiceSuite) TestAuthenticateExpiredSession() {
	s.register("ada@example.com", models.RoleBuyer)
	result, err := s.svc.Login(s.ctx, "ada@example.com", "correct horse")
	s.Require().NoError(err)

	// One second past the 24h window.
	later := requestcontext.WithTime(s.ctx, s.now.Add(sessionTTL+time.Second))
	_, err = s.svc.Authenticate(later, result.Token)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	// The expired row was removed on sight.
	_, err = s.sessions.FindByToken(s.ctx, result.Token)
	s.Error(err)
}

func (s *ServiceSuite) TestRefreshRotatesToken() {
	user := s.register("ada@example.com", models.RoleBuyer)
	result, err := s.svc.Login(s.ctx, "ada@example.com", "correct horse")
	s.Require().NoError(err)

	later := requestcontext.WithTime(s.ctx, s.now.Add(time.Hour))
	identity, err := s.svc.Refresh(later, result.Token)
	s.Require().NoError(err)
	s.Equal(user.ID, identity.UserID)
	s.NotEqual(result.Token, identity.Token)
	s.Equal(s.now.Add(time.Hour+sessionTTL), identity.ExpiresAt)

	_, err = s.svc.Refresh(later, result.Token)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound), "old token is retired")
	_, err = s.svc.Authenticate(later, identity.Token)
	s.NoError(err)
}

func (s *ServiceSuite) TestRefreshUnknownSession() {
	_, err := s.svc.Refresh(s.ctx, "never-issued")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestRefreshExpiredSession() {
	s.register("ada@example.com", models.RoleBuyer)
	result, err := s.svc.Login(s.ctx, "ada@example.com", "correct horse")
	s.Require().NoError(err)

	later := requestcontext.WithTime(s.ctx, s.now.Add(sessionTTL+time.Second))
	_, err = s.svc.Refresh(later, result.Token)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.sessions.FindByToken(s.ctx, result.Token)
	s.Error(err, "expired row is removed on sight")
}

func (s *ServiceSuite) TestAuthenticateGarbageToken() {
	_, err := s.svc.Authenticate(s.ctx, "not-a-jwt")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = s.svc.Authenticate(s.ctx, "")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestAuthenticateForgedToken() {
	s.register("ada@example.com", models.RoleBuyer)

	forged, err := jwt.NewService("other-key", "marketplace", sessionTTL).
		Generate(s.register("eve@example.com", models.RoleBuyer).ID, models.RoleBuyer, s.now)
	s.Require().NoError(err)

	_, err = s.svc.Authenticate(s.ctx, forged)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestLogoutIsIdempotent() {
	s.register("ada@example.com", models.RoleBuyer)
	result, err := s.svc.Login(s.ctx, "ada@example.com", "correct horse")
	s.Require().NoError(err)

	s.NoError(s.svc.Logout(s.ctx, result.Token))
	s.NoError(s.svc.Logout(s.ctx, result.Token), "second logout is a no-op")

	_, err = s.svc.Authenticate(s.ctx, result.Token)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestChangePassword() {
	user := s.register("ada@example.com", models.RoleBuyer)

	err := s.svc.ChangePassword(s.ctx, user.ID, "correct horse", "battery staple")
	s.Require().NoError(err)

	_, err = s.svc.Login(s.ctx, "ada@example.com", "correct horse")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	_, err = s.svc.Login(s.ctx, "ada@example.com", "battery staple")
	s.NoError(err)
}

func (s *ServiceSuite) TestChangePasswordWrongCurrent() {
	user := s.register("ada@example.com", models.RoleBuyer)

	err := s.svc.ChangePassword(s.ctx, user.ID, "wrong", "battery staple")
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ServiceSuite) TestDeleteExpiredSessions() {
	s.register("ada@example.com", models.RoleBuyer)
	_, err := s.svc.Login(s.ctx, "ada@example.com", "correct horse")
	s.Require().NoError(err)

	later := requestcontext.WithTime(s.ctx, s.now.Add(sessionTTL+time.Minute))
	deleted, err := s.svc.DeleteExpiredSessions(later)
	s.Require().NoError(err)
	s.Equal(1, deleted)
}

func (s *ServiceSuite) TestAuthorize() {
	s.NoError(Authorize([]models.Role{models.RoleSeller}, models.RoleSeller))
	s.NoError(Authorize([]models.Role{models.RoleBuyer, models.RoleSeller}, models.RoleBuyer))

	err := Authorize([]models.Role{models.RoleSeller}, models.RoleBuyer)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}
