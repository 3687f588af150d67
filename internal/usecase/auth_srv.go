package usecase

import (
	"context"
	"fmt"
	"html"
	"strings"

	"toolcart/internal/data/entity"
	"toolcart/internal/data/repository"
	"toolcart/internal/dto/request"
	"toolcart/internal/dto/response"
	"toolcart/pkg/apperror"
	"toolcart/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	otpMailSubject   = "Email Verification for Your ToolCart Account"
	resetMailSubject = "Reset Your ToolCart Password"
)

type AuthService interface {
	SendOTP(ctx context.Context, req *request.SendOTPRequest) (*response.SecretIssuedResponse, error)
	ResendOTP(ctx context.Context, req *request.SendOTPRequest) (*response.SecretIssuedResponse, error)
	VerifyOTP(ctx context.Context, req *request.VerifyOTPRequest) (*response.VerifiedResponse, error)
	ForgotPassword(ctx context.Context, req *request.ForgotPasswordRequest) (*response.SecretIssuedResponse, error)
	ResetPassword(ctx context.Context, req *request.ResetPasswordRequest) error
}

type authService struct {
	users    repository.UserRepository
	issuer   SecretIssuer
	verifier SecretVerifier
	config   *utils.Config
	log      *zap.Logger
}

func NewAuthService(
	users repository.UserRepository,
	issuer SecretIssuer,
	verifier SecretVerifier,
	config *utils.Config,
	log *zap.Logger,
) AuthService {
	return &authService{
		users:    users,
		issuer:   issuer,
		verifier: verifier,
		config:   config,
		log:      log.With(zap.String("service", "auth")),
	}
}

func (s *authService) SendOTP(ctx context.Context, req *request.SendOTPRequest) (*response.SecretIssuedResponse, error) {
	return s.issueOTP(ctx, req, "send")
}

// ResendOTP supersedes the previous code, the old one stops working.
func (s *authService) ResendOTP(ctx context.Context, req *request.SendOTPRequest) (*response.SecretIssuedResponse, error) {
	return s.issueOTP(ctx, req, "resend")
}

func (s *authService) issueOTP(ctx context.Context, req *request.SendOTPRequest, action string) (*response.SecretIssuedResponse, error) {
	// 1. Validasi
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs)
	}

	// 2. User harus ada dan belum verified
	user, err := s.findUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if user.IsVerified {
		return nil, apperror.Conflict("email already verified")
	}

	// 3. Issue + mail
	_, err = s.issuer.Issue(ctx, user.ID.String(), entity.PurposeEmailVerification, s.config.Secret.OTPTTL, Notice{
		To:      user.Email,
		Subject: otpMailSubject,
		Render:  func(otp string) string { return otpMailBody(user.Name, otp, s.config.Secret.OTPTTL.Minutes()) },
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Verification OTP issued", zap.String("user_id", user.ID.String()), zap.String("action", action))

	return &response.SecretIssuedResponse{
		UserID:    user.ID.String(),
		ExpiresIn: int64(s.config.Secret.OTPTTL.Seconds()),
	}, nil
}

func (s *authService) VerifyOTP(ctx context.Context, req *request.VerifyOTPRequest) (*response.VerifiedResponse, error) {
	// 1. Validasi
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs)
	}

	// 2. Find user
	user, err := s.findUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if user.IsVerified {
		return nil, apperror.Conflict("email already verified")
	}

	// 3. Verify and consume
	outcome, err := s.verifier.Verify(ctx, user.ID.String(), entity.PurposeEmailVerification, req.OTP)
	if err != nil {
		return nil, err
	}
	if outcome != OutcomeValid {
		s.log.Warn("OTP verification rejected", zap.String("user_id", user.ID.String()), zap.String("outcome", string(outcome)))
		return nil, outcome.Err(entity.PurposeEmailVerification)
	}

	// 4. Mark verified
	if err := s.users.MarkVerified(ctx, user.ID); err != nil {
		return nil, err
	}

	s.log.Info("Email verified", zap.String("user_id", user.ID.String()))

	return &response.VerifiedResponse{UserID: user.ID.String(), IsVerified: true}, nil
}

func (s *authService) ForgotPassword(ctx context.Context, req *request.ForgotPasswordRequest) (*response.SecretIssuedResponse, error) {
	// 1. Validasi
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs)
	}

	// 2. Find user by email
	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.NotFound("user not found")
	}

	// 3. Issue token + reset link
	ttl := s.config.Secret.ResetTTL
	_, err = s.issuer.Issue(ctx, user.ID.String(), entity.PurposePasswordReset, ttl, Notice{
		To:      user.Email,
		Subject: resetMailSubject,
		Render: func(token string) string {
			return resetMailBody(user.Name, s.resetLink(user.ID, token), ttl.Minutes())
		},
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Password reset issued", zap.String("user_id", user.ID.String()))

	return &response.SecretIssuedResponse{ExpiresIn: int64(ttl.Seconds())}, nil
}

func (s *authService) ResetPassword(ctx context.Context, req *request.ResetPasswordRequest) error {
	// 1. Validasi
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return validationError(errs)
	}

	// 2. Find user
	user, err := s.findUser(ctx, req.UserID)
	if err != nil {
		return err
	}

	// 3. Hash before the token is consumed
	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	// 4. Verify and consume token
	outcome, err := s.verifier.Verify(ctx, user.ID.String(), entity.PurposePasswordReset, req.Token)
	if err != nil {
		return err
	}
	if outcome != OutcomeValid {
		s.log.Warn("Password reset rejected", zap.String("user_id", user.ID.String()), zap.String("outcome", string(outcome)))
		return outcome.Err(entity.PurposePasswordReset)
	}

	// 5. Store new password hash
	if err := s.users.UpdatePassword(ctx, user.ID, hashed); err != nil {
		return err
	}

	s.log.Info("Password reset", zap.String("user_id", user.ID.String()))
	return nil
}

// ==================== HELPER METHODS ====================

func (s *authService) findUser(ctx context.Context, rawID string) (*entity.User, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, apperror.New(apperror.KindValidation, "invalid user id")
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.NotFound("user not found")
	}
	return user, nil
}

func (s *authService) resetLink(userID uuid.UUID, token string) string {
	return fmt.Sprintf("%s/reset-password/%s/%s", strings.TrimRight(s.config.App.Origin, "/"), userID.String(), token)
}

func validationError(errs map[string]string) error {
	return apperror.New(apperror.KindValidation, "validation failed: "+utils.FormatValidationErrors(errs))
}

func otpMailBody(name, otp string, minutes float64) string {
	return fmt.Sprintf(`<div style="font-family:sans-serif">
<p>Hi %s,</p>
<p>Your ToolCart verification code is:</p>
<h2 style="letter-spacing:4px">%s</h2>
<p>The code expires in %.0f minutes. If you did not create an account, ignore this email.</p>
</div>`, html.EscapeString(name), otp, minutes)
}

func resetMailBody(name, link string, minutes float64) string {
	return fmt.Sprintf(`<div style="font-family:sans-serif">
<p>Hi %s,</p>
<p>We received a request to reset your ToolCart password.</p>
<p><a href="%s">Reset password</a></p>
<p>The link expires in %.0f minutes. If you did not ask for this, ignore this email.</p>
</div>`, html.EscapeString(name), html.EscapeString(link), minutes)
}
