package usecase

import (
	"toolcart/internal/data/repository"
	"toolcart/internal/gateway"
	"toolcart/pkg/mailer"
	"toolcart/pkg/metrics"
	"toolcart/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Auth       AuthService
	Payment    PaymentService
	Settlement SettlementService
	Webhook    WebhookService
}

func NewService(
	repo *repository.Repository,
	gw PaymentGateway,
	mail mailer.Mailer,
	config *utils.Config,
	m *metrics.Metrics,
	log *zap.Logger,
) *Service {
	proof := gateway.NewPaymentVerifier(config.Payment.KeySecret)
	settlement := NewSettlementService(repo.Order, proof, m, log)

	issuer := NewSecretIssuer(repo.Secret, mail, config.Secret, m, log)
	verifier := NewSecretVerifier(repo.Secret, nil, m, log)

	return &Service{
		Auth:       NewAuthService(repo.User, issuer, verifier, config, log),
		Payment:    NewPaymentService(repo.Order, gw, settlement, log),
		Settlement: settlement,
		Webhook: NewWebhookService(
			gateway.NewWebhookVerifier(config.Payment.WebhookSecret),
			proof,
			repo.Order,
			settlement,
			m,
			log,
		),
	}
}
