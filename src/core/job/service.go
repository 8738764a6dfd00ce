package job

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// PaymentRequest is what the gateway sends to the payment provider when
// registering a new on-chain payment.
type PaymentRequest struct {
	AgentIdentifier         string `json:"agentIdentifier"`
	Network                 string `json:"network"`
	IdentifierFromPurchaser string `json:"identifierFromPurchaser"`
	InputHash               string `json:"inputHash"`
}

// PaymentDetails are the blockchain binding fields issued by the payment
// provider. They are immutable facts once attached to a job.
type PaymentDetails struct {
	BlockchainIdentifier string `json:"blockchainIdentifier"`
	PayByTime            int64  `json:"payByTime"`
	SellerVKey           string `json:"sellerVKey"`
	SubmitResultTime     int64  `json:"submitResultTime"`
	UnlockTime           int64  `json:"unlockTime"`
}

// PaymentGateway registers payment requests with the external payment
// service. Implemented by the masumi HTTP client and by test doubles.
type PaymentGateway interface {
	CreatePaymentRequest(ctx context.Context, req PaymentRequest) (*PaymentDetails, error)
}

// Service orchestrates job creation and state advancement on top of a
// Repository. It exists as a seam: retry policy or side-effect hooks can be
// added here without touching the repository.
type Service struct {
	repo     Repository
	payments PaymentGateway
	agentID  string
	network  string
}

func NewService(repo Repository, payments PaymentGateway, agentID, network string) *Service {
	return &Service{
		repo:     repo,
		payments: payments,
		agentID:  agentID,
		network:  network,
	}
}

// CreateJob registers a payment request for the given input hash and stores
// a new job bound to the returned blockchain fields. If the payment call
// fails no job record is left behind.
func (s *Service) CreateJob(ctx context.Context, inputHash string) (Job, error) {
	details, err := s.payments.CreatePaymentRequest(ctx, PaymentRequest{
		AgentIdentifier:         s.agentID,
		Network:                 s.network,
		IdentifierFromPurchaser: newPurchaserIdentifier(),
		InputHash:               inputHash,
	})
	if err != nil {
		return Job{}, fmt.Errorf("failed to create payment request: %w", err)
	}

	return s.repo.Create(ctx, CreateParams{
		InputHash:            inputHash,
		BlockchainIdentifier: details.BlockchainIdentifier,
		PayByTime:            details.PayByTime,
		SellerVKey:           details.SellerVKey,
		SubmitResultTime:     details.SubmitResultTime,
		UnlockTime:           details.UnlockTime,
	})
}

// AdvanceState moves a job to the target status. Validation and atomicity
// live in the repository; this is a thin delegation.
func (s *Service) AdvanceState(ctx context.Context, jobID string, target Status, result, jobErr *string) (Job, error) {
	return s.repo.UpdateStatus(ctx, jobID, target, result, jobErr)
}

// newPurchaserIdentifier generates the 26-character hex correlation token
// the payment service expects on the buyer side.
func newPurchaserIdentifier() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return hex[:26]
}
