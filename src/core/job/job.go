package job

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state of a job
type Status string

const (
	StatusAwaitingPayment Status = "awaiting_payment"
	StatusAwaitingInput   Status = "awaiting_input"
	StatusRunning         Status = "running"
	StatusCompleted       Status = "completed"
	StatusFailed          Status = "failed"
)

// Job is one unit of billable work tracked through the MIP-003 lifecycle.
// Values are snapshots: every state change produces a new Job that replaces
// the stored one, existing copies are never mutated.
//
// The five payment binding fields serialize with camelCase names on the wire
// as MIP-003 requires; everything else stays snake_case.
type Job struct {
	JobID                string    `json:"job_id"`
	Status               Status    `json:"status"`
	InputHash            string    `json:"input_hash"`
	BlockchainIdentifier string    `json:"blockchainIdentifier"`
	PayByTime            int64     `json:"payByTime"`
	SellerVKey           string    `json:"sellerVKey"`
	SubmitResultTime     int64     `json:"submitResultTime"`
	UnlockTime           int64     `json:"unlockTime"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
	Result               *string   `json:"result"`
	Error                *string   `json:"error"`
}

// UnmarshalJSON accepts the binding fields under either their camelCase
// wire names or their snake_case internal names. Emission always uses the
// camelCase names from the struct tags.
func (j *Job) UnmarshalJSON(data []byte) error {
	type jobAlias Job
	aux := struct {
		*jobAlias
		BlockchainIdentifierSnake *string `json:"blockchain_identifier"`
		PayByTimeSnake            *int64  `json:"pay_by_time"`
		SellerVKeySnake           *string `json:"seller_vkey"`
		SubmitResultTimeSnake     *int64  `json:"submit_result_time"`
		UnlockTimeSnake           *int64  `json:"unlock_time"`
	}{jobAlias: (*jobAlias)(j)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if aux.BlockchainIdentifierSnake != nil {
		j.BlockchainIdentifier = *aux.BlockchainIdentifierSnake
	}
	if aux.PayByTimeSnake != nil {
		j.PayByTime = *aux.PayByTimeSnake
	}
	if aux.SellerVKeySnake != nil {
		j.SellerVKey = *aux.SellerVKeySnake
	}
	if aux.SubmitResultTimeSnake != nil {
		j.SubmitResultTime = *aux.SubmitResultTimeSnake
	}
	if aux.UnlockTimeSnake != nil {
		j.UnlockTime = *aux.UnlockTimeSnake
	}
	return nil
}

// legalTransitions maps each status to the statuses it may move to.
// Terminal states have empty sets. There are no self-loops.
var legalTransitions = map[Status][]Status{
	StatusAwaitingPayment: {StatusRunning},
	StatusAwaitingInput:   {StatusRunning},
	StatusRunning:         {StatusCompleted, StatusFailed, StatusAwaitingInput},
	StatusCompleted:       {},
	StatusFailed:          {},
}

// ValidateTransition reports whether moving from current to target is legal.
// It is the single authority on transition legality; every mutator must call
// it before writing a new status.
func ValidateTransition(current, target Status) error {
	for _, allowed := range legalTransitions[current] {
		if allowed == target {
			return nil
		}
	}
	return &InvalidTransitionError{From: current, To: target}
}
