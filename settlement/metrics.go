package settlement

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/alphabill-org/claim-settlement/types"
)

const (
	metricsNamespace = "claim_settlement"

	strategyLabel = "strategy"
	outcomeLabel  = "outcome"
	opLabel       = "op"

	outcomeOK = "ok"
)

type metrics struct {
	redemptions *prometheus.CounterVec // strategy + outcome
	adminOps    *prometheus.CounterVec // op + outcome
}

// newMetrics registers the collectors with registerer, nil registerer means the metrics are not exported.
func newMetrics(registerer prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		redemptions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "redemptions_total",
				Help:      "claim redemption attempts by strategy and outcome",
			},
			[]string{strategyLabel, outcomeLabel},
		),
		adminOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "admin_ops_total",
				Help:      "administrative operations by operation and outcome",
			},
			[]string{opLabel, outcomeLabel},
		),
	}
	if registerer == nil {
		return m, nil
	}
	err := errors.Join(
		registerer.Register(m.redemptions),
		registerer.Register(m.adminOps),
	)
	return m, err
}

func (m *metrics) redemption(strategy types.Strategy, err error) {
	m.redemptions.WithLabelValues(string(strategy), outcome(err)).Inc()
}

func (m *metrics) adminOp(op string, err error) {
	m.adminOps.WithLabelValues(op, outcome(err)).Inc()
}

var outcomes = []struct {
	err   error
	label string
}{
	{types.ErrUnauthorized, "unauthorized"},
	{types.ErrMalformedClaim, "malformed_claim"},
	{types.ErrInvalidModule, "invalid_module"},
	{types.ErrInvalidSignature, "invalid_signature"},
	{types.ErrNotBackedByEnoughSigners, "not_backed_by_enough_signers"},
	{types.ErrInvalidProof, "invalid_proof"},
	{types.ErrAlreadyClaimed, "already_claimed"},
	{types.ErrInvalidState, "invalid_state"},
	{types.ErrOwnerLookupFailed, "owner_lookup_failed"},
	{types.ErrInvalidCaller, "invalid_caller"},
	{types.ErrActionFailed, "action_failed"},
	{types.ErrReentrantCall, "reentrant_call"},
	{types.ErrAlreadyValidator, "already_validator"},
	{types.ErrNotValidator, "not_validator"},
}

// outcome returns the metric label of the error class.
func outcome(err error) string {
	if err == nil {
		return outcomeOK
	}
	for _, o := range outcomes {
		if errors.Is(err, o.err) {
			return o.label
		}
	}
	return "error"
}
