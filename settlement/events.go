package settlement

import (
	"go.uber.org/zap"
)

// Events are logged on info level with the event name as the message.
const (
	EventValidatorAdded   = "validator_added"
	EventValidatorRemoved = "validator_removed"
	EventRootSet          = "root_set"
	EventConfigurationSet = "configuration_set"
	EventClaimRedeemed    = "claim_redeemed"
	EventClaimRejected    = "claim_rejected"
)

func (m *Module) emit(event string, fields ...zap.Field) {
	m.log.Info(event, fields...)
}
