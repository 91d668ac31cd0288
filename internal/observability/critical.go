package observability

import (
	"encoding/json"

	"github.com/yungbote/matside-backend/internal/platform/logger"
)

// Critical failure categories.
const (
	FailureWebhook = "webhook"
	FailureShopify = "shopify"
	FailurePayment = "payment"
)

// LogCriticalFailure records an external-service failure that needs an operator.
// The context map is serialised to JSON so it lands in a single log field.
func LogCriticalFailure(log *logger.Logger, m *Metrics, kind string, err error, context map[string]any) {
	m.trackCritical(kind)
	if log == nil {
		return
	}
	payload := "{}"
	if len(context) > 0 {
		if raw, mErr := json.Marshal(context); mErr == nil {
			payload = string(raw)
		}
	}
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	log.Error("CRITICAL FAILURE",
		"failure_type", kind,
		"error", errMsg,
		"failure_context", payload,
	)
}
