package generation

import "strings"

// User-facing failure messages. Classification is best-effort substring
// matching on the provider's error text; anything unmatched gets the
// generic message.
const (
	msgBillingExhausted = "Image generation is temporarily unavailable: the provider account has reached its billing limit. Please try again later."
	msgQuotaExceeded    = "The generation quota has been exhausted for now. Please try again later."
	msgProviderAuth     = "The image provider rejected the request. Please contact support if this persists."
	msgContentPolicy    = "The prompt was declined by the provider's content policy. Please adjust your prompt and try again."
	msgRateLimited      = "The image provider is busy right now. Please try again in a moment."
	msgGeneric          = "Unable to generate icons. Please try again."
)

// isBillingHardLimit reports whether an image call failed because the
// provider account itself is out of funds. This class is unrecoverable
// within a request, so the variant loop stops as soon as it appears.
func isBillingHardLimit(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "billing hard limit") || strings.Contains(msg, "billing_hard_limit") ||
		(strings.Contains(msg, "billing") && strings.Contains(msg, "limit"))
}

// classifyFailure maps a provider error to the user-facing message for a
// failed run.
func classifyFailure(err error) string {
	if err == nil {
		return msgGeneric
	}
	msg := strings.ToLower(err.Error())
	switch {
	case isBillingHardLimit(err):
		return msgBillingExhausted
	case strings.Contains(msg, "quota") || strings.Contains(msg, "resource_exhausted") || strings.Contains(msg, "resource exhausted"):
		return msgQuotaExceeded
	case strings.Contains(msg, "api key") || strings.Contains(msg, "unauthorized") || strings.Contains(msg, "unauthenticated") || strings.Contains(msg, "permission"):
		return msgProviderAuth
	case strings.Contains(msg, "safety") || strings.Contains(msg, "content policy") || strings.Contains(msg, "blocked"):
		return msgContentPolicy
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "rate_limit") || strings.Contains(msg, "429") || strings.Contains(msg, "too many requests"):
		return msgRateLimited
	default:
		return msgGeneric
	}
}
