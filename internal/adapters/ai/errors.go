package ai

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"

	"github.com/openai/openai-go/v3"
	"google.golang.org/genai"

	"tradecouncil/pkg/errors"
)

// classify maps a provider failure to an inference error kind
func classify(provider ProviderName, model string, err error) *errors.InferenceError {
	var inferErr *errors.InferenceError
	if stderrors.As(err, &inferErr) {
		return inferErr
	}

	return errors.NewInferenceError(kindOf(err), provider.String(), model, err)
}

func kindOf(err error) errors.InferenceKind {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.InferenceTimeout
	}
	if stderrors.Is(err, errors.ErrRateLimitExceeded) {
		return errors.InferenceRateLimited
	}

	if code, ok := statusCode(err); ok {
		switch {
		case code == http.StatusTooManyRequests:
			return errors.InferenceRateLimited
		case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
			return errors.InferenceTimeout
		case code >= 500:
			return errors.InferenceNetwork
		default:
			return errors.InferenceProvider
		}
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		if netErr.Timeout() {
			return errors.InferenceTimeout
		}
		return errors.InferenceNetwork
	}

	if stderrors.Is(err, context.Canceled) {
		return errors.InferenceNetwork
	}

	return errors.InferenceProvider
}

func statusCode(err error) (int, bool) {
	var oaErr *openai.Error
	if stderrors.As(err, &oaErr) {
		return oaErr.StatusCode, true
	}

	var gErr genai.APIError
	if stderrors.As(err, &gErr) {
		return gErr.Code, true
	}
	var gErrPtr *genai.APIError
	if stderrors.As(err, &gErrPtr) {
		return gErrPtr.Code, true
	}

	return 0, false
}
