package middleware

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"
)

// TokenFunc returns the current access token, or "" when there is no session.
type TokenFunc func(ctx context.Context) (string, error)

// RefreshFunc refreshes the current session.
type RefreshFunc func(ctx context.Context) error

// BearerAuth sets the Authorization header from the current session.
// A failing token lookup is logged and the request proceeds unauthenticated.
func BearerAuth(token TokenFunc, logger logrus.FieldLogger) RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		if token == nil {
			logger.Warn("auth not configured, skipping auth interceptor")
			return nil
		}

		accessToken, err := token(ctx)
		if err != nil {
			logger.WithError(err).Error("auth interceptor error")
			return nil
		}
		if accessToken != "" {
			req.Header.Set("Authorization", "Bearer "+accessToken)
		}
		return nil
	}
}

// RefreshOnUnauthorized refreshes the session when a response is 401.
// It does not retry the request.
func RefreshOnUnauthorized(refresh RefreshFunc, logger logrus.FieldLogger) ResponseObserver {
	return func(ctx context.Context, resp *http.Response, req *Request) {
		if resp.StatusCode != http.StatusUnauthorized || refresh == nil {
			return
		}

		logger.WithField("url", req.URL).Warn("unauthorized, attempting token refresh")
		if err := refresh(ctx); err != nil {
			logger.WithError(err).Error("token refresh failed")
		}
	}
}

// LogResponses logs the status of every response at debug level.
func LogResponses(logger logrus.FieldLogger) ResponseObserver {
	return func(ctx context.Context, resp *http.Response, req *Request) {
		logger.WithFields(logrus.Fields{
			"method": req.Method,
			"url":    req.URL,
			"status": resp.StatusCode,
		}).Debug("response received")
	}
}
