package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/jrsteele09/mento-client/apimodel"
	"github.com/jrsteele09/mento-client/authevents"
	"github.com/jrsteele09/mento-client/credentials"
	internalerrors "github.com/jrsteele09/mento-client/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type refreshResult struct {
	accessToken string
	persisted   bool
}

func parseInactive(body []byte) bool {
	return apimodel.ParseErrorBody(body).IsAccountInactive()
}

// awaitRefresh returns the access token to replay with. When another caller has
// already rotated the token since sentToken was read, no refresh is made.
// Otherwise the caller joins the single in-flight refresh, starting it if needed.
func (c *Client) awaitRefresh(ctx context.Context, sentToken string) (string, error) {
	if current := c.creds.AccessToken(ctx); current != "" && current != sentToken {
		return current, nil
	}

	ch := c.flight.DoChan(refreshKey, func() (any, error) {
		return c.refresh(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		result := res.Val.(refreshResult)
		if !result.persisted {
			return result.accessToken, nil
		}
		stored, err := c.creds.LookupAccessToken(ctx)
		if err != nil {
			log.Err(err).Msg("Failed to re-read access token, using the refreshed one")
			return result.accessToken, nil
		}
		return stored, nil
	case <-ctx.Done():
		return "", errors.Wrap(ctx.Err(), "waiting for token refresh")
	}
}

func (c *Client) refresh(ctx context.Context) (refreshResult, error) {
	c.observer.RefreshStarted()
	result, err := c.exchangeRefreshToken(ctx)
	c.observer.RefreshFinished(err)
	// A missing refresh token ends the session before any network call.
	if reason, ended := ReasonOf(err); !ended || reason != authevents.ReasonNoRefreshToken {
		c.metrics.refresh(ctx, err)
	}
	return result, err
}

func (c *Client) exchangeRefreshToken(parent context.Context) (refreshResult, error) {
	refreshToken, err := c.creds.RefreshToken(parent)
	if err != nil {
		log.Err(err).Msg("Failed to read refresh token")
	}
	if refreshToken == "" {
		return refreshResult{}, c.forceLogout(parent, authevents.ReasonNoRefreshToken, err)
	}

	ctx, cancel := context.WithTimeout(parent, c.refreshTimeout)
	defer cancel()

	payload, err := json.Marshal(apimodel.RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return refreshResult{}, c.forceLogout(parent, authevents.ReasonRefreshFailed, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.refreshURL, bytes.NewReader(payload))
	if err != nil {
		return refreshResult{}, c.forceLogout(parent, authevents.ReasonRefreshFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	log.Debug().Str("url", req.URL.Redacted()).Msg("Refreshing access token")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return refreshResult{}, c.forceLogout(parent, authevents.ReasonRefreshFailed, c.refreshError(parent, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return refreshResult{}, c.forceLogout(parent, authevents.ReasonRefreshFailed, c.refreshError(parent, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if parseInactive(body) {
			return refreshResult{}, c.forceLogout(parent, authevents.ReasonInactive, nil)
		}
		cause := fmt.Errorf("%w: refresh returned status %d", internalerrors.ErrRequestFailed, resp.StatusCode)
		return refreshResult{}, c.forceLogout(parent, authevents.ReasonRefreshFailed, cause)
	}

	var env apimodel.Envelope[apimodel.RefreshData]
	if err := json.Unmarshal(body, &env); err != nil || env.Data == nil || env.Data.AccessToken == "" {
		cause := internalerrors.Wrapf(internalerrors.ErrInvalidResponse, "refresh response without access token")
		return refreshResult{}, c.forceLogout(parent, authevents.ReasonRefreshFailed, cause)
	}

	result := refreshResult{accessToken: env.Data.AccessToken, persisted: true}
	err = c.creds.RotateAccessToken(parent, refreshToken, env.Data.AccessToken)
	switch {
	case errors.Is(err, credentials.ErrSessionChanged):
		return c.sessionChanged(parent, err)
	case err != nil:
		log.Err(err).Msg("Failed to persist refreshed access token")
		result.persisted = false
	}
	log.Debug().Msg("Access token refreshed")
	return result, nil
}

// sessionChanged handles a refresh that finished after its session was cleared
// or replaced. A cleared session stays cleared and is reported as ended; the
// logout that cleared it has already been published. A new login is left in
// place and callers replay with its token.
func (c *Client) sessionChanged(ctx context.Context, cause error) (refreshResult, error) {
	current, err := c.creds.RefreshToken(ctx)
	if err == nil && current != "" {
		log.Debug().Msg("Session replaced during refresh, discarding refreshed token")
		return refreshResult{persisted: true}, nil
	}
	log.Debug().Msg("Session cleared during refresh, discarding refreshed token")
	return refreshResult{}, &SessionEndedError{Reason: authevents.ReasonUnspecified, Cause: cause}
}

func (c *Client) refreshError(parent context.Context, err error) error {
	if parent.Err() == nil && isTimeout(err) {
		return timeoutError(err)
	}
	return err
}
