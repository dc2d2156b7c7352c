package gateway

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"

	pkgerrors "github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// maxErrorBody caps how much of a 401/403 or refresh body is inspected.
const maxErrorBody = 1 << 20

// cancelOnClose releases the attempt context once the caller is done with the body.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// makeReplayable makes sure the request body can be sent twice.
func makeReplayable(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return nil
	}
	data, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return pkgerrors.Wrap(err, "buffer request body")
	}
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	req.Body, _ = req.GetBody()
	return nil
}

func setAuthorization(req *http.Request, accessToken string) {
	if accessToken == "" {
		req.Header.Del("Authorization")
		return
	}
	(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}).SetAuthHeader(req)
}

// attempt sends one copy of req bounded by the request timeout.
func (c *Client) attempt(req *http.Request, accessToken string) (*http.Response, error) {
	parent := req.Context()
	ctx, cancel := context.WithTimeout(parent, c.requestTimeout)

	out := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			cancel()
			return nil, pkgerrors.Wrap(err, "rewind request body")
		}
		out.Body = body
	}
	setAuthorization(out, accessToken)

	resp, err := c.httpClient.Do(out)
	if err != nil {
		cancel()
		if parent.Err() == nil && isTimeout(err) {
			return nil, timeoutError(err)
		}
		return nil, pkgerrors.Wrapf(err, "%s %s", req.Method, req.URL.Redacted())
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isAuthFailure(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

func drain(resp *http.Response) []byte {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return body
}
