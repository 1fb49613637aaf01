package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	errs "github.com/Trewaters/soar-sub011/client/internal/errors"
	"github.com/Trewaters/soar-sub011/client/internal/types"
)

// HTTPClient interface for dependency injection
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// maxErrorBody bounds how much of a failed response is kept for diagnostics.
const maxErrorBody = 4 << 10

// do sends req and decodes a 200 JSON body into out. Non-200 responses and
// transport failures come back as *errs.ClassifiedError.
func do(hc HTTPClient, req *http.Request, op string, out any) error {
	resp, err := hc.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return errs.NewNetworkError(op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		ce := errs.NewHTTPError(resp.StatusCode, string(body), op)
		var eb types.ErrorBody
		if json.Unmarshal(body, &eb) == nil && eb.Message != "" {
			ce.Underlying = fmt.Errorf("%s failed: HTTP %d: %s", op, resp.StatusCode, eb.Message)
			ce.Field = eb.Field
		}
		return ce
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
