// Package cursor encodes library positions as opaque page tokens.
//
// A token is the base64url form of "micros::id", where micros is the
// creation time in Unix microseconds. Tokens carry a position, not an
// offset, so they keep pointing at the same place when newer items are
// inserted ahead of them.
package cursor

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Trewaters/soar-sub011/internal/model"
)

const sep = "::"

// ErrMalformed is returned for tokens that do not decode to a position.
var ErrMalformed = errors.New("malformed cursor")

// Encode returns the token for the position after p.
func Encode(p model.Position) string {
	raw := strconv.FormatInt(p.CreatedAt.UnixMicro(), 10) + sep + p.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// Decode parses a token produced by Encode.
func Decode(token string) (model.Position, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return model.Position{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	parts := strings.SplitN(string(raw), sep, 2)
	if len(parts) != 2 || parts[1] == "" {
		return model.Position{}, fmt.Errorf("%w: must be in format 'micros::id'", ErrMalformed)
	}
	micros, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return model.Position{}, fmt.Errorf("%w: invalid timestamp: %v", ErrMalformed, err)
	}
	return model.Position{CreatedAt: time.UnixMicro(micros).UTC(), ID: parts[1]}, nil
}
