package cursor

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Trewaters/soar-sub011/internal/model"
)

func TestEncodeDecode(t *testing.T) {
	p := model.Position{CreatedAt: time.Date(2024, 1, 4, 9, 30, 0, 123456000, time.UTC), ID: "a::b"}
	tok := Encode(p)

	got, err := Decode(tok)
	require.NoError(t, err)
	assert.True(t, got.CreatedAt.Equal(p.CreatedAt))
	assert.Equal(t, "a::b", got.ID)
}

func TestDecode_Malformed(t *testing.T) {
	enc := func(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }
	cases := map[string]string{
		"not base64":    "%%%",
		"no separator":  enc("12345"),
		"bad timestamp": enc("yesterday::a1"),
		"empty id":      enc("12345::"),
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(tok)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}
