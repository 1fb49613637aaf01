package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Trewaters/soar-sub011/internal/model"
)

// Well-known keys read at startup.
const (
	KeyUserState  = "soar:userState"
	KeyFlowSeries = "soar:flowSeries"
	KeySequences  = "soar:sequences"
	KeyAsanas     = "soar:asanas"
)

// Reader is the read half of Store.
type Reader interface {
	GetKV(key string) (json.RawMessage, error)
}

// Writer is the write half of Store.
type Writer interface {
	SetKV(key string, value json.RawMessage) error
}

// UserState is the signed-in user's locally persisted profile.
type UserState struct {
	UserID      string            `json:"userId"`
	DisplayName string            `json:"displayName,omitempty"`
	Email       string            `json:"email,omitempty"`
	Preferences map[string]string `json:"preferences,omitempty"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// AppState is what hydration recovers. A nil field was absent or unreadable.
type AppState struct {
	UserState  *UserState       `json:"userState,omitempty"`
	FlowSeries []model.Series   `json:"flowSeries,omitempty"`
	Sequences  []model.Sequence `json:"sequences,omitempty"`
	Asanas     []model.Asana    `json:"asanas,omitempty"`
}

// Hydrate reads every well-known key from r. A read that errors, panics or
// does not decode leaves only its own field empty, and Hydrate always
// returns. Reading stops early when ctx is done.
func Hydrate(ctx context.Context, r Reader, log zerolog.Logger) AppState {
	var st AppState
	reads := []struct {
		key  string
		dest any
	}{
		{KeyUserState, &st.UserState},
		{KeyFlowSeries, &st.FlowSeries},
		{KeySequences, &st.Sequences},
		{KeyAsanas, &st.Asanas},
	}
	loaded := 0
	for _, rd := range reads {
		if ctx.Err() != nil {
			log.Warn().Err(ctx.Err()).Msg("hydration interrupted")
			break
		}
		ok, err := readKey(r, rd.key, rd.dest)
		if err != nil {
			log.Warn().Err(err).Str("key", rd.key).Msg("hydration read failed")
			continue
		}
		if ok {
			loaded++
		}
	}
	log.Debug().Int("loaded", loaded).Int("keys", len(reads)).Msg("hydrated app state")
	return st
}

// readKey decodes key into dest. dest is only assigned on success.
func readKey(r Reader, key string, dest any) (ok bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			ok, err = false, fmt.Errorf("read %s panicked: %v", key, p)
		}
	}()
	raw, err := r.GetKV(key)
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}
	// decode into a fresh value so a partial decode never leaks into dest
	switch d := dest.(type) {
	case **UserState:
		var v UserState
		if err := json.Unmarshal(raw, &v); err != nil {
			return false, err
		}
		*d = &v
	case *[]model.Series:
		return decodeSlice(raw, d)
	case *[]model.Sequence:
		return decodeSlice(raw, d)
	case *[]model.Asana:
		return decodeSlice(raw, d)
	default:
		return false, fmt.Errorf("unsupported destination %T", dest)
	}
	return true, nil
}

func decodeSlice[T any](raw json.RawMessage, dest *[]T) (bool, error) {
	var v []T
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, err
	}
	*dest = v
	return true, nil
}

// SaveAppState writes the non-empty fields of st under the well-known keys.
func SaveAppState(w Writer, st AppState) error {
	var errs []error
	put := func(key string, v any) {
		raw, err := json.Marshal(v)
		if err == nil {
			err = w.SetKV(key, raw)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("save %s: %w", key, err))
		}
	}
	if st.UserState != nil {
		put(KeyUserState, st.UserState)
	}
	if st.FlowSeries != nil {
		put(KeyFlowSeries, st.FlowSeries)
	}
	if st.Sequences != nil {
		put(KeySequences, st.Sequences)
	}
	if st.Asanas != nil {
		put(KeyAsanas, st.Asanas)
	}
	return errors.Join(errs...)
}
