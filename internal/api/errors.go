package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var ErrNotFound = errors.New("not found")
var ErrConflict = errors.New("conflict")
var ErrForbidden = errors.New("forbidden")
var ErrBadRequest = errors.New("bad request")

// StatusError is a non-2xx reply. Body is whatever the backend wrote, which
// is usually a message meant for the player.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if msg := e.Message(); msg != "" {
		return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.Code, msg)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Code, http.StatusText(e.Code))
}

func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Code == http.StatusNotFound
	case ErrConflict:
		return e.Code == http.StatusConflict
	case ErrForbidden:
		return e.Code == http.StatusForbidden
	case ErrBadRequest:
		return e.Code == http.StatusBadRequest
	}
	return false
}

// Message is the text to show the player. Plain bodies come back verbatim;
// JSON bodies yield their error or message field.
func (e *StatusError) Message() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return ""
	}
	if strings.HasPrefix(body, "{") {
		var m map[string]any
		if json.Unmarshal([]byte(body), &m) == nil {
			for _, k := range []string{"error", "message"} {
				if s, ok := m[k].(string); ok && s != "" {
					return s
				}
			}
		}
	}
	return body
}

// UserMessage pulls the player-facing text out of any client error.
func UserMessage(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		if msg := se.Message(); msg != "" {
			return msg
		}
	}
	return err.Error()
}
