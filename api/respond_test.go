package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rpupo63/vizzy-backend/errs"
	"github.com/rs/zerolog"
)

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		check func(error) bool
	}{
		{"valid", `{"name":"Atrium"}`, func(err error) bool { return err == nil }},
		{"malformed", `{"name":`, errs.IsInvalidJSONError},
		{"oversized", `{"name":"` + strings.Repeat("x", maxJSONBodyBytes) + `"}`, errs.IsMaxBodySizeExceededError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/project", strings.NewReader(tt.body))
			var dst CreateProjectRequest
			err := decodeJSON(httptest.NewRecorder(), req, &dst)
			if !tt.check(err) {
				t.Errorf("decodeJSON err = %v", err)
			}
		})
	}
}

func TestOversizedJSONBodyIsRejected(t *testing.T) {
	api := newTestAPI(t, nil)
	body := `{"name":"` + strings.Repeat("x", maxJSONBodyBytes) + `"}`

	resp, data := api.do(http.MethodPost, "/project", body)
	expectStatus(t, resp, data, http.StatusRequestEntityTooLarge)
	if got := decode[ErrorResponse](t, data); got.Field != "body_size" {
		t.Errorf("error = %+v", got)
	}
}

func TestWriteErrorHidesUnexpectedErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	NewResponder(zerolog.Nop()).WriteError(rec, errors.New("pq: relation does not exist"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var got ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Error != "Internal Server Error" || got.Status != "error" {
		t.Errorf("response = %+v", got)
	}
	if !strings.Contains(got.Cause, "relation does not exist") {
		t.Errorf("cause = %q", got.Cause)
	}
}

func TestInternalErrorKind(t *testing.T) {
	err := errs.NewInternalErrorWithCause("Internal Server Error", errors.New("boom"))
	if !errs.IsInternal(err) || errs.IsBadRequest(err) {
		t.Errorf("kind checks failed for %v", err)
	}
}
