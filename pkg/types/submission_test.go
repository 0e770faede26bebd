package types

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmissionRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     SubmissionRequest
		field   string
		wantErr bool
	}{
		{name: "valid https", req: SubmissionRequest{URL: "https://example.com/contact", Message: "hello"}},
		{name: "valid http with port", req: SubmissionRequest{URL: "http://localhost:8080/form", Message: "hi"}},
		{name: "empty url", req: SubmissionRequest{URL: "", Message: "hi"}, field: "url", wantErr: true},
		{name: "relative url", req: SubmissionRequest{URL: "/contact", Message: "hi"}, field: "url", wantErr: true},
		{name: "ftp scheme", req: SubmissionRequest{URL: "ftp://example.com", Message: "hi"}, field: "url", wantErr: true},
		{name: "no host", req: SubmissionRequest{URL: "https://", Message: "hi"}, field: "url", wantErr: true},
		{name: "garbage", req: SubmissionRequest{URL: "ht tp://%zz", Message: "hi"}, field: "url", wantErr: true},
		{name: "empty message", req: SubmissionRequest{URL: "https://example.com", Message: ""}, field: "message", wantErr: true},
		{name: "blank message", req: SubmissionRequest{URL: "https://example.com", Message: "  \n\t"}, field: "message", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestSubmissionRequest_JSONOverrides(t *testing.T) {
	var req SubmissionRequest
	err := json.Unmarshal([]byte(`{"url":"https://example.com","message":"m","email":"a@b.c"}`), &req)
	require.NoError(t, err)

	assert.False(t, req.UseComplexModel)
	require.NotNil(t, req.Email)
	assert.Equal(t, "a@b.c", *req.Email)
	assert.Nil(t, req.Phone)
}

func TestSubmissionOutcome_JSONShape(t *testing.T) {
	out := SubmissionOutcome{Status: StatusTimeout, URL: "https://example.com", Message: "Request timed out"}
	data, err := json.Marshal(out)
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "timeout", m["status"])
	assert.Contains(t, m, "tokens_used")
	assert.Nil(t, m["tokens_used"])
	assert.Nil(t, m["screenshot_path"])
	assert.Equal(t, false, m["captcha_detected"])
}

func TestStatusValid(t *testing.T) {
	for _, s := range []SubmissionStatus{StatusSuccess, StatusFailed, StatusCaptchaDetected, StatusTimeout, StatusError} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, SubmissionStatus("pending").Valid())
}

func TestStringOr(t *testing.T) {
	empty := ""
	blank := "  "
	value := "override"

	assert.Equal(t, "default", StringOr(nil, "default"))
	assert.Equal(t, "default", StringOr(&empty, "default"))
	assert.Equal(t, "default", StringOr(&blank, "default"))
	assert.Equal(t, "override", StringOr(&value, "default"))
}
