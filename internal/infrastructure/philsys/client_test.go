package philsys

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/egovauthenticator/api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractToken_Priority(t *testing.T) {
	tests := []struct {
		name   string
		header http.Header
		body   string
		want   string
	}{
		{
			name:   "set-cookie header wins over body",
			header: http.Header{"Set-Cookie": {"other=1; Path=/", "__verify-token=hdr123; Path=/; HttpOnly"}},
			body:   `{"cookie":"__verify-token=body456"}`,
			want:   "hdr123",
		},
		{
			name: "json cookie string",
			body: `{"cookie":"__verify-token=abc.def; Path=/"}`,
			want: "abc.def",
		},
		{
			name: "json setCookie field",
			body: `{"setCookie":"__verify-token=xyz"}`,
			want: "xyz",
		},
		{
			name: "json cookie array",
			body: `{"cookies":["a=b","__verify-token=arr1; Secure"]}`,
			want: "arr1",
		},
		{
			name: "string field beats array",
			body: `{"cookies":["__verify-token=arr"],"set-cookie":"__verify-token=str"}`,
			want: "str",
		},
		{
			name: "nested headers object",
			body: `{"headers":{"Set-Cookie":["__verify-token=nested"]}}`,
			want: "nested",
		},
		{
			name: "nothing recognisable",
			body: `{"token":"abc"}`,
			want: "",
		},
		{
			name: "not json",
			body: `<html>__verify-token=html</html>`,
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := tt.header
			if h == nil {
				h = http.Header{}
			}
			assert.Equal(t, tt.want, ExtractToken(h, []byte(tt.body)))
		})
	}
}

func TestFetchSessionToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		http.SetCookie(w, &http.Cookie{Name: CookieName, Value: "tok-1"})
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(Config{CookieURL: srv.URL})
	tok, err := c.FetchSessionToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)
}

func TestFetchSessionToken_MissingTokenIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(Config{CookieURL: srv.URL})
	_, err := c.FetchSessionToken(context.Background())
	assert.ErrorIs(t, err, domain.ErrVerifierUnavailable)
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestFetchSessionToken_Timeout(t *testing.T) {
	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-done:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(done)

	c := NewClient(Config{CookieURL: srv.URL, Timeout: 20 * time.Millisecond})
	_, err := c.FetchSessionToken(context.Background())
	assert.ErrorIs(t, err, domain.ErrVerifierUnavailable)
}

func TestVerify(t *testing.T) {
	var got Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(CookieName)
		require.NoError(t, err)
		assert.Equal(t, "tok", c.Value)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		if got.Subject.PCN == "0000000000000000" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"message":"record mismatch"}`))
			return
		}
		_, _ = w.Write([]byte(`{"verified":true}`))
	}))
	defer srv.Close()

	c := NewClient(Config{VerifyURL: srv.URL})
	p := Payload{DateIssued: "2024-01-01", Issuer: "PSA", Subject: Subject{PCN: "1234567890123456", FirstName: "JUAN"}}

	v, err := c.Verify(context.Background(), "tok", p)
	require.NoError(t, err)
	assert.True(t, v.Authentic)
	assert.JSONEq(t, `{"verified":true}`, string(v.Body))
	assert.Equal(t, "JUAN", got.Subject.FirstName)

	p.Subject.PCN = "0000000000000000"
	v, err = c.Verify(context.Background(), "tok", p)
	require.NoError(t, err)
	assert.False(t, v.Authentic)
	assert.Equal(t, http.StatusForbidden, v.Status)
	assert.Equal(t, "record mismatch", v.Message)
}

func TestVerify_NetworkErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(Config{VerifyURL: url})
	_, err := c.Verify(context.Background(), "tok", Payload{})
	assert.ErrorIs(t, err, domain.ErrVerifierUnavailable)
}

func TestPayload_WireFormat(t *testing.T) {
	b, err := json.Marshal(Payload{DateIssued: "2024-01-01", Issuer: "PSA", Subject: Subject{
		BloodType: "O+", DateOfBirth: "1990-01-01", PCN: "1", PlaceOfBirth: "MANILA",
		FirstName: "JUAN", LastName: "CRUZ", MiddleName: "S", Sex: "Male", Suffix: "JR",
	}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"2024-01-01","i":"PSA","sb":{"BF":"O+","DOB":"1990-01-01","PCN":"1","POB":"MANILA","fn":"JUAN","ln":"CRUZ","mn":"S","s":"Male","sf":"JR"}}`, string(b))
}
