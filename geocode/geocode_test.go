package geocode

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const testKeyEnv = "ZONINGQA_TEST_GEOSUPPORT_KEY"

func TestLookup(t *testing.T) {
	assert := assert.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("secret", r.Header.Get("x-api-key"))
		assert.Equal("120 Broadway, Manhattan", r.URL.Query().Get("address"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"zoningDistrict": "C5-5", "overlay": " ", "boro": "Manhattan", "bbl": 1000477501}`))
	}))
	defer srv.Close()

	t.Setenv(testKeyEnv, "secret")

	client, err := NewClient(Config{BaseURL: srv.URL, APIKeyEnv: testKeyEnv})
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	attrs, err := client.Lookup(context.Background(), "120 Broadway, Manhattan")
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	zoning := attrs.Zoning()
	assert.Equal("C5-5", zoning.District)
	assert.Empty(zoning.Overlay)
	assert.Equal("Manhattan", zoning.Borough)
	assert.False(zoning.Empty())
}

func TestLookupNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	t.Setenv(testKeyEnv, "secret")

	client, err := NewClient(Config{BaseURL: srv.URL, APIKeyEnv: testKeyEnv})
	assert.NoError(t, err)

	_, err = client.Lookup(context.Background(), "1 Centre St")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestLookupTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	t.Setenv(testKeyEnv, "secret")

	client, err := NewClient(Config{
		BaseURL:   srv.URL,
		APIKeyEnv: testKeyEnv,
		Timeout:   50 * time.Millisecond,
	})
	assert.NoError(t, err)

	_, err = client.Lookup(context.Background(), "1 Centre St")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestLookupMissingCredential(t *testing.T) {
	t.Setenv(testKeyEnv, "")

	client, err := NewClient(Config{BaseURL: "http://127.0.0.1:1", APIKeyEnv: testKeyEnv})
	assert.NoError(t, err)

	_, err = client.Lookup(context.Background(), "1 Centre St")
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestAttributesFirst(t *testing.T) {
	assert := assert.New(t)

	var attrs Attributes
	err := json.Unmarshal([]byte(`{"zone_district": 7, "zoning_district": null, "borough": ["x"], "boro": "Bronx"}`), &attrs)
	assert.NoError(err)

	assert.Equal("7", attrs.First(DistrictKeys...))
	assert.Equal("Bronx", attrs.First(BoroughKeys...))
	assert.Empty(attrs.First(OverlayKeys...))
	assert.True(Attributes{}.Zoning().Empty())
}
