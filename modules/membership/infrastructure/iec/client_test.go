package iec_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ntsowef/eff-membership-system-sub020/modules/membership/infrastructure/iec"
	"github.com/ntsowef/eff-membership-system-sub020/pkg/configuration"
)

func newClient(serverURL string) *iec.Client {
	return iec.NewClient(configuration.IECOptions{
		BaseURL: serverURL,
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
	})
}

func TestClient_RegisteredVoter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/voters/8001015009087", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"is_registered": true,
			"voter_status": "Registered",
			"ward_code": "79800001",
			"voting_district_code": "32840123",
			"voting_station_name": "Orlando Hall"
		}`))
	}))
	defer srv.Close()

	reg, err := newClient(srv.URL).CheckRegistration(context.Background(), "8001015009087")
	require.NoError(t, err)
	require.NotNil(t, reg)
	require.True(t, reg.IsRegistered)
	require.Equal(t, "Registered", reg.VoterStatus)
	require.NotNil(t, reg.VotingDistrictCode)
	require.Equal(t, "32840123", *reg.VotingDistrictCode)
}

func TestClient_UnknownVoterIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	reg, err := newClient(srv.URL).CheckRegistration(context.Background(), "9202204720083")
	require.NoError(t, err)
	require.Nil(t, reg)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"is_registered": false, "voter_status": "Not Registered"}`))
	}))
	defer srv.Close()

	reg, err := newClient(srv.URL).CheckRegistration(context.Background(), "8001015009087")
	require.NoError(t, err)
	require.NotNil(t, reg)
	require.False(t, reg.IsRegistered)
	require.Equal(t, int32(3), calls.Load())
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).CheckRegistration(context.Background(), "8001015009087")
	require.Error(t, err)
	require.Contains(t, err.Error(), "401")
	require.Equal(t, int32(1), calls.Load())
}

func TestClient_ContextCancellationStopsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newClient(srv.URL).CheckRegistration(ctx, "8001015009087")
	require.Error(t, err)
}
