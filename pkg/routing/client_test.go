package routing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceMatrix_SplitsBatches(t *testing.T) {
	var batchSizes []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req matrixRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		batchSizes = append(batchSizes, len(req.Destinations))

		resp := matrixResponse{}
		for range req.Destinations {
			resp.Elements = append(resp.Elements, matrixElement{
				Status: "OK", DurationMinutes: 12, FreeFlowMinutes: 10, DistanceKm: 8,
			})
		}
		json.NewEncoder(w).Encode(resp) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient("key", WithBaseURL(srv.URL), WithBatchSize(2), WithBatchDelay(0))
	dests := []Point{{Lat: 1}, {Lat: 2}, {Lat: 3}, {Lat: 4}, {Lat: 5}}
	elems, err := c.DistanceMatrix(context.Background(), Point{}, dests)
	require.NoError(t, err)
	require.Len(t, elems, 5)
	assert.Equal(t, []int{2, 2, 1}, batchSizes)
	assert.InDelta(t, 1.0, elems[0].Destination.Lat, 1e-9, "elements keep input order")
	assert.True(t, elems[0].OK)
}

func TestDistanceMatrix_NotRoutableElement(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(matrixResponse{Elements: []matrixElement{ //nolint:errcheck
			{Status: "OK", DurationMinutes: 30, FreeFlowMinutes: 25, DistanceKm: 20},
			{Status: "NOT_ROUTABLE"},
		}})
	}))
	defer srv.Close()

	c := NewClient("key", WithBaseURL(srv.URL))
	elems, err := c.DistanceMatrix(context.Background(), Point{}, []Point{{Lat: 1}, {Lat: 2}})
	require.NoError(t, err)
	assert.True(t, elems[0].OK)
	assert.False(t, elems[1].OK)
}

func TestDistanceMatrix_ElementCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(matrixResponse{}) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient("key", WithBaseURL(srv.URL))
	_, err := c.DistanceMatrix(context.Background(), Point{}, []Point{{Lat: 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "elements")
}

func TestRoute_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/route", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(routeResponse{ //nolint:errcheck
			Status: "OK", DurationMinutes: 42, FreeFlowMinutes: 35, DistanceKm: 31.5,
			Geometry: "LINESTRING (151.21 -33.87, 151.18 -33.80)",
		})
	}))
	defer srv.Close()

	c := NewClient("key", WithBaseURL(srv.URL))
	route, err := c.Route(context.Background(), Point{Lat: -33.87, Lng: 151.21}, Point{Lat: -33.80, Lng: 151.18})
	require.NoError(t, err)
	assert.InDelta(t, 42, route.DurationMinutes, 1e-9)
	assert.NotEmpty(t, route.Geometry)
}

func TestRoute_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(routeResponse{Status: "NO_ROUTE"}) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient("key", WithBaseURL(srv.URL))
	_, err := c.Route(context.Background(), Point{}, Point{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NO_ROUTE")
}

func TestRoute_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(routeResponse{Status: "OK"}) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient("key", WithBaseURL(srv.URL), WithHTTPClient(&http.Client{Timeout: 20 * time.Millisecond}))
	_, err := c.Route(context.Background(), Point{}, Point{})
	require.Error(t, err)
}
