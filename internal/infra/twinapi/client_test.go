package twinapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hydrotwin/hydrotwin-api/internal/domain/piezometry"
)

func TestFetchPostsRequestBody(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, valuesPath, r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_, _ = w.Write([]byte(`{"status":200,"ok":true,"data":[
			{"_time":1717977600000,"_value":31.5,"variableCode":"P1","_iso_time":"2024-06-10 00:00:00"},
			{"_time":1704153600000,"_value":30,"variableCode":"P1"}
		]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/", time.Second)
	series, err := client.Fetch(context.Background(), []string{"P1"}, piezometry.RequestBody{
		Type:  "custom",
		Range: &piezometry.DateRange{Start: "2024-01-01T00:00:00.000Z", End: "2024-06-15T12:00:00.000Z"},
	})
	require.NoError(t, err)
	require.Len(t, series, 2)
	require.Equal(t, 31.5, series[0].Value)
	require.Equal(t, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), series[0].Time)

	require.Equal(t, "custom", received["type"])
	require.Equal(t, []any{"P1"}, received["variables"])
	rng, ok := received["range"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "2024-01-01T00:00:00.000Z", rng["start"])
}

func TestFetchOmitsRangeForLatest(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_, _ = w.Write([]byte(`{"status":200,"ok":true,"data":[]}`))
	}))
	defer srv.Close()

	series, err := NewClient(srv.URL, 0).Fetch(context.Background(), []string{"P1"}, piezometry.RequestBody{Type: "latest"})
	require.NoError(t, err)
	require.Empty(t, series)
	_, hasRange := received["range"]
	require.False(t, hasRange)
}

func TestFetchSurfacesErrorDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":400,"title":"Error","detail":"Missing range.","ok":false}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, 0).Fetch(context.Background(), []string{"P1"}, piezometry.RequestBody{Type: "custom"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "Missing range.")
}

func TestPiezometersDecodesCatalog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, piezometerPath, r.URL.Path)
		_, _ = w.Write([]byte(`{"status":200,"ok":true,"data":[
			{"COD_CHS":"08.29.001","Z":120.5,"ACUIFERO":"Cartagena","MSBT_Nombre":"Campo de Cartagena","COD_MASA_DEM":"ES070MSBT000000052","CodMasa":"070.052"}
		]}`))
	}))
	defer srv.Close()

	catalog, err := NewClient(srv.URL, 0).Piezometers(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, catalog, 1)
	require.Equal(t, "08.29.001", catalog[0].Code)
	require.Equal(t, "070.052", catalog[0].WaterBodyID)
	require.Equal(t, 120.5, catalog[0].Elevation)
}
