package piezometry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/hydrotwin/hydrotwin-api/pkg/errors"
)

func TestServiceTimeRanges(t *testing.T) {
	svc := newTestService(&stubSource{}, nil, nil)

	views, err := svc.TimeRanges(context.Background(), TargetPiezometer)
	require.NoError(t, err)
	require.Len(t, views, len(Ranges))
	require.Equal(t, RangeLatest, views[0].Range)
	require.Nil(t, views[0].DiffDays)
	require.Equal(t, "latest", views[0].RequestBody.Type)
	require.NotNil(t, views[1].DiffDays)
	require.Equal(t, 365, *views[1].DiffDays)

	_, err = svc.TimeRanges(context.Background(), Target("basin"))
	require.True(t, apperrors.IsCode(err, "invalid_input"))
}

func TestServicePiezometerStates(t *testing.T) {
	source := &stubSource{series: Series{
		reading("P1", "2024-06-10T00:00:00Z", 31.2),
		reading("P1", "2024-01-02T00:00:00Z", 30),
		reading("P2", "2024-06-10T00:00:00Z", 12),
	}}
	svc := newTestService(source, nil, nil)

	resp, err := svc.PiezometerStates(context.Background(), StateRequest{
		Range:     RangeInitYear,
		Variables: []string{" P1 ", "P2", "P1", "P3"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"P1", "P2", "P3"}, source.variables)
	require.Equal(t, "custom", source.body.Type)
	require.Equal(t, "2024-01-01T00:00:00.000Z", source.body.Range.Start)
	require.Equal(t, "2024-06-15T12:00:00.000Z", resp.GeneratedAt)

	require.Len(t, resp.States, 3)
	require.Equal(t, "P1", resp.States[0].ID)
	require.Equal(t, ColorRed, resp.States[0].Color)
	require.NotNil(t, resp.States[0].Delta)
	require.InDelta(t, 1.2, *resp.States[0].Delta, 1e-9)

	// a single reading pairs with itself: delta 0
	require.Equal(t, ColorBlue, resp.States[1].Color)

	require.Equal(t, ColorBlack, resp.States[2].Color)
	require.Empty(t, resp.States[2].Info)
	require.Nil(t, resp.States[2].Delta)
	require.Zero(t, resp.States[2].Readings)
}

func TestServicePiezometerStatesValidation(t *testing.T) {
	svc := newTestService(&stubSource{}, nil, nil)

	_, err := svc.PiezometerStates(context.Background(), StateRequest{Range: RangeLatest})
	require.True(t, apperrors.IsCode(err, "invalid_input"))

	_, err = svc.PiezometerStates(context.Background(), StateRequest{Range: "nextYear", Variables: []string{"P1"}})
	require.True(t, apperrors.IsCode(err, "invalid_input"))
}

func TestServiceUpstreamFailure(t *testing.T) {
	svc := newTestService(&stubSource{err: errors.New("connection refused")}, nil, nil)

	_, err := svc.PiezometerStates(context.Background(), StateRequest{Range: RangeLatest, Variables: []string{"P1"}})
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, "upstream_error"))
}

func TestServiceAquiferStatesFromCatalog(t *testing.T) {
	source := &stubSource{
		catalog: []Piezometer{
			{Code: "P1", WaterBodyID: "070.052", WaterBody: "Campo de Cartagena"},
			{Code: "P2", WaterBodyID: "070.052", WaterBody: "Campo de Cartagena"},
			{Code: "P3", WaterBodyID: "070.061", WaterBody: "Águilas"},
			{Code: "P4"},
		},
		series: aquiferSeries(),
	}
	svc := newTestService(source, nil, nil)

	resp, err := svc.AquiferStates(context.Background(), AquiferStateRequest{Range: RangeInitYear})
	require.NoError(t, err)
	require.Equal(t, []string{"P1", "P2", "P3"}, source.variables)
	require.Len(t, resp.Aquifers, 2)

	first := resp.Aquifers[0]
	require.Equal(t, "070.052", first.ID)
	require.Equal(t, "Campo de Cartagena", first.Name)
	require.Equal(t, 2, first.NumPiezometers)
	require.Equal(t, ColorBlue, first.Color)
	require.True(t, strings.HasSuffix(first.Info, "Number of piezometers: 2"))

	require.Equal(t, ColorBlack, resp.Aquifers[1].Color)
	require.Equal(t, 3, resp.Coverage.Piezometers)
	require.Equal(t, 2, resp.Coverage.WithData)
	require.Equal(t, 1, resp.Coverage.Classified)
	require.Equal(t, 1, resp.Coverage.Unclassed)
}

func TestServiceAquiferStatesExplicit(t *testing.T) {
	source := &stubSource{series: aquiferSeries()}
	svc := newTestService(source, nil, nil)

	resp, err := svc.AquiferStates(context.Background(), AquiferStateRequest{
		Range:    RangeLatest,
		Aquifers: []Aquifer{{ID: "A", Name: "Test", PiezometerIDs: []string{"P1", "P2"}}},
	})
	require.NoError(t, err)
	require.Zero(t, source.catalogCalls)
	require.Len(t, resp.Aquifers, 1)
	require.Equal(t, ColorGreen, resp.Aquifers[0].Color)
	require.Nil(t, resp.DiffDays)
}

func TestServiceClassifyKeepsCallerOrder(t *testing.T) {
	svc := newTestService(&stubSource{}, nil, nil)

	res, err := svc.Classify(context.Background(), ClassifyRequest{
		Range: RangeLatest,
		Readings: Series{
			reading("P1", "2024-06-10T00:00:00Z", 400),
			reading("P1", "2024-01-02T00:00:00Z", 40),
		},
	})
	require.NoError(t, err)
	require.Equal(t, TargetPiezometer, res.Target)
	require.Equal(t, ColorGreen, res.Color)
	require.NotNil(t, res.Delta)
	require.Equal(t, 40.0, *res.Delta)
	require.NotEmpty(t, res.Legend)
}

func TestServiceClassifyAquifer(t *testing.T) {
	svc := newTestService(&stubSource{}, nil, nil)

	res, err := svc.Classify(context.Background(), ClassifyRequest{
		Target:         TargetAquifer,
		Range:          RangeInitYear,
		Readings:       aquiferSeries(),
		NumPiezometers: 2,
	})
	require.NoError(t, err)
	require.Equal(t, ColorBlue, res.Color)
	require.Contains(t, res.Info, "Number of piezometers: 2")
	require.NotNil(t, res.DiffDays)
	require.Equal(t, 167, *res.DiffDays)
}

func TestServiceUsesCache(t *testing.T) {
	source := &stubSource{series: Series{reading("P1", "2024-06-10T00:00:00Z", 20)}}
	cache := newStubCache()
	svc := newTestService(source, cache, nil)
	svc.cfg.CacheTTL = time.Minute

	req := StateRequest{Range: RangeLatest, Variables: []string{"P1"}}
	_, err := svc.PiezometerStates(context.Background(), req)
	require.NoError(t, err)
	_, err = svc.PiezometerStates(context.Background(), StateRequest{Range: RangeLatest, Variables: []string{"P1"}})
	require.NoError(t, err)
	require.Equal(t, 1, source.fetchCalls)
	require.Len(t, cache.entries, 1)

	svc.cfg.CacheTTL = 0
	_, err = svc.PiezometerStates(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 2, source.fetchCalls)
}

func TestServiceCacheKeyIgnoresVariableOrder(t *testing.T) {
	svc := newTestService(&stubSource{}, nil, nil)
	svc.cfg.CacheTTL = time.Hour
	now := fixedNow

	a := svc.cacheKey(RangeLastYear, []string{"P2", "P1"}, now)
	b := svc.cacheKey(RangeLastYear, []string{"P1", "P2"}, now.Add(10*time.Minute))
	require.Equal(t, a, b)
	require.NotEqual(t, a, svc.cacheKey(RangeInitYear, []string{"P1", "P2"}, now))
}

func TestServiceExport(t *testing.T) {
	source := &stubSource{series: Series{
		reading("P1", "2024-06-01T08:30:00Z", 12.5),
		{Time: mustTime("2024-05-01T08:30:00Z"), Value: 13, VariableCode: "P1", Type: "real"},
	}}
	storage := &stubStorage{}
	svc := newTestService(source, nil, storage)

	res, err := svc.Export(context.Background(), ExportRequest{VariableCode: "P1"})
	require.NoError(t, err)
	require.Equal(t, "P1.csv", res.FileName)
	require.Equal(t, "text/csv", res.ContentType)
	require.Equal(t, 2, res.Rows)
	require.Equal(t,
		"variablecode,date,type,value\nP1,1-6-2024  8:30:00,-?-,12.5000\nP1,1-5-2024  8:30:00,real,13.0000\n",
		string(res.Data))
	require.Equal(t, "custom", source.body.Type)

	require.True(t, strings.HasPrefix(res.ArchiveKey, "exports/P1/20240615/"))
	require.True(t, strings.HasSuffix(res.ArchiveKey, ".csv"))
	require.Equal(t, res.Data, storage.data)
}

func TestServiceExportFormatting(t *testing.T) {
	source := &stubSource{series: Series{
		reading("P1", "2024-06-01T08:30:00Z", 0.03125),
		reading("P1", "2024-05-01T08:30:00Z", -1.00005),
	}}
	svc := newTestService(source, nil, nil)

	res, err := svc.Export(context.Background(), ExportRequest{VariableCode: "P1"})
	require.NoError(t, err)
	require.Contains(t, string(res.Data), "P1,1-6-2024  8:30:00,-?-,0.0313\n")
	require.Empty(t, res.ArchiveKey)

	svc.cfg.ExportDateLayout = "2006-01-02 15:04"
	res, err = svc.Export(context.Background(), ExportRequest{VariableCode: "P1"})
	require.NoError(t, err)
	require.Contains(t, string(res.Data), "P1,2024-06-01 08:30,-?-,0.0313\n")
}

func TestServiceAquiferCountsDistinctMembers(t *testing.T) {
	source := &stubSource{series: aquiferSeries()}
	svc := newTestService(source, nil, nil)

	resp, err := svc.AquiferStates(context.Background(), AquiferStateRequest{
		Range:    RangeLatest,
		Aquifers: []Aquifer{{ID: "A", Name: "Test", PiezometerIDs: []string{"P1", " P1", "", "P2"}}},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"P1", "P2"}, source.variables)
	require.Len(t, resp.Aquifers, 1)
	require.Equal(t, 2, resp.Aquifers[0].NumPiezometers)
	require.True(t, strings.HasSuffix(resp.Aquifers[0].Info, "Number of piezometers: 2"))
}

func TestServiceExportErrors(t *testing.T) {
	svc := newTestService(&stubSource{}, nil, &stubStorage{err: errors.New("bucket missing")})

	_, err := svc.Export(context.Background(), ExportRequest{})
	require.True(t, apperrors.IsCode(err, "invalid_input"))

	_, err = svc.Export(context.Background(), ExportRequest{VariableCode: "P1", Range: RangeLatest})
	require.True(t, apperrors.IsCode(err, "export_error"))
}

func newTestService(source ReadingSource, cache ReadingCache, storage ExportStorage) *service {
	opts := TableOptions{Location: time.UTC}
	return &service{
		cfg:        Config{Location: time.UTC},
		source:     source,
		cache:      cache,
		storage:    storage,
		piezometer: NewPiezometerTable(opts),
		aquifer:    NewAquiferTable(opts),
		clock: Clock{
			Now:      func() time.Time { return fixedNow },
			Location: time.UTC,
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

type stubSource struct {
	series       Series
	catalog      []Piezometer
	err          error
	variables    []string
	body         RequestBody
	fetchCalls   int
	catalogCalls int
}

func (s *stubSource) Fetch(_ context.Context, variables []string, body RequestBody) (Series, error) {
	s.fetchCalls++
	s.variables = variables
	s.body = body
	if s.err != nil {
		return nil, s.err
	}
	wanted := make(map[string]struct{}, len(variables))
	for _, v := range variables {
		wanted[v] = struct{}{}
	}
	var out Series
	for _, r := range s.series {
		if _, ok := wanted[r.VariableCode]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubSource) Piezometers(context.Context, []string) ([]Piezometer, error) {
	s.catalogCalls++
	if s.err != nil {
		return nil, s.err
	}
	return s.catalog, nil
}

type stubCache struct {
	entries map[string]Series
}

func newStubCache() *stubCache {
	return &stubCache{entries: make(map[string]Series)}
}

func (c *stubCache) Get(_ context.Context, key string) (Series, bool, error) {
	series, ok := c.entries[key]
	return series, ok, nil
}

func (c *stubCache) Set(_ context.Context, key string, series Series, _ time.Duration) error {
	c.entries[key] = series
	return nil
}

type stubStorage struct {
	data []byte
	err  error
}

func (s *stubStorage) Put(_ context.Context, key string, data []byte, mimeType string) (StoredObject, error) {
	if s.err != nil {
		return StoredObject{}, s.err
	}
	s.data = data
	return StoredObject{Key: key, Size: int64(len(data)), MimeType: mimeType}, nil
}
