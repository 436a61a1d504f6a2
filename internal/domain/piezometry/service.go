package piezometry

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/hydrotwin/hydrotwin-api/pkg/errors"
	"github.com/hydrotwin/hydrotwin-api/pkg/metrics"
)

const (
	exportHeader      = "variablecode,date,type,value"
	unknownSeriesType = "-?-"
)

// Service exposes piezometer and aquifer state classification.
type Service interface {
	TimeRanges(ctx context.Context, target Target) ([]TimeRangeView, error)
	PiezometerStates(ctx context.Context, req StateRequest) (StatesResponse, error)
	AquiferStates(ctx context.Context, req AquiferStateRequest) (AquiferStatesResponse, error)
	Classify(ctx context.Context, req ClassifyRequest) (Classification, error)
	Export(ctx context.Context, req ExportRequest) (ExportResult, error)
}

type service struct {
	cfg        Config
	source     ReadingSource
	cache      ReadingCache
	storage    ExportStorage
	piezometer Table
	aquifer    Table
	clock      Clock
	logger     *slog.Logger
}

// NewService wires up the piezometry domain. cache and storage may be nil.
func NewService(cfg Config, source ReadingSource, cache ReadingCache, storage ExportStorage, logger *slog.Logger) Service {
	opts := TableOptions{Location: cfg.Location, DateLayout: cfg.DateLayout}
	return &service{
		cfg:        cfg,
		source:     source,
		cache:      cache,
		storage:    storage,
		piezometer: NewPiezometerTable(opts),
		aquifer:    NewAquiferTable(opts),
		clock:      SystemClock(cfg.Location),
		logger:     logger.With("component", "piezometry.service"),
	}
}

func (s *service) TimeRanges(_ context.Context, target Target) ([]TimeRangeView, error) {
	table, err := s.table(target)
	if err != nil {
		return nil, err
	}
	now := s.clock.now()
	views := make([]TimeRangeView, 0, len(Ranges))
	for _, strategy := range table.Strategies() {
		views = append(views, TimeRangeView{
			Range:       strategy.Range,
			Target:      strategy.Target,
			RequestBody: strategy.RequestBody(now),
			DiffDays:    diffDaysPtr(strategy, now),
			Legend:      strategy.Legend(),
		})
	}
	return views, nil
}

func (s *service) PiezometerStates(ctx context.Context, req StateRequest) (StatesResponse, error) {
	strategy, err := s.strategy(TargetPiezometer, req.Range)
	if err != nil {
		return StatesResponse{}, err
	}
	codes := normalizeCodes(req.Variables)
	if len(codes) == 0 {
		return StatesResponse{}, apperrors.Wrap("invalid_input", "variables cannot be empty", nil)
	}

	now := s.clock.now()
	series, err := s.fetch(ctx, strategy, codes, now)
	if err != nil {
		return StatesResponse{}, err
	}
	_, groups := ByVariable(series)

	states := make([]State, 0, len(codes))
	for _, code := range codes {
		group := groups[code]
		states = append(states, classifyState(strategy, code, group, 0, now))
	}
	s.logger.Info("piezometer states classified", "range", req.Range, "variables", len(codes), "readings", len(series))

	return StatesResponse{
		Range:       strategy.Range,
		GeneratedAt: isoString(now),
		DiffDays:    diffDaysPtr(strategy, now),
		Legend:      strategy.Legend(),
		States:      states,
	}, nil
}

func (s *service) AquiferStates(ctx context.Context, req AquiferStateRequest) (AquiferStatesResponse, error) {
	strategy, err := s.strategy(TargetAquifer, req.Range)
	if err != nil {
		return AquiferStatesResponse{}, err
	}
	aquifers := req.Aquifers
	if len(aquifers) == 0 {
		aquifers, err = s.catalogAquifers(ctx)
		if err != nil {
			return AquiferStatesResponse{}, err
		}
	}

	members := make([]string, 0)
	for _, aq := range aquifers {
		members = append(members, aq.PiezometerIDs...)
	}
	codes := normalizeCodes(members)

	now := s.clock.now()
	var series Series
	if len(codes) > 0 {
		series, err = s.fetch(ctx, strategy, codes, now)
		if err != nil {
			return AquiferStatesResponse{}, err
		}
	}
	_, groups := ByVariable(series)

	coverage := metrics.Coverage{Piezometers: len(codes)}
	for _, code := range codes {
		if len(groups[code]) > 0 {
			coverage.WithData++
		}
	}

	states := make([]AquiferState, 0, len(aquifers))
	for _, aq := range aquifers {
		var aqSeries Series
		memberCodes := normalizeCodes(aq.PiezometerIDs)
		for _, code := range memberCodes {
			aqSeries = append(aqSeries, groups[code]...)
		}
		numPiezometers := len(memberCodes)
		state := classifyState(strategy, aq.ID, aqSeries, numPiezometers, now)
		if state.Color == ColorBlack {
			coverage.Unclassed++
		} else {
			coverage.Classified++
		}
		states = append(states, AquiferState{State: state, Name: aq.Name, NumPiezometers: numPiezometers})
	}
	s.logger.Info("aquifer states classified", "range", req.Range, "aquifers", len(aquifers), "piezometers", coverage.Piezometers, "with_data", coverage.WithData, "coverage_ratio", coverage.Ratio())

	return AquiferStatesResponse{
		Range:       strategy.Range,
		GeneratedAt: isoString(now),
		DiffDays:    diffDaysPtr(strategy, now),
		Legend:      strategy.Legend(),
		Aquifers:    states,
		Coverage:    coverage,
	}, nil
}

func (s *service) Classify(_ context.Context, req ClassifyRequest) (Classification, error) {
	target := req.Target
	if target == "" {
		target = TargetPiezometer
	}
	strategy, err := s.strategy(target, req.Range)
	if err != nil {
		return Classification{}, err
	}
	now := s.clock.now()
	res := Classification{
		Target:   target,
		Range:    strategy.Range,
		Color:    strategy.StateColor(req.Readings, now),
		Info:     strategy.DisplayInfo(req.Readings, req.NumPiezometers, now),
		DiffDays: diffDaysPtr(strategy, now),
		Legend:   strategy.Legend(),
	}
	if delta, ok := strategy.Delta(req.Readings, now); ok {
		res.Delta = &delta
	}
	return res, nil
}

func (s *service) Export(ctx context.Context, req ExportRequest) (ExportResult, error) {
	code := strings.TrimSpace(req.VariableCode)
	if code == "" {
		return ExportResult{}, apperrors.Wrap("invalid_input", "variableCode cannot be empty", nil)
	}
	rangeName := req.Range
	if rangeName == "" {
		rangeName = RangeLastYear
	}
	strategy, err := s.strategy(TargetPiezometer, rangeName)
	if err != nil {
		return ExportResult{}, err
	}

	now := s.clock.now()
	series, err := s.fetch(ctx, strategy, []string{code}, now)
	if err != nil {
		return ExportResult{}, err
	}
	_, groups := ByVariable(series)
	rows := groups[code]

	data, err := s.renderCSV(code, rows)
	if err != nil {
		return ExportResult{}, apperrors.Wrap("export_error", "failed to render csv", err)
	}
	res := ExportResult{
		FileName:    code + ".csv",
		ContentType: "text/csv",
		Data:        data,
		Rows:        len(rows),
	}
	if s.storage != nil {
		key := fmt.Sprintf("exports/%s/%s/%s.csv", code, now.Format("20060102"), uuid.NewString())
		obj, err := s.storage.Put(ctx, key, data, res.ContentType)
		if err != nil {
			return ExportResult{}, apperrors.Wrap("export_error", "failed to archive export", err)
		}
		res.ArchiveKey = obj.Key
	}
	s.logger.Info("piezometer series exported", "variable", code, "range", rangeName, "rows", len(rows), "archive_key", res.ArchiveKey)
	return res, nil
}

func (s *service) renderCSV(code string, rows Series) ([]byte, error) {
	layout := strings.TrimSpace(s.cfg.ExportDateLayout)
	loc := s.clock.Location
	if loc == nil {
		loc = time.UTC
	}

	var buf bytes.Buffer
	buf.WriteString(exportHeader + "\n")
	w := csv.NewWriter(&buf)
	for _, r := range rows {
		kind := r.Type
		if kind == "" {
			kind = unknownSeriesType
		}
		date := exportDate(r.Time.In(loc))
		if layout != "" {
			date = r.Time.In(loc).Format(layout)
		}
		record := []string{code, date, kind, toFixed(r.Value, 4)}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *service) catalogAquifers(ctx context.Context) ([]Aquifer, error) {
	catalog, err := s.source.Piezometers(ctx, nil)
	if err != nil {
		return nil, apperrors.Wrap("upstream_error", "failed to fetch piezometer catalog", err)
	}
	order, groups := GroupBy(catalog, func(p Piezometer) string { return p.WaterBodyID })
	aquifers := make([]Aquifer, 0, len(order))
	for _, id := range order {
		if strings.TrimSpace(id) == "" {
			continue
		}
		group := groups[id]
		ids := make([]string, 0, len(group))
		for _, p := range group {
			ids = append(ids, p.Code)
		}
		aquifers = append(aquifers, Aquifer{ID: id, Name: group[0].WaterBody, PiezometerIDs: ids})
	}
	return aquifers, nil
}

func (s *service) fetch(ctx context.Context, strategy Strategy, codes []string, now time.Time) (Series, error) {
	key := s.cacheKey(strategy.Range, codes, now)
	if s.cache != nil && s.cfg.CacheTTL > 0 {
		cached, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("reading cache lookup failed", "key", key, "error", err)
		} else if ok {
			return cached, nil
		}
	}

	series, err := s.source.Fetch(ctx, codes, strategy.RequestBody(now))
	if err != nil {
		return nil, apperrors.Wrap("upstream_error", "failed to fetch piezometer readings", err)
	}

	if s.cache != nil && s.cfg.CacheTTL > 0 {
		if err := s.cache.Set(ctx, key, series, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("reading cache store failed", "key", key, "error", err)
		}
	}
	return series, nil
}

// cacheKey buckets now by the cache TTL so custom ranges ending "now" can
// still be shared between requests.
func (s *service) cacheKey(r TimeRange, codes []string, now time.Time) string {
	sorted := append([]string(nil), codes...)
	sort.Strings(sorted)
	bucket := int64(0)
	if s.cfg.CacheTTL > 0 {
		bucket = now.Truncate(s.cfg.CacheTTL).Unix()
	}
	return fmt.Sprintf("%s:%s:%d", r, strings.Join(sorted, ","), bucket)
}

func (s *service) table(target Target) (Table, error) {
	switch target {
	case TargetPiezometer, "":
		return s.piezometer, nil
	case TargetAquifer:
		return s.aquifer, nil
	default:
		return Table{}, apperrors.Wrap("invalid_input", fmt.Sprintf("unknown target %q", target), nil)
	}
}

func (s *service) strategy(target Target, r TimeRange) (Strategy, error) {
	table, err := s.table(target)
	if err != nil {
		return Strategy{}, err
	}
	strategy, ok := table.Lookup(r)
	if !ok {
		return Strategy{}, apperrors.Wrap("invalid_input", fmt.Sprintf("unknown time range %q", r), nil)
	}
	return strategy, nil
}

func classifyState(strategy Strategy, id string, series Series, numPiezometers int, now time.Time) State {
	state := State{
		ID:       id,
		Color:    strategy.StateColor(series, now),
		Info:     strategy.DisplayInfo(series, numPiezometers, now),
		Readings: len(series),
	}
	if delta, ok := strategy.Delta(series, now); ok {
		state.Delta = &delta
	}
	return state
}

func diffDaysPtr(strategy Strategy, now time.Time) *int {
	days, ok := strategy.DiffDays(now)
	if !ok {
		return nil
	}
	return &days
}

func normalizeCodes(codes []string) []string {
	out := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		clean := strings.TrimSpace(code)
		if clean == "" {
			continue
		}
		if _, ok := seen[clean]; ok {
			continue
		}
		seen[clean] = struct{}{}
		out = append(out, clean)
	}
	return out
}
