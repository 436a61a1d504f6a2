package piezometrydb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hydrotwin/hydrotwin-api/internal/domain/piezometry"
)

const defaultSchema = "sdew"

// PostgresSource reads piezometer series straight from the corporate views.
type PostgresSource struct {
	pool   *pgxpool.Pool
	schema string
}

// NewPostgresSource creates a source over the given schema ("sdew" when empty).
func NewPostgresSource(pool *pgxpool.Pool, schema string) *PostgresSource {
	schema = strings.TrimSpace(schema)
	if schema == "" {
		schema = defaultSchema
	}
	return &PostgresSource{pool: pool, schema: schema}
}

// Fetch mirrors the latest / initial / custom request types of the corporate API.
func (s *PostgresSource) Fetch(ctx context.Context, variables []string, body piezometry.RequestBody) (piezometry.Series, error) {
	if len(variables) == 0 {
		return nil, nil
	}
	switch body.Type {
	case "latest":
		return s.query(ctx, s.extremeSQL("MAX", "DESC"), variables)
	case "initial":
		first, err := s.query(ctx, s.extremeSQL("MIN", "ASC"), variables)
		if err != nil {
			return nil, err
		}
		latest, err := s.query(ctx, s.extremeSQL("MAX", "DESC"), variables)
		if err != nil {
			return nil, err
		}
		return sortByCode(append(first, latest...)), nil
	case "custom":
		if body.Range == nil {
			return nil, fmt.Errorf("custom request without range")
		}
		start, err := parseBound(body.Range.Start)
		if err != nil {
			return nil, err
		}
		end, err := parseBound(body.Range.End)
		if err != nil {
			return nil, err
		}
		return s.query(ctx, fmt.Sprintf(`
			SELECT "COD_CHS", "FECHA", "PNP"
			FROM %s."VistaSeriesPiezometria"
			WHERE "COD_CHS" = ANY($1) AND "PNP" IS NOT NULL AND "FECHA" BETWEEN $2 AND $3
			ORDER BY "COD_CHS" DESC, "FECHA" DESC
		`, pgx.Identifier{s.schema}.Sanitize()), variables, start, end)
	default:
		return nil, fmt.Errorf("request type %q not supported", body.Type)
	}
}

// Piezometers lists catalog rows, all of them when codes is empty.
func (s *PostgresSource) Piezometers(ctx context.Context, codes []string) ([]piezometry.Piezometer, error) {
	sql := fmt.Sprintf(`
		SELECT "COD_CHS", COALESCE("Z", 0), COALESCE("ACUIFERO", ''), COALESCE("MSBT_Nombre", ''),
			COALESCE("COD_MASA_DEM", ''), COALESCE("CodMasa", '')
		FROM %s."VistaPiezometros"
	`, pgx.Identifier{s.schema}.Sanitize())
	args := []any{}
	if len(codes) > 0 {
		sql += ` WHERE "COD_CHS" = ANY($1)`
		args = append(args, codes)
	}
	sql += ` ORDER BY "COD_CHS"`

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []piezometry.Piezometer
	for rows.Next() {
		var p piezometry.Piezometer
		if err := rows.Scan(&p.Code, &p.Elevation, &p.Aquifer, &p.WaterBody, &p.DemCode, &p.WaterBodyID); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// extremeSQL selects the reading at the MIN or MAX date of every code.
func (s *PostgresSource) extremeSQL(agg, order string) string {
	view := pgx.Identifier{s.schema}.Sanitize() + `."VistaSeriesPiezometria"`
	return fmt.Sprintf(`
		SELECT v."COD_CHS", v."FECHA", v."PNP"
		FROM %[1]s v
		JOIN (
			SELECT "COD_CHS", %[2]s("FECHA") AS edge
			FROM %[1]s
			WHERE "COD_CHS" = ANY($1)
			GROUP BY "COD_CHS"
		) t ON v."COD_CHS" = t."COD_CHS" AND v."FECHA" = t.edge
		WHERE v."PNP" IS NOT NULL
		ORDER BY v."FECHA" %[3]s
	`, view, agg, order)
}

func (s *PostgresSource) query(ctx context.Context, sql string, args ...any) (piezometry.Series, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out piezometry.Series
	for rows.Next() {
		var (
			code  string
			fecha time.Time
			pnp   float64
		)
		if err := rows.Scan(&code, &fecha, &pnp); err != nil {
			return nil, err
		}
		out = append(out, piezometry.Reading{Time: fecha, Value: pnp, VariableCode: code})
	}
	return out, rows.Err()
}

// sortByCode groups first and latest readings per code, first reading leading.
func sortByCode(series piezometry.Series) piezometry.Series {
	sort.SliceStable(series, func(i, j int) bool {
		return series[i].VariableCode < series[j].VariableCode
	})
	return series
}

func parseBound(value string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid range bound %q: %w", value, err)
	}
	return ts, nil
}

var _ piezometry.ReadingSource = (*PostgresSource)(nil)
