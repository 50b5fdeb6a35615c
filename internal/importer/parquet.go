package importer

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/court-opinions/engine/internal/record"
	appErr "github.com/court-opinions/engine/pkg/errors"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/deprecated"
	"github.com/parquet-go/parquet-go/format"
)

const readBatch = 128

// ParquetSource reads rows from a Parquet file. Top-level columns become
// record fields; repeated columns become lists and nested groups become
// nested maps keyed by the remaining path.
type ParquetSource struct {
	file   *parquet.File
	leaves []leaf
}

type leaf struct {
	path     []string
	column   int
	repeated bool
	maxDef   int
	node     parquet.Node
}

// OpenParquet opens a Parquet container. It fails with CodeInvalid when the
// bytes are not a readable Parquet file.
func OpenParquet(r io.ReaderAt, size int64) (*ParquetSource, error) {
	f, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInvalid, "invalid parquet file")
	}
	schema := f.Schema()
	var leaves []leaf
	for _, path := range schema.Columns() {
		lc, ok := schema.Lookup(path...)
		if !ok {
			continue
		}
		// lc.Path holds only the leaf segment; the full path names the column.
		leaves = append(leaves, leaf{
			path:     append([]string(nil), path...),
			column:   lc.ColumnIndex,
			repeated: lc.MaxRepetitionLevel > 0,
			maxDef:   lc.MaxDefinitionLevel,
			node:     lc.Node,
		})
	}
	if len(leaves) == 0 {
		return nil, appErr.Invalid("invalid parquet file").WithMeta("reason", "no columns")
	}
	return &ParquetSource{file: f, leaves: leaves}, nil
}

// Columns lists the top-level field names in schema order.
func (s *ParquetSource) Columns() []string {
	seen := map[string]bool{}
	var out []string
	for _, l := range s.leaves {
		if !seen[l.path[0]] {
			seen[l.path[0]] = true
			out = append(out, l.path[0])
		}
	}
	return out
}

func (s *ParquetSource) TotalRows() int { return int(s.file.NumRows()) }

func (s *ParquetSource) Rows(ctx context.Context, yield func(RawRow) error) error {
	index := 0
	buf := make([]parquet.Row, readBatch)
	for _, rg := range s.file.RowGroups() {
		if err := s.readGroup(ctx, rg, buf, &index, yield); err != nil {
			return err
		}
	}
	return nil
}

func (s *ParquetSource) readGroup(ctx context.Context, rg parquet.RowGroup, buf []parquet.Row, index *int, yield func(RawRow) error) error {
	rows := rg.Rows()
	defer rows.Close()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := rows.ReadRows(buf)
		for _, row := range buf[:n] {
			rec, convErr := s.convert(row)
			if yerr := yield(RawRow{Index: *index, Record: rec, Err: convErr}); yerr != nil {
				return yerr
			}
			*index++
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
	}
}

func (s *ParquetSource) convert(row parquet.Row) (*record.Record, error) {
	byColumn := make(map[int][]parquet.Value, len(s.leaves))
	for _, v := range row {
		byColumn[v.Column()] = append(byColumn[v.Column()], v)
	}

	out := record.New()
	nested := map[string]*record.Record{}
	for _, l := range s.leaves {
		vals := byColumn[l.column]
		var (
			val record.Value
			err error
		)
		if l.repeated {
			val, err = listValue(vals, l)
		} else {
			val, err = scalarValue(vals, l)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", strings.Join(l.path, "."), err)
		}

		top := l.path[0]
		switch {
		case l.repeated || len(l.path) == 1:
			name := top
			if out.Has(top) {
				name = strings.Join(l.path, ".")
			}
			out.Set(name, val)
		default:
			m, ok := nested[top]
			if !ok {
				m = record.New()
				nested[top] = m
				out.Set(top, record.Null())
			}
			m.Set(strings.Join(l.path[1:], "."), val)
		}
	}
	for top, m := range nested {
		out.Set(top, record.Map(m))
	}
	return out, nil
}

func scalarValue(vals []parquet.Value, l leaf) (record.Value, error) {
	if len(vals) == 0 {
		return record.Null(), nil
	}
	return toValue(vals[0], l.node)
}

func listValue(vals []parquet.Value, l leaf) (record.Value, error) {
	items := make([]record.Value, 0, len(vals))
	allNull := true
	for _, v := range vals {
		if v.IsNull() {
			continue
		}
		allNull = false
		item, err := toValue(v, l.node)
		if err != nil {
			return record.Value{}, err
		}
		items = append(items, item)
	}
	if allNull && (len(vals) == 0 || vals[0].DefinitionLevel() == 0) {
		return record.Null(), nil
	}
	return record.List(items...), nil
}

func toValue(v parquet.Value, node parquet.Node) (record.Value, error) {
	if v.IsNull() {
		return record.Null(), nil
	}
	var lt *format.LogicalType
	if node != nil && node.Type() != nil {
		lt = node.Type().LogicalType()
	}

	switch v.Kind() {
	case parquet.Boolean:
		return record.Bool(v.Boolean()), nil
	case parquet.Int32:
		if lt != nil && lt.Date != nil {
			return record.String(time.Unix(int64(v.Int32())*86400, 0).UTC().Format(DateLayout)), nil
		}
		return record.Int(int64(v.Int32())), nil
	case parquet.Int64:
		if lt != nil && lt.Timestamp != nil {
			return record.String(timestamp(v.Int64(), lt.Timestamp.Unit).Format(time.RFC3339Nano)), nil
		}
		return record.Int(v.Int64()), nil
	case parquet.Int96:
		return record.String(int96Time(v.Int96()).Format(time.RFC3339Nano)), nil
	case parquet.Float:
		return record.Float(float64(v.Float())), nil
	case parquet.Double:
		return record.Float(v.Double()), nil
	case parquet.ByteArray, parquet.FixedLenByteArray:
		b := v.ByteArray()
		if utf8.Valid(b) {
			return record.String(string(b)), nil
		}
		return record.String(hex.EncodeToString(b)), nil
	}
	return record.Value{}, fmt.Errorf("unsupported parquet kind %s", v.Kind())
}

// julianUnixEpoch is the Julian day number of 1970-01-01.
const julianUnixEpoch = 2440588

// int96Time decodes the legacy Impala/Spark timestamp: nanoseconds of day in
// the low eight bytes, Julian day in the high four.
func int96Time(i deprecated.Int96) time.Time {
	nanos := int64(uint64(i[1])<<32 | uint64(i[0]))
	days := int64(i[2]) - julianUnixEpoch
	return time.Unix(days*86400, nanos).UTC()
}

func timestamp(n int64, unit format.TimeUnit) time.Time {
	switch {
	case unit.Nanos != nil:
		return time.Unix(0, n).UTC()
	case unit.Micros != nil:
		return time.UnixMicro(n).UTC()
	default:
		return time.UnixMilli(n).UTC()
	}
}
