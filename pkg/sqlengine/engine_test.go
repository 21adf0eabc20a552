package sqlengine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabiq-ai/tabiq-engine/pkg/apperrors"
	"github.com/tabiq-ai/tabiq-engine/pkg/dataset"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(nil)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func loadSales(t *testing.T, e *Engine) {
	t.Helper()
	ds := dataset.New("vendas", "sales records",
		[]string{"data", "cliente", "produto", "valor", "quantidade"},
		[][]any{
			{"2024-01-05", "ana", "caneta", "12.5", "3"},
			{"2024-01-06", "bruno", "caderno", "30.0", "2"},
			{"2024-02-01", "ana", "mouse", "85.0", "1"},
			{"2024-02-10", "carla", "teclado", "120.0", "1"},
			{"2024-03-02", "bruno", "caneta", "12.5", "5"},
		})
	require.NoError(t, e.RegisterDataset(context.Background(), ds))
}

func TestQuery_SimpleSelect(t *testing.T) {
	e := newTestEngine(t)
	loadSales(t, e)

	res, err := e.Query(context.Background(), "SELECT cliente, valor FROM vendas ORDER BY valor DESC")
	require.NoError(t, err)
	assert.Equal(t, []string{"cliente", "valor"}, res.Columns)
	require.Equal(t, 5, res.RowCount)
	assert.Equal(t, "carla", res.Rows[0]["cliente"])
	assert.Equal(t, 120.0, res.Rows[0]["valor"])
}

func TestQuery_Aggregation(t *testing.T) {
	e := newTestEngine(t)
	loadSales(t, e)

	res, err := e.Query(context.Background(),
		"SELECT cliente, SUM(valor) AS total FROM vendas GROUP BY cliente ORDER BY total DESC")
	require.NoError(t, err)
	require.Equal(t, 3, res.RowCount)
	assert.Equal(t, "carla", res.Rows[0]["cliente"])
	assert.Equal(t, 120.0, res.Rows[0]["total"])
}

func TestQuery_DateFormatRewrite(t *testing.T) {
	e := newTestEngine(t)
	loadSales(t, e)

	// MySQL-style DATE_FORMAT is rewritten to strftime before execution.
	res, err := e.Query(context.Background(),
		"SELECT DATE_FORMAT(data, '%Y-%m') AS mes, SUM(valor) AS total FROM vendas GROUP BY mes ORDER BY mes")
	require.NoError(t, err)
	require.Equal(t, 3, res.RowCount)
	assert.Equal(t, "2024-01", res.Rows[0]["mes"])
	assert.Equal(t, 42.5, res.Rows[0]["total"])
}

func TestQuery_TableNotFound(t *testing.T) {
	e := newTestEngine(t)
	loadSales(t, e)

	_, err := e.Query(context.Background(), "SELECT * FROM produtos")
	require.Error(t, err)

	var notFound *apperrors.TableNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "produtos", notFound.Name)
	assert.Equal(t, []string{"vendas"}, notFound.Available)
	assert.Equal(t, apperrors.KindTableNotFound, apperrors.KindOf(err))
}

func TestQuery_UnknownColumn(t *testing.T) {
	e := newTestEngine(t)
	loadSales(t, e)

	_, err := e.Query(context.Background(), "SELECT preco FROM vendas")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindColumnNotFound, apperrors.KindOf(err))
}

func TestQuery_RejectsMultipleStatements(t *testing.T) {
	e := newTestEngine(t)
	loadSales(t, e)

	_, err := e.Query(context.Background(), "SELECT 1; DROP TABLE vendas")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindSQLSyntax, apperrors.KindOf(err))
	assert.ErrorIs(t, err, ErrMultipleStatements)
}

func TestQuery_RejectsWrites(t *testing.T) {
	e := newTestEngine(t)
	loadSales(t, e)

	_, err := e.Query(context.Background(), "DELETE FROM vendas")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotReadOnly)
}

func TestQuery_TrailingSemicolonAccepted(t *testing.T) {
	e := newTestEngine(t)
	loadSales(t, e)

	res, err := e.Query(context.Background(), "SELECT COUNT(*) AS n FROM vendas;")
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Rows[0]["n"])
}

func TestRegisterDataset_Replace(t *testing.T) {
	e := newTestEngine(t)
	loadSales(t, e)

	smaller := dataset.New("vendas", "", []string{"cliente"}, [][]any{{"ana"}})
	require.NoError(t, e.RegisterDataset(context.Background(), smaller))

	res, err := e.Query(context.Background(), "SELECT COUNT(*) AS n FROM vendas")
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Rows[0]["n"])
}

func TestRegisterView(t *testing.T) {
	e := newTestEngine(t)
	loadSales(t, e)

	other := dataset.New("vendas_2023", "", []string{"cliente", "valor"}, [][]any{
		{"ana", "10.0"},
	})
	require.NoError(t, e.RegisterDataset(context.Background(), other))
	require.NoError(t, e.RegisterView(context.Background(), "todas_vendas",
		`SELECT cliente, valor FROM vendas UNION ALL SELECT cliente, valor FROM vendas_2023`))

	res, err := e.Query(context.Background(), "SELECT COUNT(*) AS n FROM todas_vendas")
	require.NoError(t, err)
	assert.Equal(t, int64(6), res.Rows[0]["n"])
	assert.Contains(t, e.Tables(), "todas_vendas")
}

func TestQuery_Macros(t *testing.T) {
	e := newTestEngine(t)
	loadSales(t, e)

	tests := []struct {
		name  string
		sql   string
		check func(t *testing.T, row map[string]any)
	}{
		{
			name: "year extraction",
			sql:  "SELECT YEAR(data) AS y FROM vendas LIMIT 1",
			check: func(t *testing.T, row map[string]any) {
				assert.Equal(t, int64(2024), row["y"])
			},
		},
		{
			name: "month extraction",
			sql:  "SELECT MONTH(data) AS m FROM vendas ORDER BY data DESC LIMIT 1",
			check: func(t *testing.T, row map[string]any) {
				assert.Equal(t, int64(3), row["m"])
			},
		},
		{
			name: "concat_ws",
			sql:  "SELECT CONCAT_WS('-', cliente, produto) AS tag FROM vendas ORDER BY data LIMIT 1",
			check: func(t *testing.T, row map[string]any) {
				assert.Equal(t, "ana-caneta", row["tag"])
			},
		},
		{
			name: "three arg concat falls through to macro",
			sql:  "SELECT CONCAT(cliente, ' ', produto) AS tag FROM vendas ORDER BY data LIMIT 1",
			check: func(t *testing.T, row map[string]any) {
				assert.Equal(t, "ana caneta", row["tag"])
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.Query(context.Background(), tt.sql)
			require.NoError(t, err)
			require.NotEmpty(t, res.Rows)
			tt.check(t, res.Rows[0])
		})
	}
}

func TestRewriteDialect(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "date_format arg swap",
			in:   "SELECT DATE_FORMAT(data, '%Y-%m') FROM vendas",
			want: "SELECT strftime('%Y-%m', data) FROM vendas",
		},
		{
			name: "to_date",
			in:   "SELECT TO_DATE(data) FROM vendas",
			want: "SELECT DATE(data) FROM vendas",
		},
		{
			name: "two arg concat",
			in:   "SELECT CONCAT(a, b) FROM t",
			want: "SELECT (a || b) FROM t",
		},
		{
			name: "substring",
			in:   "SELECT SUBSTRING(nome, 1, 3) FROM t",
			want: "SELECT SUBSTR(nome, 1, 3) FROM t",
		},
		{
			name: "group_concat",
			in:   "SELECT GROUP_CONCAT(nome) FROM t",
			want: "SELECT STRING_AGG(nome) FROM t",
		},
		{
			name: "plain sql untouched",
			in:   "SELECT * FROM vendas WHERE valor > 10",
			want: "SELECT * FROM vendas WHERE valor > 10",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RewriteDialect(tt.in))
		})
	}
}

func TestExtractTableRefs(t *testing.T) {
	refs := ExtractTableRefs(`SELECT * FROM vendas v JOIN "clientes" c ON v.cliente_id = c.id JOIN vendas x ON 1=1`)
	assert.Equal(t, []string{"vendas", "clientes"}, refs)
}

func TestValidateAndNormalize(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantSQL string
		wantErr error
	}{
		{name: "plain select", in: "SELECT 1", wantSQL: "SELECT 1"},
		{name: "with cte", in: "WITH t AS (SELECT 1) SELECT * FROM t", wantSQL: "WITH t AS (SELECT 1) SELECT * FROM t"},
		{name: "trailing semicolon", in: "SELECT 1;  ", wantSQL: "SELECT 1"},
		{name: "empty", in: "   ", wantErr: ErrEmptyQuery},
		{name: "multiple statements", in: "SELECT 1; SELECT 2", wantErr: ErrMultipleStatements},
		{name: "semicolon inside literal ok", in: "SELECT 'a;b' AS s", wantSQL: "SELECT 'a;b' AS s"},
		{name: "insert rejected", in: "INSERT INTO t VALUES (1)", wantErr: ErrNotReadOnly},
		{name: "update rejected", in: "UPDATE t SET a = 1", wantErr: ErrNotReadOnly},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateAndNormalize(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, got.Err, tt.wantErr)
				return
			}
			require.NoError(t, got.Err)
			assert.Equal(t, tt.wantSQL, got.SQL)
		})
	}
}

func TestCheckForInjection(t *testing.T) {
	assert.Nil(t, CheckForInjection("what were total sales per month"))

	res := CheckForInjection("'; DROP TABLE vendas--")
	require.NotNil(t, res)
	assert.NotEmpty(t, res.Fingerprint)
}
