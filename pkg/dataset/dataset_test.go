package dataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func salesDataset() *Dataset {
	cols := []string{"data", "cliente", "produto", "categoria", "valor", "quantidade"}
	rows := [][]any{
		{"2024-01-05", "ana", "caneta", "papelaria", "12.5", "3"},
		{"2024-01-06", "bruno", "caderno", "papelaria", "30.0", "2"},
		{"2024-02-01", "ana", "mouse", "informatica", "85.0", "1"},
		{"2024-02-10", "carla", "teclado", "informatica", "120.0", "1"},
		{"2024-03-02", "bruno", "caneta", "papelaria", "12.5", "5"},
	}
	return New("vendas", "sales records", cols, rows)
}

func TestProfile_TypeInference(t *testing.T) {
	ds := salesDataset()

	assert.Equal(t, TypeDate, ds.Schema["data"])
	assert.Equal(t, TypeFloat, ds.Schema["valor"])
	assert.Equal(t, TypeInteger, ds.Schema["quantidade"])
	// 2 distinct categories over 5 rows: unique ratio 0.4 >= 0.10, so the
	// column stays string rather than categorical.
	assert.Equal(t, TypeString, ds.Schema["categoria"])
}

func TestProfile_CategoricalDetection(t *testing.T) {
	cols := []string{"status"}
	rows := make([][]any, 50)
	for i := range rows {
		if i%2 == 0 {
			rows[i] = []any{"open"}
		} else {
			rows[i] = []any{"closed"}
		}
	}
	ds := New("tickets", "", cols, rows)
	assert.Equal(t, TypeCategorical, ds.Schema["status"])
	require.Len(t, ds.Meta["status"].TopValues, 2)
	assert.Equal(t, 25, ds.Meta["status"].TopValues[0].Count)
}

func TestProfile_PrimaryKeyByName(t *testing.T) {
	ds := New("clientes", "", []string{"id", "nome"}, [][]any{
		{"1", "ana"}, {"2", "bruno"}, {"3", "carla"},
	})
	assert.Equal(t, "id", ds.PrimaryKey)
	assert.Equal(t, TypeID, ds.Schema["id"])
}

func TestProfile_PrimaryKeyByUniqueness(t *testing.T) {
	ds := New("eventos", "", []string{"slug", "tipo"}, [][]any{
		{"a-1", "x"}, {"a-2", "x"}, {"a-3", "y"}, {"a-4", "y"},
	})
	assert.Equal(t, "slug", ds.PrimaryKey)
}

func TestProfile_ForeignKeyCandidates(t *testing.T) {
	ds := New("pedidos", "", []string{"id", "cliente_id", "valor"}, [][]any{
		{"1", "10", "5.0"}, {"2", "11", "7.5"},
	})
	assert.Equal(t, []string{"cliente_id"}, ds.ForeignKeyCandidates)
}

func TestProfile_NumericStats(t *testing.T) {
	ds := salesDataset()
	meta := ds.Meta["valor"]
	require.NotNil(t, meta.Min)
	require.NotNil(t, meta.Max)
	require.NotNil(t, meta.Mean)
	assert.Equal(t, 12.5, *meta.Min)
	assert.Equal(t, 120.0, *meta.Max)
	assert.InDelta(t, 52.0, *meta.Mean, 0.001)
}

func TestProfile_TemporalRange(t *testing.T) {
	ds := salesDataset()
	meta := ds.Meta["data"]
	require.NotNil(t, meta.MinTime)
	require.NotNil(t, meta.MaxTime)
	assert.Equal(t, 2024, meta.MinTime.Year())
	assert.Equal(t, time.March, meta.MaxTime.Month())
}

func TestProfile_DatetimeVsDate(t *testing.T) {
	ds := New("logs", "", []string{"ts"}, [][]any{
		{"2024-01-01 10:30:00"}, {"2024-01-02 11:00:00"},
	})
	assert.Equal(t, TypeDatetime, ds.Schema["ts"])
}

func TestLoadTwiceYieldsEqualDatasets(t *testing.T) {
	a := salesDataset()
	b := salesDataset()
	assert.True(t, a.Equal(b))
}

func TestRowMaps(t *testing.T) {
	ds := salesDataset()
	rows := ds.RowMaps()
	require.Len(t, rows, 5)
	assert.Equal(t, "ana", rows[0]["cliente"])
	assert.Equal(t, 12.5, rows[0]["valor"])
}

func TestDetectRelationships_ByName(t *testing.T) {
	clientes := New("clientes", "", []string{"id", "nome"}, [][]any{
		{"10", "ana"}, {"11", "bruno"},
	})
	pedidos := New("pedidos", "", []string{"id", "cliente_id", "valor"}, [][]any{
		{"1", "10", "5.0"}, {"2", "11", "7.5"},
	})
	all := map[string]*Dataset{"clientes": clientes, "pedidos": pedidos}

	DetectRelationships(all)

	require.NotEmpty(t, pedidos.Relationships)
	rel := pedidos.Relationships[0]
	assert.Equal(t, "cliente_id", rel.SourceColumn)
	assert.Equal(t, "clientes", rel.TargetDataset)
	assert.Equal(t, "id", rel.TargetColumn)
	require.NotEmpty(t, clientes.Incoming)
}

func TestDetectRelationships_ByOverlap(t *testing.T) {
	// Column name does not match the target dataset, but 100% of its
	// values exist in the target primary key.
	owners := New("people", "", []string{"id", "name"}, [][]any{
		{"a", "ana"}, {"b", "bruno"}, {"c", "carla"},
	})
	items := New("inventory", "", []string{"id", "holder_id"}, [][]any{
		{"1", "a"}, {"2", "b"}, {"3", "a"},
	})
	all := map[string]*Dataset{"people": owners, "inventory": items}

	DetectRelationships(all)

	require.NotEmpty(t, items.Relationships)
	rel := items.Relationships[0]
	assert.Equal(t, "people", rel.TargetDataset)
	assert.Equal(t, MethodOverlap, rel.Method)
	assert.InDelta(t, 1.0, rel.Confidence, 0.001)
}

func TestDetectRelationships_BelowThreshold(t *testing.T) {
	owners := New("people", "", []string{"id"}, [][]any{
		{"a"}, {"b"},
	})
	items := New("inventory", "", []string{"id", "holder_id"}, [][]any{
		{"1", "x"}, {"2", "y"}, {"3", "z"}, {"4", "a"},
	})
	all := map[string]*Dataset{"people": owners, "inventory": items}

	DetectRelationships(all)
	assert.Empty(t, items.Relationships)
}

func TestNamesEquivalent(t *testing.T) {
	assert.True(t, namesEquivalent("cliente", "clientes"))
	assert.True(t, namesEquivalent("order_item", "orderitems"))
	assert.True(t, namesEquivalent("category", "categories"))
	assert.False(t, namesEquivalent("cliente", "produtos"))
}
