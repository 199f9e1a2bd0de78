package pkg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotsByCode(t *testing.T) {
	snapshots := snapshotsByCode([]CountryMetrics{
		{Country: "Israel", CountryInfo: CountryInfo{Iso3: "ISR"}, Metrics: Metrics{Cases: 10, Updated: 1620000000000}},
		{Country: "Diamond Princess", Metrics: Metrics{Cases: 712}},
	})
	require.Len(t, snapshots, 2)
	assert.Equal(t, "Israel", snapshots["ISR"].Country)
	assert.Equal(t, int64(1620000000), snapshots["ISR"].UpdatedAt.Unix())
	assert.Equal(t, float64(712), snapshots["Diamond Princess"].Cases)
}

func TestCompareToPrevRun(t *testing.T) {
	current := map[string]CountrySnapshot{
		"ISR": {CountryCode: "ISR", Cases: 10},
		"USA": {CountryCode: "USA", Cases: 30},
		"FRA": {CountryCode: "FRA", Cases: 5},
	}
	prev := map[string]interface{}{
		"ISR": map[string]interface{}{"_id": "CountrySnapshots/2021-05-02-ISR", "Cases": float64(10)},
		"USA": map[string]interface{}{"_id": "CountrySnapshots/2021-05-02-USA", "Cases": float64(20)},
	}

	nodes, err := compareToPrevRun(current, "2021-05-03", prev)
	require.NoError(t, err)

	assert.Equal(t, []interface{}{"CountrySnapshots/2021-05-02-ISR"}, nodes.unchanged)

	require.Len(t, nodes.created, 1)
	created := nodes.created[0].(map[string]interface{})
	assert.Equal(t, "2021-05-03-FRA", created["_key"])
	assert.Equal(t, "FRA", created["CountryCode"])
	assert.Equal(t, snapshotCollection, created["collection"])

	require.Len(t, nodes.changed, 1)
	changed := nodes.changed[0].(map[string]interface{})
	assert.Equal(t, float64(10), changed["diff"])
	assert.Equal(t, "CountrySnapshots/2021-05-02-USA", changed["prevAssetId"])
	assert.Equal(t, "2021-05-03", changed["date"])
}

func TestCompareToPrevRunRejectsUnknownNodes(t *testing.T) {
	current := map[string]CountrySnapshot{"ISR": {CountryCode: "ISR", Cases: 10}}

	_, err := compareToPrevRun(current, "2021-05-03", map[string]interface{}{"ISR": "bogus"})
	assert.Error(t, err)

	_, err = compareToPrevRun(current, "2021-05-03", map[string]interface{}{"ISR": map[string]interface{}{"_id": "x"}})
	assert.Error(t, err)
}

func TestGroupByKey(t *testing.T) {
	grouped, err := GroupByKey([]map[string]interface{}{
		{"CountryCode": "ISR", "Cases": float64(1)},
		{"CountryCode": "USA", "Cases": float64(2)},
	}, "CountryCode")
	require.NoError(t, err)
	assert.Len(t, grouped, 2)

	_, err = GroupByKey([]map[string]interface{}{{"Cases": float64(1)}}, "CountryCode")
	assert.Error(t, err)
}

func TestSnapshotEdgeKeyIsStable(t *testing.T) {
	first := newSnapshotEdge("Runs/2021-05-03", snapshotID("2021-05-03-ISR"))
	second := newSnapshotEdge("Runs/2021-05-03", snapshotID("2021-05-03-ISR"))
	assert.Equal(t, first, second)
	assert.Equal(t, "Runs_2021-05-03--CountrySnapshots_2021-05-03-ISR", first.Key)
	assert.Equal(t, "CountrySnapshots/2021-05-03-ISR", first.To)
	assert.Equal(t, edgeCollection, first.Collection)

	other := newSnapshotEdge("CountrySnapshots/2021-05-02-ISR", snapshotID("2021-05-03-ISR"))
	assert.NotEqual(t, first.Key, other.Key)
}

func TestSanitizeKey(t *testing.T) {
	assert.Equal(t, "Diamond_Princess", sanitizeKey("Diamond Princess"))
	assert.Equal(t, "Cura_ao", sanitizeKey("Curaçao"))
}
