package condition

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_NewAction(t *testing.T) {
	conditions := Build([]string{"10112", "10113"}, "tds", nil)

	require.Len(t, conditions, 3)
	assert.Equal(t, HostMembership("10112"), conditions[0])
	assert.Equal(t, HostMembership("10113"), conditions[1])
	assert.Equal(t, ItemNameMatch("tds"), conditions[2])
}

func TestBuild_ExtendExisting(t *testing.T) {
	existing := Build([]string{"10112"}, "tds", nil)
	conditions := Build([]string{"10113"}, "", existing)

	require.Len(t, conditions, 3)
	// host 条件追加在已有列表之后，item 条件位置不变
	assert.Equal(t, ItemNameMatch("tds"), conditions[1])
	assert.Equal(t, HostMembership("10113"), conditions[2])
}

func TestBuild_EmptyItemNameAddsNoItemCondition(t *testing.T) {
	conditions := Build([]string{"10112"}, "", nil)

	require.Len(t, conditions, 1)
	assert.Equal(t, HostMembership("10112"), conditions[0])
}

func TestBuild_ReplayYieldsTwoConditions(t *testing.T) {
	first := Build([]string{"10112"}, "tds", nil)
	replayed := Build([]string{"10112"}, "", first)

	// 不去重：重放会出现重复 host 条件，由调用方用 ContainsHost 规避
	require.Len(t, replayed, 3)
	assert.True(t, ContainsHost("10112", replayed))
}

func TestRemoveHost_RemovesAllOccurrences(t *testing.T) {
	conditions := []Condition{
		HostMembership("10112"),
		ItemNameMatch("tds"),
		HostMembership("10112"),
		HostMembership("10113"),
	}

	result := RemoveHost("10112", conditions)

	require.Len(t, result, 2)
	assert.Equal(t, ItemNameMatch("tds"), result[0])
	assert.Equal(t, HostMembership("10113"), result[1])
}

func TestRemoveHost_RoundTripToVacuous(t *testing.T) {
	conditions := Build([]string{"h1", "h2"}, "tds", nil)

	conditions = RemoveHost("h1", conditions)
	assert.False(t, IsVacuous(conditions))

	conditions = RemoveHost("h2", conditions)
	require.Len(t, conditions, 1)
	assert.Equal(t, ItemNameMatch("tds"), conditions[0])
	assert.True(t, IsVacuous(conditions))
}

func TestIsVacuous(t *testing.T) {
	assert.True(t, IsVacuous(nil))
	assert.True(t, IsVacuous([]Condition{}))
	assert.True(t, IsVacuous([]Condition{ItemNameMatch("tds")}))
	assert.False(t, IsVacuous([]Condition{HostMembership("10112")}))
	assert.False(t, IsVacuous([]Condition{HostMembership("10112"), ItemNameMatch("tds")}))
}

func TestContainsHost(t *testing.T) {
	conditions := Build([]string{"10112"}, "tds", nil)

	assert.True(t, ContainsHost("10112", conditions))
	assert.False(t, ContainsHost("10113", conditions))
	// item 条件的值不会被当作 host 命中
	assert.False(t, ContainsHost("tds", conditions))
}

func TestFormulaLabel(t *testing.T) {
	cases := map[int]string{
		1:   "A",
		2:   "B",
		26:  "Z",
		27:  "AA",
		28:  "AB",
		52:  "AZ",
		53:  "BA",
		702: "ZZ",
		703: "AAA",
	}
	for n, want := range cases {
		assert.Equal(t, want, FormulaLabel(n), "FormulaLabel(%d)", n)
	}
}

func TestFormulaLabel_SpreadsheetOrdering(t *testing.T) {
	// 1..700 连续且严格递增（按长度优先、再字典序）
	prev := ""
	for n := 1; n <= 700; n++ {
		label := FormulaLabel(n)
		if prev != "" {
			less := len(prev) < len(label) || (len(prev) == len(label) && prev < label)
			require.True(t, less, fmt.Sprintf("label %q (n=%d) not after %q", label, n, prev))
		}
		prev = label
	}
}

func TestFormulaLabel_NonPositive(t *testing.T) {
	assert.Equal(t, "A", FormulaLabel(0))
	assert.Equal(t, "A", FormulaLabel(-3))
}
