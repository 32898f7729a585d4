package condition

// Kind 条件类型（封闭枚举，Zabbix 的字符串编码只存在于 gateway 层）
type Kind int

const (
	// KindHostMembership 事件的 host 等于指定 host 时命中
	KindHostMembership Kind = iota
	// KindItemNameMatch 事件的监控项名称包含指定子串时命中
	KindItemNameMatch
)

// Condition 告警动作 filter 中的一个原子条件
type Condition struct {
	Kind  Kind
	Value string // host id 或监控项名称
}

// HostMembership 构造 host 条件
func HostMembership(hostID string) Condition {
	return Condition{Kind: KindHostMembership, Value: hostID}
}

// ItemNameMatch 构造监控项名称条件
func ItemNameMatch(itemName string) Condition {
	return Condition{Kind: KindItemNameMatch, Value: itemName}
}

// Build 把 hostIDs 和 itemName 追加到 existing 之后
// host 条件保持入参顺序，itemName 非空时在末尾追加且仅追加一个。
// 本函数不去重（调用方按需先用 ContainsHost 判断）。
func Build(hostIDs []string, itemName string, existing []Condition) []Condition {
	conditions := existing
	for _, hostID := range hostIDs {
		conditions = append(conditions, HostMembership(hostID))
	}
	if itemName != "" {
		conditions = append(conditions, ItemNameMatch(itemName))
	}
	return conditions
}

// RemoveHost 移除所有匹配 hostID 的 host 条件（全部出现，不只第一个）
// 其它条件（含 ItemNameMatch）原样保留。
func RemoveHost(hostID string, conditions []Condition) []Condition {
	result := make([]Condition, 0, len(conditions))
	for _, c := range conditions {
		if c.Kind == KindHostMembership && c.Value == hostID {
			continue
		}
		result = append(result, c)
	}
	return result
}

// ContainsHost 判断条件列表中是否已有指定 host
func ContainsHost(hostID string, conditions []Condition) bool {
	for _, c := range conditions {
		if c.Kind == KindHostMembership && c.Value == hostID {
			return true
		}
	}
	return false
}

// IsVacuous 判断条件列表是否已不再约束任何 host：
// 列表为空，或只剩一个 ItemNameMatch 条件。这样的动作应当被删除。
func IsVacuous(conditions []Condition) bool {
	if len(conditions) == 0 {
		return true
	}
	return len(conditions) == 1 && conditions[0].Kind == KindItemNameMatch
}

const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// FormulaLabel 生成条件在 formula 中的字母标号（1-based）
// 电子表格列名式的 bijective base-26：1→A, 26→Z, 27→AA, 702→ZZ。
// 注意余数为 0 时映射到低一阶的 'Z'，不是普通 26 进制。
func FormulaLabel(n int) string {
	if n < 1 {
		return "A"
	}
	label := ""
	for n > 0 {
		n--
		label = string(letters[n%26]) + label
		n /= 26
	}
	return label
}
