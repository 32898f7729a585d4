package provision

// MonitoringItems 设备模板暴露的监控项目录（固定集合，不支持运行期配置）。
// 每个监控项对应至多一个告警动作，动作名由用户名和监控项名派生。
var MonitoringItems = []string{
	"tds",
	"running status",
	"water purified value",
	"filter1 used",
	"filter2 used",
	"filter3 used",
	"filter4 used",
	"filter5 used",
	"cold water temperature",
	"hot water temperature",
}
