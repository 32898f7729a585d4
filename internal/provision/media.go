package provision

import (
	"fmt"

	"github.com/RayGuolq/zabbix/internal/zabbix"
)

const (
	// receiveAllPeriod 全天候接收通知
	receiveAllPeriod = "1-7,00:00-24:00"
	// receiveAllSeverity 6 位掩码全开：
	// [not classified][information][warning][average][high][disaster]
	receiveAllSeverity = 63
)

// 告警通知模板（def_shortdata / def_longdata）
const (
	notificationSubject = "设备【{HOST.NAME}】发生异常"
	notificationMessage = "【贞泉】尊敬的用户您好，您的设备编号[{HOST.NAME}] 发生异常：{TRIGGER.NAME}，当前值：{ITEM.LASTVALUE}，严重程度：{TRIGGER.SEVERITY}，事件编号：{EVENT.ID}，请知悉，谢谢!"
)

// buildMedias 把短信/邮箱列表组装为用户通知媒介，短信在前。
// 列表整体替换远端媒介，不做增量合并。
func buildMedias(smss, emails []string) []zabbix.Media {
	medias := make([]zabbix.Media, 0, len(smss)+len(emails))
	for _, sms := range smss {
		medias = append(medias, zabbix.Media{
			Type:     zabbix.MediaSMS,
			SendTo:   sms,
			Severity: receiveAllSeverity,
			Period:   receiveAllPeriod,
		})
	}
	for _, email := range emails {
		medias = append(medias, zabbix.Media{
			Type:     zabbix.MediaEmail,
			SendTo:   email,
			Severity: receiveAllSeverity,
			Period:   receiveAllPeriod,
		})
	}
	return medias
}

// actionName 监控项对应的动作名，同时是动作归属的稳定标识：
// 同一 (用户, 监控项) 永远派生出同一个名字，查找按全名精确匹配。
func actionName(username, itemName string) string {
	return fmt.Sprintf("%s`s device occur %s exception action", username, itemName)
}
