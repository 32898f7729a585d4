package zabbix

import (
	"encoding/json"

	"github.com/RayGuolq/zabbix/internal/condition"
)

// Host Zabbix host 资源（仅保留本服务用到的字段）
type Host struct {
	HostID string `json:"hostid"`
	Host   string `json:"host"`
	Name   string `json:"name"`
}

// Media 用户的通知媒介（短信/邮件）
type Media struct {
	Type     MediaType
	SendTo   string
	Severity int    // 6 位掩码，63 = 全部级别
	Period   string // 如 "1-7,00:00-24:00"
}

// MediaType 媒介类型
type MediaType int

const (
	MediaEmail MediaType = iota
	MediaSMS
)

// User Zabbix user 资源
type User struct {
	UserID string
	Alias  string
	Medias []Media
}

// Action Zabbix trigger action 资源（已解码为领域条件）
type Action struct {
	ID         string
	Name       string
	Conditions []condition.Condition
}

// NotificationChannel 动作通知渠道
type NotificationChannel int

const (
	NotifyEmail NotificationChannel = iota
	NotifySMS
	NotifyBoth
)

// Operation 动作触发时的通知操作
type Operation struct {
	UserID  string
	Channel NotificationChannel
}

// CreateActionParams action.create 入参（领域形态）
type CreateActionParams struct {
	Name       string
	Conditions []condition.Condition
	Operations []Operation
	Subject    string
	Message    string
}

// Zabbix 线上编码。字符串魔法值只出现在本文件，领域层一律使用
// condition.Condition / Operation 等强类型。
const (
	wireConditionTypeHostID   = "1"
	wireConditionTypeItemName = "3"
	wireOperatorEquals        = "0"
	wireOperatorLike          = "2"

	wireMediaTypeEmail = "1"
	wireMediaTypeSMS   = "4"

	// eventsource 0 = trigger action
	wireEventSourceTriggers = 0
)

type wireCondition struct {
	ConditionType string `json:"conditiontype"`
	Operator      string `json:"operator"`
	Value         string `json:"value"`
	FormulaID     string `json:"formulaid,omitempty"`
}

type wireFilter struct {
	EvalType   string          `json:"evaltype"`
	Conditions []wireCondition `json:"conditions"`
}

type wireAction struct {
	ActionID string     `json:"actionid"`
	Name     string     `json:"name"`
	Filter   wireFilter `json:"filter"`
}

type wireMedia struct {
	MediaTypeID string `json:"mediatypeid"`
	SendTo      string `json:"sendto"`
	Active      int    `json:"active"`
	Severity    int    `json:"severity"`
	Period      string `json:"period"`
}

type wireOpMessage struct {
	DefaultMsg  int    `json:"default_msg"`
	MediaTypeID string `json:"mediatypeid"`
}

type wireOperation struct {
	OperationType int             `json:"operationtype"`
	EscPeriod     int             `json:"esc_period"`
	EscStepFrom   int             `json:"esc_step_from"`
	EscStepTo     int             `json:"esc_step_to"`
	EvalType      int             `json:"evaltype"`
	OpMessageGrp  []any           `json:"opmessage_grp"`
	OpMessageUsr  []wireUserRef   `json:"opmessage_usr"`
	OpMessage     wireOpMessage   `json:"opmessage"`
}

type wireUserRef struct {
	UserID string `json:"userid"`
}

func mediaTypeID(t MediaType) string {
	if t == MediaSMS {
		return wireMediaTypeSMS
	}
	return wireMediaTypeEmail
}

func encodeMedias(medias []Media) []wireMedia {
	out := make([]wireMedia, 0, len(medias))
	for _, m := range medias {
		out = append(out, wireMedia{
			MediaTypeID: mediaTypeID(m.Type),
			SendTo:      m.SendTo,
			Active:      0, // 0 = enabled
			Severity:    m.Severity,
			Period:      m.Period,
		})
	}
	return out
}

// encodeConditions 把领域条件编码为线上条件，formulaid 按位置取字母标号
func encodeConditions(conditions []condition.Condition) []wireCondition {
	out := make([]wireCondition, 0, len(conditions))
	for i, c := range conditions {
		w := wireCondition{
			Value:     c.Value,
			FormulaID: condition.FormulaLabel(i + 1),
		}
		switch c.Kind {
		case condition.KindHostMembership:
			w.ConditionType = wireConditionTypeHostID
			w.Operator = wireOperatorEquals
		case condition.KindItemNameMatch:
			w.ConditionType = wireConditionTypeItemName
			w.Operator = wireOperatorLike
		}
		out = append(out, w)
	}
	return out
}

// decodeConditions 解码线上条件。未知 conditiontype（如模板、触发器条件）
// 对本服务不可见，直接丢弃：本服务只维护自己创建的动作。
func decodeConditions(wire []wireCondition) []condition.Condition {
	out := make([]condition.Condition, 0, len(wire))
	for _, w := range wire {
		switch {
		case w.ConditionType == wireConditionTypeHostID && w.Operator == wireOperatorEquals:
			out = append(out, condition.HostMembership(w.Value))
		case w.ConditionType == wireConditionTypeItemName && w.Operator == wireOperatorLike:
			out = append(out, condition.ItemNameMatch(w.Value))
		}
	}
	return out
}

func encodeOperations(ops []Operation) []wireOperation {
	packOne := func(userID, mediaTypeID string) wireOperation {
		return wireOperation{
			OperationType: 0,
			EscPeriod:     0,
			EscStepFrom:   1,
			EscStepTo:     1,
			EvalType:      0,
			OpMessageGrp:  []any{},
			OpMessageUsr:  []wireUserRef{{UserID: userID}},
			OpMessage:     wireOpMessage{DefaultMsg: 1, MediaTypeID: mediaTypeID},
		}
	}
	out := make([]wireOperation, 0, len(ops))
	for _, op := range ops {
		switch op.Channel {
		case NotifyEmail:
			out = append(out, packOne(op.UserID, wireMediaTypeEmail))
		case NotifySMS:
			out = append(out, packOne(op.UserID, wireMediaTypeSMS))
		case NotifyBoth:
			out = append(out, packOne(op.UserID, wireMediaTypeEmail))
			out = append(out, packOne(op.UserID, wireMediaTypeSMS))
		}
	}
	return out
}

type wireUser struct {
	UserID string `json:"userid"`
	Alias  string `json:"alias"`
	Medias []struct {
		MediaTypeID string `json:"mediatypeid"`
		SendTo      string `json:"sendto"`
		Severity    string `json:"severity"`
		Period      string `json:"period"`
	} `json:"medias"`
}

func decodeUser(w wireUser) *User {
	u := &User{UserID: w.UserID, Alias: w.Alias}
	for _, m := range w.Medias {
		media := Media{SendTo: m.SendTo, Period: m.Period}
		if m.MediaTypeID == wireMediaTypeSMS {
			media.Type = MediaSMS
		}
		// severity 线上为字符串数字
		_ = json.Unmarshal([]byte(m.Severity), &media.Severity)
		u.Medias = append(u.Medias, media)
	}
	return u
}
