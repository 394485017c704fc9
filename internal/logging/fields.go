package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// SlotFields 提供命名空间/槽位/URL 字段，供缓存准备流程的日志复用。
func SlotFields(namespace, slot, kind, url string) logrus.Fields {
	return logrus.Fields{
		"namespace": namespace,
		"slot":      slot,
		"kind":      kind,
		"url":       url,
	}
}
