package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// ModuleFields 描述一次遍历中单个模块的处理结果。
func ModuleFields(runID, url string, cacheHit bool) logrus.Fields {
	return logrus.Fields{
		"run_id":    runID,
		"url":       url,
		"cache_hit": cacheHit,
	}
}

// RequestFields 提供 serve 模式下请求日志的公共字段。
func RequestFields(requestID, method, route string, status int) logrus.Fields {
	return logrus.Fields{
		"request_id": requestID,
		"method":     method,
		"route":      route,
		"status":     status,
	}
}
