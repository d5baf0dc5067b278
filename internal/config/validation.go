package config

import (
	"errors"
	"net"
	"strings"

	"github.com/sirupsen/logrus"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if strings.TrimSpace(g.CacheDir) == "" {
		return newFieldError(globalField("CacheDir"), "不能为空")
	}
	if _, err := logrus.ParseLevel(g.LogLevel); err != nil {
		return newFieldError(globalField("LogLevel"), "无法识别的日志级别: "+g.LogLevel)
	}
	switch g.LogFormat {
	case "json", "text":
	default:
		return newFieldError(globalField("LogFormat"), "仅支持 json/text")
	}
	if g.LogMaxSize < 0 {
		return newFieldError(globalField("LogMaxSize"), "不能为负数")
	}
	if g.LogMaxBackups < 0 {
		return newFieldError(globalField("LogMaxBackups"), "不能为负数")
	}
	if g.UpstreamTimeout.DurationValue() <= 0 {
		return newFieldError(globalField("UpstreamTimeout"), "必须大于 0")
	}
	if err := validateListenAddr(g.ListenAddr); err != nil {
		return newFieldError(globalField("ListenAddr"), err.Error())
	}
	return nil
}

func validateListenAddr(addr string) error {
	if strings.TrimSpace(addr) == "" {
		return errors.New("不能为空")
	}
	if _, port, err := net.SplitHostPort(addr); err != nil {
		return err
	} else if port == "" {
		return errors.New("缺少端口")
	}
	return nil
}
