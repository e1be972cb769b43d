package utils

import (
	"os"

	"github.com/charmbracelet/log"
)

// Logger 全局日志实例
var Logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
})

// SetLogLevel 按名称设置日志级别（debug/info/warn/error），无法识别时保持不变
func SetLogLevel(level string) {
	if lvl, err := log.ParseLevel(level); err == nil {
		Logger.SetLevel(lvl)
	}
}

// NewLogger 创建带前缀的子日志，前缀对应模块名，如 "TMDB"
func NewLogger(prefix string) *log.Logger {
	return Logger.WithPrefix(prefix)
}
