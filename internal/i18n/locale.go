package i18n

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// 支持的语言
const (
	LocaleZH = "zh-CN"
	LocaleTW = "zh-TW"
	LocaleEN = "en-US"

	DefaultLocale = LocaleZH
)

// ResolveLocale 依次读取 lang 查询参数、X-Locale 与 Accept-Language 请求头
func ResolveLocale(c *gin.Context) string {
	if c == nil || c.Request == nil {
		return DefaultLocale
	}
	if lang := strings.TrimSpace(c.Query("lang")); lang != "" {
		return NormalizeLocale(lang)
	}
	if lang := strings.TrimSpace(c.GetHeader("X-Locale")); lang != "" {
		return NormalizeLocale(lang)
	}
	accept := c.GetHeader("Accept-Language")
	for _, part := range strings.Split(accept, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if tag == "" || tag == "*" {
			continue
		}
		return NormalizeLocale(tag)
	}
	return DefaultLocale
}

// NormalizeLocale 归一化语言标签，无法识别时返回默认语言
func NormalizeLocale(tag string) string {
	tag = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(tag), "_", "-"))
	switch {
	case tag == "zh-tw" || tag == "zh-hk" || tag == "zh-hant" || strings.HasPrefix(tag, "zh-hant-"):
		return LocaleTW
	case strings.HasPrefix(tag, "zh"):
		return LocaleZH
	case strings.HasPrefix(tag, "en"):
		return LocaleEN
	default:
		return DefaultLocale
	}
}
