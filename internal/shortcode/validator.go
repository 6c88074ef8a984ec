package shortcode

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var shortcodePattern = regexp.MustCompile(`^[A-Za-z0-9]{1,10}$`)

// IsValidURL 只接受带主机名的 http/https 绝对地址
func IsValidURL(candidate string) bool {
	u, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// IsValidShortcode 空字符串表示自动生成，视为合法
func IsValidShortcode(candidate string) bool {
	if candidate == "" {
		return true
	}
	return shortcodePattern.MatchString(candidate)
}

// RegisterBindings 向 validator 注册 shortcode 和 weburl 两个标签，
// 请求绑定阶段与注册表使用同一套规则，首尾空白同样先去掉
func RegisterBindings(v *validator.Validate) error {
	if err := v.RegisterValidation("shortcode", func(fl validator.FieldLevel) bool {
		return IsValidShortcode(strings.TrimSpace(fl.Field().String()))
	}); err != nil {
		return err
	}
	return v.RegisterValidation("weburl", func(fl validator.FieldLevel) bool {
		return IsValidURL(strings.TrimSpace(fl.Field().String()))
	})
}
