package shortcode

import (
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidURL(t *testing.T) {
	valid := []string{
		"https://example.com",
		"http://example.com/path?q=1#frag",
		"https://sub.example.co.uk:8443/a/b",
		"http://127.0.0.1:8080",
	}
	for _, u := range valid {
		assert.True(t, IsValidURL(u), u)
	}

	invalid := []string{
		"",
		"example.com",
		"ftp://example.com",
		"javascript:alert(1)",
		"mailto:someone@example.com",
		"https://",
		"http://[::1",
		"://missing-scheme",
	}
	for _, u := range invalid {
		assert.False(t, IsValidURL(u), u)
	}
}

func TestIsValidShortcode(t *testing.T) {
	assert.True(t, IsValidShortcode(""), "空短码表示自动生成")
	assert.True(t, IsValidShortcode("a"))
	assert.True(t, IsValidShortcode("abc123"))
	assert.True(t, IsValidShortcode("ABCdef7890"))

	assert.False(t, IsValidShortcode("abcdefghijk"), "长度 11 不合法")
	assert.False(t, IsValidShortcode("abc-123"))
	assert.False(t, IsValidShortcode("abc_123"))
	assert.False(t, IsValidShortcode("abc 123"))
	assert.False(t, IsValidShortcode("短码"))
}

func TestGenerate(t *testing.T) {
	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		code, err := Generate()
		require.NoError(t, err)
		assert.Len(t, code, Length)
		for _, c := range code {
			assert.True(t, strings.ContainsRune(Alphabet, c), "非法字符 %q", c)
		}
		assert.True(t, IsValidShortcode(code))
		seen[code] = true
	}
	// 62^6 的空间足够大，1000 次生成几乎不可能重复
	assert.Greater(t, len(seen), 990)
}

func TestAlphabet(t *testing.T) {
	assert.Len(t, Alphabet, 62)
	chars := make(map[rune]bool)
	for _, c := range Alphabet {
		chars[c] = true
	}
	assert.Len(t, chars, 62)
}

func TestRegisterBindings(t *testing.T) {
	v := validator.New()
	require.NoError(t, RegisterBindings(v))

	type entry struct {
		URL       string `validate:"required,weburl"`
		Shortcode string `validate:"shortcode"`
	}

	assert.NoError(t, v.Struct(entry{URL: "https://example.com"}))
	assert.NoError(t, v.Struct(entry{URL: "https://example.com", Shortcode: "abc123"}))
	assert.Error(t, v.Struct(entry{URL: "ftp://example.com"}))
	assert.Error(t, v.Struct(entry{URL: "https://example.com", Shortcode: "bad-code"}))

	// 与注册表一致，先去掉首尾空白再校验
	assert.NoError(t, v.Struct(entry{URL: "  https://example.com\t", Shortcode: " abc123 "}))
	assert.Error(t, v.Struct(entry{URL: "   "}))
}
