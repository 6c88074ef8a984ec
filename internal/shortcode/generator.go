package shortcode

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// Alphabet 包含用于生成短码的所有字符
	Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// Length 是自动生成的短码长度
	Length = 6
	// MaxLength 是自定义短码的最大长度
	MaxLength = 10
)

// Generate 生成一个随机短码，每一位独立均匀地取自 Alphabet。
// 不保证与已有短码不冲突，调用方需要自行检查并重试。
func Generate() (string, error) {
	return gonanoid.Generate(Alphabet, Length)
}
