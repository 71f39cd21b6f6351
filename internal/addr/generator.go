// Package addr 负责生成一次性邮箱地址。
//
// 生成器支持两种模式：调用方指定本地部分（需通过保守语法校验），
// 或由生成器产生随机令牌作为本地部分。随机模式不查询注册表，
// 地址唯一性最终由注册表的原子插入保证。
package addr

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"driftmail/backend/internal/domain"
)

// DefaultTokenLength 随机本地部分的默认长度。
const DefaultTokenLength = 12

// Generator 按配置的域名列表生成邮箱地址，无任何副作用。
type Generator struct {
	domainSet     map[string]struct{}
	defaultDomain string
	tokenLength   int
}

// NewGenerator 创建地址生成器。
//
// domains 中的第一个域名作为未指定域名时的默认值。
func NewGenerator(domains []string, tokenLength int) *Generator {
	domainSet := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		domainSet[strings.ToLower(d)] = struct{}{}
	}
	if tokenLength <= 0 {
		tokenLength = DefaultTokenLength
	}

	g := &Generator{
		domainSet:   domainSet,
		tokenLength: tokenLength,
	}
	if len(domains) > 0 {
		g.defaultDomain = strings.ToLower(domains[0])
	}
	return g
}

// Generate 生成完整的邮箱地址。
//
// localPart 为空时进入随机模式；指定时校验保守语法，
// 非法输入返回 domain.ErrInvalidLocalPart。
// domainName 为空时使用默认域名，不在允许列表中返回 domain.ErrInvalidDomain。
func (g *Generator) Generate(localPart, domainName string) (string, error) {
	selected, err := g.pickDomain(domainName)
	if err != nil {
		return "", err
	}

	if localPart == "" {
		localPart = g.randomLocalPart()
	} else {
		localPart = strings.ToLower(localPart)
		if err := domain.ValidateLocalPart(localPart); err != nil {
			return "", err
		}
	}

	address := fmt.Sprintf("%s@%s", localPart, selected)
	if len(address) > domain.MaxAddressLength {
		return "", domain.ErrAddressTooLong
	}
	return address, nil
}

// pickDomain 校验并选择域名。
func (g *Generator) pickDomain(requested string) (string, error) {
	if requested == "" {
		if g.defaultDomain == "" {
			return "", domain.ErrInvalidDomain
		}
		return g.defaultDomain, nil
	}
	requested = strings.ToLower(strings.TrimSpace(requested))
	if _, ok := g.domainSet[requested]; !ok {
		return "", domain.ErrInvalidDomain
	}
	return requested, nil
}

// randomLocalPart 生成随机本地部分。
//
// 以 UUID v4 去掉连字符后截断，熵来自 crypto/rand，
// 在注册表的实际生命周期内碰撞概率可以忽略。
func (g *Generator) randomLocalPart() string {
	base := strings.ToLower(strings.ReplaceAll(uuid.NewString(), "-", ""))
	if g.tokenLength < len(base) {
		return base[:g.tokenLength]
	}
	return base
}
