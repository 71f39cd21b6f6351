package domain

import (
	"errors"
	"regexp"
	"strings"
)

// 地址校验相关错误
var (
	ErrInvalidLocalPart = errors.New("invalid local part format")
	ErrLocalPartTooLong = errors.New("local part too long (max 64 chars)")
	ErrInvalidDomain    = errors.New("invalid domain format")
	ErrAddressTooLong   = errors.New("address too long")
)

// RFC 5321/5322 长度限制
const (
	MaxAddressLength   = 254 // 完整地址最大长度
	MaxLocalPartLength = 64  // 本地部分最大长度（@ 之前）
	MaxDomainLength    = 253 // 域名最大长度
)

var (
	// 本地部分采用保守语法：字母数字开头结尾，中间允许 . _ -
	localPartRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*[a-z0-9]$|^[a-z0-9]$`)

	// 域名允许多级子域名
	domainRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,61}[a-z0-9]?(\.[a-z0-9][a-z0-9-]{0,61}[a-z0-9]?)*$`)
)

// ValidateLocalPart 校验调用方指定的邮箱本地部分。
//
// 输入先转为小写再校验；含空格或其他非法字符时返回 ErrInvalidLocalPart。
func ValidateLocalPart(localPart string) error {
	localPart = strings.ToLower(localPart)
	if localPart == "" {
		return ErrInvalidLocalPart
	}
	if len(localPart) > MaxLocalPartLength {
		return ErrLocalPartTooLong
	}
	if !localPartRegex.MatchString(localPart) {
		return ErrInvalidLocalPart
	}
	return nil
}

// ValidateDomain 校验邮箱域名部分。
func ValidateDomain(domainName string) error {
	domainName = strings.ToLower(domainName)
	if domainName == "" || len(domainName) > MaxDomainLength {
		return ErrInvalidDomain
	}
	if !domainRegex.MatchString(domainName) {
		return ErrInvalidDomain
	}
	return nil
}

// NormalizeAddress 将地址修剪并统一为小写，去掉 SMTP 封装的尖括号。
func NormalizeAddress(address string) string {
	address = strings.TrimSpace(address)
	address = strings.Trim(address, "<>")
	return strings.ToLower(address)
}

// SplitAddress 将完整地址拆分为本地部分与域名。
func SplitAddress(address string) (localPart, domainName string, ok bool) {
	parts := strings.Split(address, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
