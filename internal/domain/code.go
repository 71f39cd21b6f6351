package domain

import "regexp"

// 正文中第一段连续 6 位以上的数字视为验证码
var verificationCodeRegex = regexp.MustCompile(`[0-9]{6,}`)

// ExtractVerificationCode 从邮件正文中提取验证码。
//
// 启发式规则：取正文中第一段长度不小于 6 的连续数字；
// 未命中时返回空串。提取失败不影响邮件本身的接收与存储。
func ExtractVerificationCode(body string) string {
	return verificationCodeRegex.FindString(body)
}
