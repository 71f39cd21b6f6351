package smtp

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/transform"
)

// ParsedMail 表示从原始邮件中提取出的纯文本内容。
type ParsedMail struct {
	Subject string
	From    string
	Text    string
}

// ParseMail 解析原始邮件并提取主题、发件人与纯文本正文。
//
// 只做纯文本提取：multipart 邮件取第一个 text/plain 部分，
// 没有时退回第一个 text/* 部分；HTML 渲染与附件不在范围内。
func ParseMail(rawMail []byte) (*ParsedMail, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(rawMail))
	if err != nil {
		return nil, fmt.Errorf("parse mail: %w", err)
	}

	parsed := &ParsedMail{
		Subject: decodeHeader(msg.Header.Get("Subject")),
		From:    decodeHeader(msg.Header.Get("From")),
	}

	contentType := msg.Header.Get("Content-Type")
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// 没有 Content-Type 或解析失败时按纯文本处理
		body, _ := io.ReadAll(msg.Body)
		parsed.Text = string(body)
		return parsed, nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return nil, fmt.Errorf("multipart message without boundary")
		}
		text, err := extractTextPart(multipart.NewReader(msg.Body, boundary))
		if err != nil {
			return nil, fmt.Errorf("parse multipart: %w", err)
		}
		parsed.Text = text
		return parsed, nil
	}

	body, err := decodeBody(msg.Body, msg.Header.Get("Content-Transfer-Encoding"), params["charset"])
	if err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	parsed.Text = body
	return parsed, nil
}

// extractTextPart 在多部分邮件中寻找纯文本正文。
//
// 优先 text/plain；嵌套 multipart 递归展开；
// text/plain 缺席时使用第一个 text/* 部分兜底。
func extractTextPart(mr *multipart.Reader) (string, error) {
	fallback := ""

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		partType, partParams, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if err != nil {
			continue
		}

		if strings.HasPrefix(partType, "multipart/") {
			if boundary := partParams["boundary"]; boundary != "" {
				nested, err := extractTextPart(multipart.NewReader(part, boundary))
				if err == nil && nested != "" {
					return nested, nil
				}
			}
			continue
		}

		if !strings.HasPrefix(partType, "text/") {
			continue
		}

		body, err := decodeBody(part, part.Header.Get("Content-Transfer-Encoding"), partParams["charset"])
		if err != nil {
			continue
		}

		if strings.HasPrefix(partType, "text/plain") {
			return body, nil
		}
		if fallback == "" {
			fallback = body
		}
	}

	return fallback, nil
}

// decodeBody 按传输编码与字符集解码正文。
func decodeBody(r io.Reader, transferEncoding, charset string) (string, error) {
	var reader io.Reader = r

	switch strings.ToLower(strings.TrimSpace(transferEncoding)) {
	case "base64":
		reader = base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		reader = quotedprintable.NewReader(r)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}

	return convertCharset(body, charset), nil
}

// convertCharset 将常见非 UTF-8 字符集转换为 UTF-8，失败时返回原文。
func convertCharset(body []byte, charset string) string {
	var enc encoding.Encoding

	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "utf-8", "us-ascii":
		return string(body)
	case "gbk", "gb2312":
		enc = simplifiedchinese.GBK
	case "gb18030":
		enc = simplifiedchinese.GB18030
	case "big5":
		enc = traditionalchinese.Big5
	case "iso-2022-jp":
		enc = japanese.ISO2022JP
	case "shift_jis", "shift-jis":
		enc = japanese.ShiftJIS
	case "euc-jp":
		enc = japanese.EUCJP
	case "euc-kr":
		enc = korean.EUCKR
	default:
		return string(body)
	}

	converted, _, err := transform.Bytes(enc.NewDecoder(), body)
	if err != nil {
		return string(body)
	}
	return string(converted)
}

// decodeHeader 解码 RFC 2047 编码的邮件头，失败时返回原文。
func decodeHeader(value string) string {
	if value == "" {
		return value
	}
	decoder := new(mime.WordDecoder)
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		body, err := io.ReadAll(input)
		if err != nil {
			return nil, err
		}
		return strings.NewReader(convertCharset(body, charset)), nil
	}
	decoded, err := decoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}
