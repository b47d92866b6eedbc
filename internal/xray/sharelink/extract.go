package sharelink

import (
	"bufio"
	"encoding/base64"
	"regexp"
	"strings"

	"github.com/samber/lo"
)

var regexLink = regexp.MustCompile(`(vmess|vless|trojan|ss)://[a-zA-Z0-9_\-\.\:@\?=&%#+/\[\]~*'()!]+`)

// ExtractLinks pulls share links out of free text, one or more per line, in
// order of first appearance.
func ExtractLinks(text string) []string {
	var links []string
	text = strings.ReplaceAll(text, "\r\n", "\n")
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		for _, match := range regexLink.FindAllString(line, -1) {
			if clean := trimTrailing(match); clean != "" {
				links = append(links, clean)
			}
		}
	}
	return lo.Uniq(links)
}

// ExtractSubscription handles both plain link lists and the base64 payload
// served by most subscription endpoints.
func ExtractSubscription(body string) []string {
	if links := ExtractLinks(body); len(links) > 0 {
		return links
	}
	decoded, err := decodeBase64(strings.Join(strings.Fields(body), ""))
	if err != nil {
		return nil
	}
	return ExtractLinks(decoded)
}

// trimTrailing drops sentence punctuation glued to a link in prose. The
// remark fragment keeps '.' and balanced ')' since links encode them bare.
func trimTrailing(match string) string {
	_, fragment, ok := strings.Cut(match, "#")
	if !ok {
		return strings.TrimRight(match, ".)")
	}
	for strings.HasSuffix(match, ")") && strings.Count(fragment, ")") > strings.Count(fragment, "(") {
		match = match[:len(match)-1]
		fragment = fragment[:len(fragment)-1]
	}
	return match
}

var base64Encodings = []*base64.Encoding{
	base64.RawStdEncoding,
	base64.RawURLEncoding,
}

// decodeBase64 reads standard or URL-safe base64, with or without padding.
func decodeBase64(s string) (string, error) {
	s = strings.TrimRight(strings.TrimSpace(s), "=")
	if s == "" {
		return "", nil
	}
	var err error
	for _, enc := range base64Encodings {
		var b []byte
		if b, err = enc.DecodeString(s); err == nil {
			return string(b), nil
		}
	}
	return "", err
}

var lineBreaks = strings.NewReplacer("\r", "", "\n", "")

// cleanLink removes surrounding whitespace and line breaks pasted into a link.
func cleanLink(s string) string {
	return lineBreaks.Replace(strings.TrimSpace(s))
}
