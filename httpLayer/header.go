package httpLayer

import (
	"net/http"
	"strings"
)

// 判断 h 中 名为 name 的头 是否含有 token (逗号分隔, 大小写不敏感)
func headerContainsToken(h http.Header, name, token string) bool {
	for _, v := range h.Values(name) {
		for _, t := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(t), token) {
				return true
			}
		}
	}
	return false
}
