/*
Package httpLayer 提供http层的一些方法和定义.

包括 升级请求 url 的修正与查询参数顺序的提取, 以及 非隧道请求 的几个简单回应.
*/
package httpLayer

import (
	"net/url"
	"strings"
)

const EncodedQuestionMark = "%3F"

// FixEncodedQuery 处理 路径中 把 ? 编码成了 %3F 的情况 (一些客户端会这样写 path).
// 若路径解码后含有 ?, 则 ? 之后的部分 取代原查询字符串. u 会被原地修改.
func FixEncodedQuery(u *url.URL) {
	raw := u.EscapedPath()
	if !strings.Contains(raw, EncodedQuestionMark) {
		return
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return
	}
	path, query, found := strings.Cut(decoded, "?")
	if !found {
		return
	}
	u.Path = path
	u.RawPath = ""
	u.RawQuery = query
}

// QueryKeys 按出现顺序返回 原始查询字符串中每一项的键 (可重复).
//
// 与 url.Values 不同, 顺序被保留, 且没有 = 的项 也算一个键.
func QueryKeys(rawQuery string) []string {
	if rawQuery == "" {
		return nil
	}
	pairs := strings.Split(rawQuery, "&")
	keys := make([]string, 0, len(pairs))
	for _, p := range pairs {
		k, _, _ := strings.Cut(p, "=")
		if uk, err := url.QueryUnescape(k); err == nil {
			k = uk
		}
		keys = append(keys, k)
	}
	return keys
}
