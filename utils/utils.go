package utils

import (
	"flag"
	"os"
)

func IsFlagGiven(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// 若 path 存在且不是目录, 返回 path, 否则返回空字符串
func GetFilePath(path string) string {
	if path == "" {
		return ""
	}
	if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
		return path
	}
	return ""
}
