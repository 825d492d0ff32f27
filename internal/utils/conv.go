package utils

import (
	"strconv"
)

// StringToInt converts string to int, returns 0 if error
func StringToInt(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return i
}

// StringToUint 解析 URL 中的数字 ID，ok 为 false 表示非法
func StringToUint(s string) (uint, bool) {
	i, err := strconv.ParseUint(s, 10, 64)
	if err != nil || i == 0 {
		return 0, false
	}
	return uint(i), true
}
