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

// ParsePage 解析分页参数，非法或小于 1 时返回 1
func ParsePage(s string) int {
	if p := StringToInt(s); p > 0 {
		return p
	}
	return 1
}
