package main

import "strings"

func deduceFormat(format, filePath string) string {
	if format == "" && strings.HasSuffix(filePath, ".mbt") {
		return "mbt"
	}
	if format == "" && strings.HasSuffix(filePath, ".pak") {
		return "pak"
	}
	if format == "" {
		return "wwt"
	}
	return format
}
