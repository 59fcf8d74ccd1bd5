package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// UniqueUint removes duplicate values from a slice of uints, keeping first-seen order.
func UniqueUint(slice []uint) []uint {
	keys := make(map[uint]struct{}, len(slice))
	list := []uint{}
	for _, entry := range slice {
		if _, seen := keys[entry]; !seen {
			keys[entry] = struct{}{}
			list = append(list, entry)
		}
	}
	return list
}

// ParseUintList parses "1,2,3" into unique positive ids.
func ParseUintList(raw string) ([]uint, error) {
	var ids []uint
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseUint(part, 10, 64)
		if err != nil || n == 0 {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		ids = append(ids, uint(n))
	}
	return UniqueUint(ids), nil
}
