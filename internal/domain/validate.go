package domain

import "regexp"

var ScanIDRe = regexp.MustCompile(`^[a-f0-9]{32}$`)

func IsValidScanID(id string) bool { return ScanIDRe.MatchString(id) }
