package service

import (
	jsoniter "github.com/json-iterator/go"
)

// Measured values must round-trip exactly between the stored row and the
// wire envelope, so the lossy 6-digit float mode is off the table.
var jsonStd = jsoniter.ConfigCompatibleWithStandardLibrary
