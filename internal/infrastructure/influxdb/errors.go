package influxdb

import "errors"

// Sentinel errors. Write failures are asynchronous and reach SetOnError
// instead of being returned.
var (
	ErrNotConnected     = errors.New("influxdb: not connected")
	ErrConnectionFailed = errors.New("influxdb: connection failed")
	ErrDisabled         = errors.New("influxdb: disabled in configuration")
)
