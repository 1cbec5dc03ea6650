// Package influxdb mirrors accepted readings and commands into InfluxDB v2.
//
// The mirror is optional telemetry. The state store remains the system of
// record, so writes are fire-and-forget through the client's batched
// non-blocking WriteAPI and failures are reported through SetOnError.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without a mirror
//	}
//	defer client.Close()
//
//	client.WriteReading("sensor", "salon", "gas", int64(701), time.Now())
//
// All methods are safe for concurrent use.
package influxdb
