// Package mqtt provides MQTT client connectivity for the smart home core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing with QoS and size checks
//   - Wildcard subscriptions restored after reconnect
//   - Last Will and Testament on {prefix}/system/status
//
// The core uses MQTT in three directions: it fans out notifications on
// {prefix}/alert/{category}, publishes accepted commands as retained state on
// {prefix}/command/{room}/{type}, and ingests device readings from
// {prefix}/ingest/sensor/{room}/{type}.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(client.Topics().AllSensorIngest(), 1,
//	    func(topic string, payload []byte) error {
//	        room, typ, _ := client.Topics().ParseSensorIngest(topic)
//	        log.Printf("%s/%s = %s", room, typ, payload)
//	        return nil
//	    })
package mqtt
