// Package api provides the HTTP REST API for the smart home core.
//
// It exposes sensor readings, actuator commands, history (JSON and xlsx),
// notifications, face recognition events and login to the mobile app.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
