// Package device provides the type registry and value validation for the
// smart home core.
//
// Every sensor and every command target is described by a Spec: its value
// Kind (binary, float or integer), the allowed values or numeric range, the
// optional severity bands used for alerting, and the set of rooms where the
// type exists. Specs are grouped into two read-only registries, one for
// sensors and one for commands, built once at process start.
//
// # Architecture
//
//	  inbound raw value
//	          │
//	          ▼
//	┌──────────────────┐   Check(type, room)   ┌──────────────────┐
//	│     Registry     │──────────────────────▶│       Spec       │
//	│  (registry.go)   │                       │    (types.go)    │
//	└──────────────────┘                       └────────┬─────────┘
//	                                                    │ Validate(spec, raw)
//	                                                    ▼
//	                                           ┌──────────────────┐
//	                                           │      Value       │
//	                                           │ Enum|Float|Int   │
//	                                           └──────────────────┘
//
// # Usage
//
//	sensors := device.SensorRegistry()
//	spec, err := sensors.Check("temperature", "salon")
//	if err != nil {
//	    return err // ErrUnknownType or ErrRoomNotApplicable
//	}
//	v, err := device.Validate(spec, "25.5")
//
// # Thread Safety
//
// Registries and Specs are immutable after construction and safe for
// concurrent reads. Validate is a pure function.
package device
