// Package driver holds the protocol drivers that talk to physical lights.
//
// A driver implements Setter and, when its protocol can be queried,
// StateReader. Drivers are bound to protocol tags in a Registry at
// startup:
//
//	drivers := driver.NewRegistry()
//	drivers.Register(light.ProtocolMemory, driver.MemoryDriver{})
//	drivers.Register(light.ProtocolNativeMulti, driver.NewNativeMultiDriver(ep))
//	drivers.Register(light.ProtocolMQTT, driver.NewMQTTDriver(mqttClient, topics, lights))
//
// Drivers keep the light's cached state in step with what they sent or
// read, and mark the light unreachable when its device could not be
// contacted.
package driver
