// Package endpoint drives multi-channel network lighting endpoints: one
// device at one address that hosts several logical lights, each on its
// own numbered channel.
//
// An endpoint exposes a single resource, /state. A PUT carries payloads
// for any subset of channels and a GET returns every channel:
//
//	PUT http://192.168.1.50/state
//	{"lights": {"1": {"on": true, "bri": 200}, "3": {"on": true}}}
//
// Batcher groups the lights of one operation by endpoint so each endpoint
// sees one request no matter how many of its channels are involved. Client
// performs those requests, one attempt each, bounded by a timeout.
package endpoint
