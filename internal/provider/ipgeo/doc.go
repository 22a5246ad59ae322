// Package ipgeo locates the device from its public IP address using an
// ip-api compatible JSON endpoint.
//
// Requests are throttled client-side with a token bucket so repeated retries
// stay inside the free tier's limits. Attempts without a timeout use
// DefaultTimeout, mirroring browser geolocation which waits ten seconds when
// no timeout is given.
package ipgeo
