// Package feed implements the two price sources: a push feed over the
// Binance WebSocket ticker stream and a pull feed polling the CoinGecko
// simple-price endpoint. Both honor the same run-forever contract: expected
// failures (malformed payloads, transient network errors, rate limiting) are
// logged and absorbed, never raised out of the subscription loop.
package feed

import "time"

// timeNow is stubbed in tests.
var timeNow = func() time.Time { return time.Now().UTC() }
